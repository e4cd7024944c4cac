package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewQueue tests the queue constructor
func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.False(t, queue.running)
		})
	}
}

func TestSendEmailJobPayloadRoundTrip(t *testing.T) {
	payload := SendEmailJobPayload{
		To:      "user@example.com",
		Subject: "Payment failed",
		Body:    "<p>please update your card</p>",
	}

	restored, err := SendEmailJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestJobStateTransitions(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: DefaultMaxRetries}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("smtp timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	for i := 0; i < DefaultMaxRetries-1; i++ {
		job.MarkAsFailed("smtp timeout")
	}
	assert.False(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.ErrorMsg)
	assert.NotNil(t, job.CompletedAt)
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)

	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}
