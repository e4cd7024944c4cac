package billing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWebhookEventDeduplicates(t *testing.T) {
	repo := newFakeRepo()
	in := WebhookEventInput{
		ProviderEventID: "evt_1",
		EventType:       "invoice.paid",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, first, err := RecordWebhookEvent(repo, in)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first)

	created, second, err := RecordWebhookEvent(repo, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRecordWebhookEventHashFallback(t *testing.T) {
	repo := newFakeRepo()
	in := WebhookEventInput{
		EventType:   "invoice.paid",
		PayloadJSON: `{"no":"id"}`,
	}

	created, stored, err := RecordWebhookEvent(repo, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, strings.HasPrefix(stored.ProviderEventID, "hash:"))

	// Same payload hashes to the same synthetic id.
	created, again, err := RecordWebhookEvent(repo, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, stored.ProviderEventID, again.ProviderEventID)

	// A different payload is a different delivery.
	created, _, err = RecordWebhookEvent(repo, WebhookEventInput{
		EventType:   "invoice.paid",
		PayloadJSON: `{"no":"id","different":true}`,
	})
	require.NoError(t, err)
	assert.True(t, created)
}
