package jobqueue

import (
	"fmt"

	"github.com/FelixDorner/LinkCard/internal/pkg/mail"
)

// processSendEmailJob delivers one outbound email via SMTP
func (q *Queue) processSendEmailJob(job *Job) error {
	payload, err := SendEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}
	if payload.To == "" {
		return fmt.Errorf("email job %s has no recipient", job.ID)
	}

	return mail.SendMail(payload.To, payload.Subject, payload.Body)
}
