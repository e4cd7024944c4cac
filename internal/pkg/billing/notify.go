package billing

import (
	"github.com/FelixDorner/LinkCard/internal/pkg/jobqueue"
	"github.com/FelixDorner/LinkCard/internal/pkg/logging"
	"github.com/FelixDorner/LinkCard/internal/pkg/mail"
)

// MailNotifier sends reconciliation notices over SMTP. Send failures are
// logged and dropped; notification is best effort and must never fail the
// webhook path.
type MailNotifier struct {
	repo Repository
}

func NewMailNotifier(repo Repository) *MailNotifier {
	return &MailNotifier{repo: repo}
}

func (n *MailNotifier) PaymentFailed(userID uint) {
	email, err := n.repo.GetUserEmail(userID)
	if err != nil || email == "" {
		logging.Warn("", "could not resolve email for payment-failed notice", map[string]interface{}{
			"user_id": userID,
		})
		return
	}

	payload := jobqueue.SendEmailJobPayload{
		To:      email,
		Subject: "Payment failed for your LinkCard subscription",
		Body: "<p>Your last subscription payment did not go through. " +
			"Please update your payment method in the billing portal to keep your premium features.</p>",
	}

	// Queue the notice so SMTP hiccups get retried instead of lost. Fall
	// back to a direct send when the queue is not available.
	manager := jobqueue.GetManager()
	if manager.IsRunning() {
		if _, err := manager.GetQueue().EnqueueJob(jobqueue.JobTypeSendEmail, payload.ToMap()); err == nil {
			return
		}
		logging.Warn("", "payment-failed notice could not be queued, sending directly", map[string]interface{}{
			"user_id": userID,
		})
	}

	if err := mail.SendMail(payload.To, payload.Subject, payload.Body); err != nil {
		logging.Warn("", "payment-failed notice could not be sent", map[string]interface{}{
			"user_id": userID,
		})
	}
}
