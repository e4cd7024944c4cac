package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/FelixDorner/LinkCard/app/models"
)

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// RecordWebhookEvent persists a delivery idempotently. Deliveries without a
// provider event id are deduplicated by payload hash instead.
func RecordWebhookEvent(repo Repository, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        Provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return repo.CreateWebhookEventIfNotExists(event)
}
