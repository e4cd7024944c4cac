package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/internal/pkg/billing"
	"github.com/FelixDorner/LinkCard/internal/pkg/subscription"
)

const testWebhookSecret = "whsec_test_secret"

// stubRepo implements billing.Repository in memory for handler tests.
type stubRepo struct {
	rows        map[string]*models.Subscription
	events      map[string]*models.BillingWebhookEvent
	nextEventID uint
	mutations   int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		rows:   make(map[string]*models.Subscription),
		events: make(map[string]*models.BillingWebhookEvent),
	}
}

func (s *stubRepo) GetLatestByUser(userID uint) (*models.Subscription, error) {
	for _, sub := range s.rows {
		if sub.UserID == userID {
			return sub, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetByStripeSubscriptionID(id string) (*models.Subscription, error) {
	sub, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	return sub, nil
}

func (s *stubRepo) UpsertCheckout(sub *models.Subscription) error {
	s.mutations++
	key := ""
	if sub.StripeSubscriptionID != nil {
		key = *sub.StripeSubscriptionID
	}
	s.rows[key] = sub
	return nil
}

func (s *stubRepo) UpdateByStripeSubscriptionID(id string, fields map[string]interface{}) (int64, error) {
	s.mutations++
	sub, ok := s.rows[id]
	if !ok {
		return 0, nil
	}
	if v, ok := fields["status"]; ok {
		sub.Status = v.(string)
	}
	if v, ok := fields["canceled_at"]; ok {
		sub.CanceledAt = v.(*time.Time)
	}
	return 1, nil
}

func (s *stubRepo) GetUserEmail(userID uint) (string, error) {
	return "", errors.New("not wired in this test")
}

func (s *stubRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + ":" + event.ProviderEventID
	if stored, ok := s.events[key]; ok {
		return false, stored, nil
	}
	s.nextEventID++
	event.ID = s.nextEventID
	s.events[key] = event
	return true, event, nil
}

func (s *stubRepo) MarkWebhookProcessed(id uint, processingError string) error {
	return nil
}

type stubFetcher struct{}

func (stubFetcher) FetchSubscription(id string) (*stripe.Subscription, error) {
	return nil, errors.New("not wired in this test")
}

func newWebhookTestApp(t *testing.T) (*fiber.App, *stubRepo) {
	t.Helper()
	t.Setenv("STRIPE_WEBHOOK_SECRET", testWebhookSecret)

	repo := newStubRepo()
	client := billing.NewClient(billing.Config{WebhookSecret: testWebhookSecret})
	InitializeBillingController(repo, client, stubFetcher{}, subscription.NewService(repo))

	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)
	return app, repo
}

func signedHeader(payload []byte, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: at,
		Scheme:    "v1",
	})
	return signed.Header
}

func webhookPayload(eventID, eventType string, object string) []byte {
	return []byte(`{"id":"` + eventID + `","type":"` + eventType + `","data":{"object":` + object + `}}`)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	app, repo := newWebhookTestApp(t)
	payload := webhookPayload("evt_1", "customer.subscription.deleted", `{"id":"sub_123"}`)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=12345,v1=deadbeef")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Webhook Error")
	assert.Zero(t, repo.mutations)
	assert.Empty(t, repo.events)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	app, repo := newWebhookTestApp(t)
	payload := webhookPayload("evt_1", "customer.subscription.deleted", `{"id":"sub_123"}`)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, repo.mutations)
}

func TestWebhookAcknowledgesVerifiedEvent(t *testing.T) {
	app, repo := newWebhookTestApp(t)
	subID := "sub_123"
	repo.rows[subID] = &models.Subscription{
		ID: 1, UserID: 7, Plan: models.PlanPremium,
		Status:               models.SubscriptionStatusActive,
		StripeSubscriptionID: &subID,
	}
	payload := webhookPayload("evt_1", "customer.subscription.deleted", `{"id":"`+subID+`"}`)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signedHeader(payload, time.Now()))
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["received"])
	assert.NotContains(t, body, "processingError")

	assert.Equal(t, models.SubscriptionStatusCanceled, repo.rows[subID].Status)
	assert.NotNil(t, repo.rows[subID].CanceledAt)
}

func TestWebhookDuplicateDeliveryIsAcknowledgedOnce(t *testing.T) {
	app, repo := newWebhookTestApp(t)
	subID := "sub_123"
	repo.rows[subID] = &models.Subscription{
		ID: 1, UserID: 7, Plan: models.PlanPremium,
		Status:               models.SubscriptionStatusActive,
		StripeSubscriptionID: &subID,
	}
	payload := webhookPayload("evt_1", "customer.subscription.deleted", `{"id":"`+subID+`"}`)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", signedHeader(payload, time.Now()))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, true, body["received"])
		if i == 1 {
			assert.Equal(t, true, body["duplicate"])
		}
	}

	// Only the first delivery reached the reconciler.
	assert.Equal(t, 1, repo.mutations)
}

func TestWebhookUnhandledTypeStillAcknowledged(t *testing.T) {
	app, repo := newWebhookTestApp(t)
	payload := webhookPayload("evt_2", "customer.created", `{"id":"cus_1"}`)

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signedHeader(payload, time.Now()))
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, repo.mutations)
}
