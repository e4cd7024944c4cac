package billing

import (
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/FelixDorner/LinkCard/internal/pkg/env"
)

// Metadata keys carried on checkout sessions. The billing object itself has no
// notion of our user ids, so initial checkout correlation rides on metadata.
const (
	MetadataUserID = "user_id"
	MetadataPlanID = "plan_id"
)

type Config struct {
	SecretKey       string
	WebhookSecret   string
	PremiumPriceID  string
	TeamPriceID     string
	SuccessURL      string
	CancelURL       string
	PortalReturnURL string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

func NewClientFromEnv() *Client {
	return NewClient(Config{
		SecretKey:       env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret:   env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		PremiumPriceID:  env.GetEnv("STRIPE_PRICE_PREMIUM", ""),
		TeamPriceID:     env.GetEnv("STRIPE_PRICE_TEAM", ""),
		SuccessURL:      env.GetEnv("STRIPE_SUCCESS_URL", "http://localhost:4000/account?checkout=success"),
		CancelURL:       env.GetEnv("STRIPE_CANCEL_URL", "http://localhost:4000/account?checkout=canceled"),
		PortalReturnURL: env.GetEnv("STRIPE_PORTAL_RETURN_URL", "http://localhost:4000/account"),
	})
}

// PriceIDForPlan returns the Stripe price id for an internal plan.
func (c *Client) PriceIDForPlan(plan string) string {
	if plan == "team" {
		return c.cfg.TeamPriceID
	}
	return c.cfg.PremiumPriceID
}

// CreateCheckoutSession opens a hosted checkout for the given user and plan
// and returns the redirect URL. user id and plan id travel as session
// metadata so the webhook can correlate the completed checkout back to us.
func (c *Client) CreateCheckoutSession(userID uint, plan string, quantity int64) (string, error) {
	if quantity < 1 {
		quantity = 1
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(c.PriceIDForPlan(plan)),
				Quantity: stripe.Int64(quantity),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(c.cfg.SuccessURL),
		CancelURL:           stripe.String(c.cfg.CancelURL),
		Metadata: map[string]string{
			MetadataUserID: strconv.FormatUint(uint64(userID), 10),
			MetadataPlanID: plan,
		},
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// CreateBillingPortalSession opens the hosted customer portal (cancellation
// and payment-method changes happen there) and returns the redirect URL.
func (c *Client) CreateBillingPortalSession(customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.cfg.PortalReturnURL),
	}
	sess, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session: %w", err)
	}
	return sess.URL, nil
}

// FetchSubscription re-fetches the authoritative subscription object by id.
func (c *Client) FetchSubscription(id string) (*stripe.Subscription, error) {
	sub, err := subscription.Get(id, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription %s: %w", id, err)
	}
	return sub, nil
}

// ConstructWebhookEvent verifies the signature header against the shared
// secret and returns the parsed event. API version mismatches are tolerated;
// the reconciler only reads fields that are stable across versions.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, sigHeader, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
