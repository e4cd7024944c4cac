package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/FelixDorner/LinkCard/app/models"
	"github.com/FelixDorner/LinkCard/internal/pkg/logging"
)

const Provider = "stripe"

// provisionalPeriod is used for the period end written at checkout time when
// the subscription object is not yet available; the next invoice.paid or
// subscription.updated event overwrites it with the authoritative value.
const provisionalPeriod = 30 * 24 * time.Hour

// SubscriptionFetcher re-fetches the billing provider's subscription object.
type SubscriptionFetcher interface {
	FetchSubscription(id string) (*stripe.Subscription, error)
}

// Notifier is told about reconciliation outcomes a user should hear about.
type Notifier interface {
	PaymentFailed(userID uint)
}

// CacheInvalidator drops a user's cached subscription after a mutation so
// reads converge immediately instead of waiting out the cache TTL.
type CacheInvalidator interface {
	Invalidate(userID uint)
}

// Reconciler consumes verified billing events and applies exactly the state
// transition each event type implies. Store failures in a branch are logged
// and surfaced as the return value, never as an abort: the provider gets an
// acknowledgment either way, because its retries would not fix a local data
// problem and only amplify noise.
type Reconciler struct {
	repo        Repository
	fetcher     SubscriptionFetcher
	notifier    Notifier
	invalidator CacheInvalidator
	now         func() time.Time
}

func NewReconciler(repo Repository, fetcher SubscriptionFetcher) *Reconciler {
	return &Reconciler{
		repo:    repo,
		fetcher: fetcher,
		now:     time.Now,
	}
}

// WithNotifier attaches an outcome notifier.
func (r *Reconciler) WithNotifier(n Notifier) *Reconciler {
	r.notifier = n
	return r
}

// WithInvalidator attaches a subscription cache invalidator.
func (r *Reconciler) WithInvalidator(inv CacheInvalidator) *Reconciler {
	r.invalidator = inv
	return r
}

func (r *Reconciler) invalidate(userID uint) {
	if r.invalidator != nil {
		r.invalidator.Invalidate(userID)
	}
}

// invalidateBySubscriptionID resolves the owning user of an external
// subscription reference and drops their cache entry. Best effort; a failed
// lookup only means the read layer converges at TTL instead of immediately.
func (r *Reconciler) invalidateBySubscriptionID(subID string) {
	if r.invalidator == nil {
		return
	}
	local, err := r.repo.GetByStripeSubscriptionID(subID)
	if err != nil || local == nil {
		return
	}
	r.invalidator.Invalidate(local.UserID)
}

// HandleEvent dispatches one verified event. A non-nil return means the event
// was acknowledged but processing degraded; callers record it, they do not
// propagate it to the provider.
func (r *Reconciler) HandleEvent(event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return r.handleCheckoutCompleted(event)
	case "invoice.paid":
		return r.handleInvoicePaid(event)
	case "invoice.payment_failed":
		return r.handleInvoicePaymentFailed(event)
	case "customer.subscription.updated":
		return r.handleSubscriptionUpdated(event)
	case "customer.subscription.deleted":
		return r.handleSubscriptionDeleted(event)
	default:
		logging.Info(event.ID, "unhandled webhook event type", map[string]interface{}{
			"event_type": string(event.Type),
		})
		return nil
	}
}

func (r *Reconciler) handleCheckoutCompleted(event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		logging.Error(event.ID, "unmarshal checkout session failed", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("checkout.session.completed: unmarshal: %w", err)
	}

	userIDStr := sess.Metadata[MetadataUserID]
	planID := sess.Metadata[MetadataPlanID]
	if userIDStr == "" || planID == "" {
		// Correlation metadata is mandatory at initial checkout; without it
		// there is no row to create. Skip, do not fail the request.
		logging.Error(event.ID, "checkout session missing user_id/plan_id metadata", map[string]interface{}{
			"has_user_id": userIDStr != "",
			"has_plan_id": planID != "",
		})
		return nil
	}
	userID64, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		logging.Error(event.ID, "checkout session metadata user_id is not numeric", map[string]interface{}{
			"user_id": userIDStr,
		})
		return nil
	}

	quantity := int64(1)
	provisionalEnd := r.now().Add(provisionalPeriod).UTC()
	periodEnd := &provisionalEnd
	var subID, customerID *string
	if sess.Subscription != nil && sess.Subscription.ID != "" {
		id := sess.Subscription.ID
		subID = &id
		if fetched, err := r.fetcher.FetchSubscription(id); err != nil {
			logging.Warn(event.ID, "could not fetch subscription after checkout, using provisional values", map[string]interface{}{
				"subscription_id": id,
				"error":           err.Error(),
			})
		} else {
			quantity = quantityFromSubscription(fetched)
			if end := periodEndFromSubscription(fetched); end != nil {
				periodEnd = end
			}
		}
	}
	if sess.Customer != nil && sess.Customer.ID != "" {
		id := sess.Customer.ID
		customerID = &id
	}

	sub := &models.Subscription{
		UserID:               uint(userID64),
		Plan:                 normalizePlan(planID),
		Status:               models.SubscriptionStatusActive,
		StripeSubscriptionID: subID,
		StripeCustomerID:     customerID,
		CurrentPeriodEnd:     periodEnd,
		Quantity:             quantity,
	}
	if err := r.repo.UpsertCheckout(sub); err != nil {
		logging.Error(event.ID, "checkout upsert failed", map[string]interface{}{
			"event_type": string(event.Type),
			"user_id":    sub.UserID,
			"error":      err.Error(),
		})
		return fmt.Errorf("checkout.session.completed: upsert: %w", err)
	}
	r.invalidate(sub.UserID)

	logging.Info(event.ID, "checkout completed", map[string]interface{}{
		"user_id": sub.UserID,
		"plan":    sub.Plan,
	})
	return nil
}

func (r *Reconciler) handleInvoicePaid(event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		logging.Error(event.ID, "unmarshal invoice failed", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("invoice.paid: unmarshal: %w", err)
	}

	subID := subscriptionIDFromInvoice(&invoice)
	if subID == "" {
		logging.Info(event.ID, "invoice has no subscription reference, skipping", nil)
		return nil
	}

	local, err := r.repo.GetByStripeSubscriptionID(subID)
	if err != nil {
		logging.Error(event.ID, "subscription lookup failed", map[string]interface{}{
			"event_type":      string(event.Type),
			"subscription_id": subID,
			"error":           err.Error(),
		})
		return fmt.Errorf("invoice.paid: lookup: %w", err)
	}
	if local == nil {
		logging.Warn(event.ID, "Subscription not found in database", map[string]interface{}{
			"subscription_id": subID,
		})
		return nil
	}

	fetched, err := r.fetcher.FetchSubscription(subID)
	if err != nil {
		logging.Error(event.ID, "re-fetch of paid subscription failed", map[string]interface{}{
			"subscription_id": subID,
			"error":           err.Error(),
		})
		return fmt.Errorf("invoice.paid: fetch: %w", err)
	}

	fields := map[string]interface{}{
		"status":   models.SubscriptionStatusActive,
		"quantity": quantityFromSubscription(fetched),
	}
	if end := periodEndFromSubscription(fetched); end != nil {
		fields["current_period_end"] = end
	}
	if _, err := r.repo.UpdateByStripeSubscriptionID(subID, fields); err != nil {
		logging.Error(event.ID, "invoice.paid update failed", map[string]interface{}{
			"subscription_id": subID,
			"error":           err.Error(),
		})
		return fmt.Errorf("invoice.paid: update: %w", err)
	}
	r.invalidate(local.UserID)
	logging.Info(event.ID, "invoice paid, subscription active", map[string]interface{}{
		"subscription_id": subID,
	})
	return nil
}

func (r *Reconciler) handleInvoicePaymentFailed(event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		logging.Error(event.ID, "unmarshal invoice failed", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("invoice.payment_failed: unmarshal: %w", err)
	}

	subID := subscriptionIDFromInvoice(&invoice)
	if subID == "" {
		logging.Info(event.ID, "invoice has no subscription reference, skipping", nil)
		return nil
	}

	local, err := r.repo.GetByStripeSubscriptionID(subID)
	if err != nil {
		logging.Error(event.ID, "subscription lookup failed", map[string]interface{}{
			"event_type":      string(event.Type),
			"subscription_id": subID,
			"error":           err.Error(),
		})
		return fmt.Errorf("invoice.payment_failed: lookup: %w", err)
	}
	if local == nil {
		logging.Warn(event.ID, "Subscription not found in database", map[string]interface{}{
			"subscription_id": subID,
		})
		return nil
	}

	if _, err := r.repo.UpdateByStripeSubscriptionID(subID, map[string]interface{}{
		"status": models.SubscriptionStatusPastDue,
	}); err != nil {
		logging.Error(event.ID, "past_due update failed", map[string]interface{}{
			"subscription_id": subID,
			"error":           err.Error(),
		})
		return fmt.Errorf("invoice.payment_failed: update: %w", err)
	}
	r.invalidate(local.UserID)
	logging.Warn(event.ID, "invoice payment failed, subscription past due", map[string]interface{}{
		"subscription_id": subID,
		"user_id":         local.UserID,
	})
	if r.notifier != nil {
		r.notifier.PaymentFailed(local.UserID)
	}
	return nil
}

func (r *Reconciler) handleSubscriptionUpdated(event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		logging.Error(event.ID, "unmarshal subscription failed", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("customer.subscription.updated: unmarshal: %w", err)
	}

	// Full-field overwrite keyed by the external reference. Zero affected
	// rows means we never recorded this subscription; that is not fatal.
	fields := map[string]interface{}{
		"status":   mapStripeStatus(stripeSub.Status),
		"quantity": quantityFromSubscription(&stripeSub),
	}
	if end := periodEndFromSubscription(&stripeSub); end != nil {
		fields["current_period_end"] = end
	}
	rows, err := r.repo.UpdateByStripeSubscriptionID(stripeSub.ID, fields)
	if err != nil {
		logging.Error(event.ID, "subscription update failed", map[string]interface{}{
			"subscription_id": stripeSub.ID,
			"error":           err.Error(),
		})
		return fmt.Errorf("customer.subscription.updated: update: %w", err)
	}
	if rows > 0 {
		r.invalidateBySubscriptionID(stripeSub.ID)
	}
	logging.Info(event.ID, "subscription updated", map[string]interface{}{
		"subscription_id": stripeSub.ID,
		"rows_affected":   rows,
	})
	return nil
}

func (r *Reconciler) handleSubscriptionDeleted(event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		logging.Error(event.ID, "unmarshal subscription failed", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("customer.subscription.deleted: unmarshal: %w", err)
	}

	canceledAt := r.now().UTC()
	rows, err := r.repo.UpdateByStripeSubscriptionID(stripeSub.ID, map[string]interface{}{
		"status":      models.SubscriptionStatusCanceled,
		"canceled_at": &canceledAt,
	})
	if err != nil {
		logging.Error(event.ID, "cancellation update failed", map[string]interface{}{
			"subscription_id": stripeSub.ID,
			"error":           err.Error(),
		})
		return fmt.Errorf("customer.subscription.deleted: update: %w", err)
	}
	if rows > 0 {
		r.invalidateBySubscriptionID(stripeSub.ID)
	}
	logging.Info(event.ID, "subscription canceled", map[string]interface{}{
		"subscription_id": stripeSub.ID,
		"rows_affected":   rows,
	})
	return nil
}
