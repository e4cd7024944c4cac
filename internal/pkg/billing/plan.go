package billing

import (
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/FelixDorner/LinkCard/app/models"
)

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case models.PlanPremium:
		return models.PlanPremium
	case models.PlanTeam:
		return models.PlanTeam
	default:
		return models.PlanFree
	}
}

// mapStripeStatus collapses the provider's status vocabulary onto the local
// three-valued enum.
func mapStripeStatus(status stripe.SubscriptionStatus) string {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return models.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return models.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return models.SubscriptionStatusCanceled
	default:
		return models.SubscriptionStatusActive
	}
}

// periodEndFromSubscription reads current_period_end off the first
// subscription item. Items carry the period since the Basil API.
func periodEndFromSubscription(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	end := sub.Items.Data[0].CurrentPeriodEnd
	if end <= 0 {
		return nil
	}
	t := time.Unix(end, 0).UTC()
	return &t
}

// quantityFromSubscription reads the seat count, defaulting to 1.
func quantityFromSubscription(sub *stripe.Subscription) int64 {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return 1
	}
	q := sub.Items.Data[0].Quantity
	if q < 1 {
		return 1
	}
	return q
}

// subscriptionIDFromInvoice extracts the subscription id from an invoice's
// parent, when the invoice belongs to a subscription at all.
func subscriptionIDFromInvoice(invoice *stripe.Invoice) string {
	if invoice != nil &&
		invoice.Parent != nil &&
		invoice.Parent.SubscriptionDetails != nil &&
		invoice.Parent.SubscriptionDetails.Subscription != nil {
		return invoice.Parent.SubscriptionDetails.Subscription.ID
	}
	return ""
}
