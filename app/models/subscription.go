package models

import "time"

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanTeam    = "team"
)

// Subscription mirrors the billing provider's subscription state for one user.
// A user with no row is on the free plan; the row is created by the first
// completed checkout and mutated only by subsequent provider events. Rows are
// never hard-deleted, cancellation sets status + canceled_at.
type Subscription struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	UserID               uint       `gorm:"not null;index" json:"user_id"`
	Plan                 string     `gorm:"type:varchar(50);not null;default:'free';index" json:"plan"`
	Status               string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	StripeSubscriptionID *string    `gorm:"type:varchar(191);default:null;index:ux_subscriptions_stripe_sub,unique" json:"stripe_subscription_id,omitempty"`
	StripeCustomerID     *string    `gorm:"type:varchar(191);default:null;index" json:"stripe_customer_id,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	Quantity             int64      `gorm:"not null;default:1" json:"quantity"`
	CanceledAt           *time.Time `gorm:"type:timestamp;default:null" json:"canceled_at,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// DefaultSubscription is the synthesized record for users who never checked
// out. It is never persisted.
func DefaultSubscription(userID uint) *Subscription {
	return &Subscription{
		UserID:   userID,
		Plan:     PlanFree,
		Status:   SubscriptionStatusActive,
		Quantity: 1,
	}
}

// IsPaid reports whether the record carries paid-checkout history.
func (s *Subscription) IsPaid() bool {
	return s != nil && s.StripeSubscriptionID != nil && *s.StripeSubscriptionID != ""
}
