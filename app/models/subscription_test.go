package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSubscription(t *testing.T) {
	sub := DefaultSubscription(42)

	assert.Equal(t, uint(42), sub.UserID)
	assert.Equal(t, PlanFree, sub.Plan)
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.Equal(t, int64(1), sub.Quantity)
	assert.Zero(t, sub.ID)
	assert.Nil(t, sub.StripeSubscriptionID)
}

func TestSubscriptionIsPaid(t *testing.T) {
	var nilSub *Subscription
	assert.False(t, nilSub.IsPaid())
	assert.False(t, DefaultSubscription(1).IsPaid())

	empty := ""
	assert.False(t, (&Subscription{StripeSubscriptionID: &empty}).IsPaid())

	subID := "sub_123"
	assert.True(t, (&Subscription{StripeSubscriptionID: &subID}).IsPaid())
}
