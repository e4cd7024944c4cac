package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FelixDorner/LinkCard/app/models"
)

func TestHasPremiumAccess(t *testing.T) {
	tests := []struct {
		name string
		sub  *models.Subscription
		want bool
	}{
		{"nil record", nil, false},
		{"free plan", &models.Subscription{Plan: models.PlanFree, Status: models.SubscriptionStatusActive}, false},
		{"active premium", &models.Subscription{Plan: models.PlanPremium, Status: models.SubscriptionStatusActive}, true},
		{"past_due premium keeps access", &models.Subscription{Plan: models.PlanPremium, Status: models.SubscriptionStatusPastDue}, true},
		{"canceled premium", &models.Subscription{Plan: models.PlanPremium, Status: models.SubscriptionStatusCanceled}, false},
		{"active team", &models.Subscription{Plan: models.PlanTeam, Status: models.SubscriptionStatusActive}, true},
		{"canceled team", &models.Subscription{Plan: models.PlanTeam, Status: models.SubscriptionStatusCanceled}, false},
		{"unknown plan treated as free", &models.Subscription{Plan: "gold", Status: models.SubscriptionStatusActive}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPremiumAccess(tt.sub))
		})
	}
}

func TestNormalizePlan(t *testing.T) {
	assert.Equal(t, PlanPremium, NormalizePlan("premium"))
	assert.Equal(t, PlanPremium, NormalizePlan(" Premium "))
	assert.Equal(t, PlanTeam, NormalizePlan("TEAM"))
	assert.Equal(t, PlanFree, NormalizePlan("free"))
	assert.Equal(t, PlanFree, NormalizePlan(""))
	assert.Equal(t, PlanFree, NormalizePlan("gold"))
}

func TestMaxCards(t *testing.T) {
	assert.Equal(t, 1, MaxCards(PlanFree))
	assert.Equal(t, 10, MaxCards(PlanPremium))
	assert.Equal(t, 50, MaxCards(PlanTeam))
}

func TestSeatCount(t *testing.T) {
	assert.Equal(t, int64(1), SeatCount(nil))
	assert.Equal(t, int64(1), SeatCount(&models.Subscription{Plan: models.PlanPremium, Quantity: 5}))
	assert.Equal(t, int64(5), SeatCount(&models.Subscription{Plan: models.PlanTeam, Quantity: 5}))
	assert.Equal(t, int64(1), SeatCount(&models.Subscription{Plan: models.PlanTeam, Quantity: 0}))
}
