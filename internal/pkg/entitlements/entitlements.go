package entitlements

import (
	"strings"

	"github.com/FelixDorner/LinkCard/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanTeam    Plan = "team"
)

// NormalizePlan maps arbitrary input to a known plan, defaulting to free.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPremium):
		return PlanPremium
	case string(PlanTeam):
		return PlanTeam
	default:
		return PlanFree
	}
}

// HasPremiumAccess is the plan gating predicate. A nil record and the free
// plan are non-premium; a canceled record is non-premium regardless of plan.
// past_due keeps access while dunning runs its course.
func HasPremiumAccess(sub *models.Subscription) bool {
	if sub == nil {
		return false
	}
	if NormalizePlan(sub.Plan) == PlanFree {
		return false
	}
	switch sub.Status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// MaxCards returns how many card profiles a plan may create.
func MaxCards(plan Plan) int {
	switch plan {
	case PlanTeam:
		return 50
	case PlanPremium:
		return 10
	default:
		return 1
	}
}

// SeatCount returns the effective seat count for a record. Quantity is only
// meaningful on the team plan; everything else is a single seat.
func SeatCount(sub *models.Subscription) int64 {
	if sub == nil || NormalizePlan(sub.Plan) != PlanTeam {
		return 1
	}
	if sub.Quantity < 1 {
		return 1
	}
	return sub.Quantity
}
