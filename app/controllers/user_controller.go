package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FelixDorner/LinkCard/app/repository"
	"github.com/FelixDorner/LinkCard/internal/pkg/entitlements"
	"github.com/FelixDorner/LinkCard/internal/pkg/subscription"
	"github.com/FelixDorner/LinkCard/internal/pkg/usercontext"
	"github.com/FelixDorner/LinkCard/internal/pkg/utils"
)

// HandleAccount returns the account view: profile basics plus the resolved
// subscription state the billing pages render from.
func HandleAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil || user == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "query_failed"})
	}

	sub, err := subscriptionSvc.Resolve(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": string(subscription.CodeOf(err)),
		})
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":         user.ID,
			"username":   user.Name,
			"email":      user.Email,
			"avatar_url": utils.GetGravatarURL(user.Email, 200),
		},
		"subscription": fiber.Map{
			"plan":           sub.Plan,
			"status":         sub.Status,
			"seats":          entitlements.SeatCount(sub),
			"renews_at":      formatTimePtr(sub.CurrentPeriodEnd),
			"canceled_at":    formatTimePtr(sub.CanceledAt),
			"premium_access": entitlements.HasPremiumAccess(sub),
		},
	})
}
