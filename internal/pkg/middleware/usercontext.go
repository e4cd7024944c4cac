package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FelixDorner/LinkCard/internal/pkg/billing"
	"github.com/FelixDorner/LinkCard/internal/pkg/database"
	"github.com/FelixDorner/LinkCard/internal/pkg/session"
	"github.com/FelixDorner/LinkCard/internal/pkg/subscription"
	"github.com/FelixDorner/LinkCard/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// This centralizes session handling so controllers read one struct instead of
// poking at session keys.
func UserContextMiddleware(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		return c.Next()
	}

	userID := sess.Get(usercontext.KeyUserID)
	if userID == nil {
		// Anonymous user - no session data
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			IsLoggedIn: false,
			IsAdmin:    false,
		})
		return c.Next()
	}

	username := session.GetSessionValue(c, usercontext.KeyUsername)
	isAdmin, _ := sess.Get(usercontext.KeyIsAdmin).(bool)

	// Plan comes from the cached read layer on every request, so after a
	// webhook mutation the gating plan is stale for at most the cache TTL,
	// never the session lifetime.
	plan := "free"
	if db := database.GetDB(); db != nil {
		svc := subscription.NewService(billing.NewRepository(db))
		if sub, err := svc.Resolve(userID.(uint)); err == nil && sub != nil {
			plan = sub.Plan
		}
	}

	c.Locals("USER_CONTEXT", usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		IsLoggedIn: true,
		IsAdmin:    isAdmin,
		Plan:       plan,
	})
	return c.Next()
}
