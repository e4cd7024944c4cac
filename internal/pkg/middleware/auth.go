package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FelixDorner/LinkCard/internal/pkg/constants"
	"github.com/FelixDorner/LinkCard/internal/pkg/usercontext"
)

// RequireAuth rejects anonymous callers on JSON API routes.
func RequireAuth(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "authentication required",
		})
	}
	return c.Next()
}

// RequireLogin redirects anonymous browsers to the login page.
func RequireLogin(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Redirect(constants.LoginRoute, fiber.StatusSeeOther)
	}
	return c.Next()
}
