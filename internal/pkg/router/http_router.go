package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/FelixDorner/LinkCard/app/controllers"
	"github.com/FelixDorner/LinkCard/internal/pkg/billing"
	"github.com/FelixDorner/LinkCard/internal/pkg/database"
	"github.com/FelixDorner/LinkCard/internal/pkg/env"
	"github.com/FelixDorner/LinkCard/internal/pkg/middleware"
	"github.com/FelixDorner/LinkCard/internal/pkg/session"
	"github.com/FelixDorner/LinkCard/internal/pkg/subscription"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// Initialize billing controller with repository, Stripe client and
	// the cached subscription read layer
	billingRepo := billing.NewRepository(database.GetDB())
	stripeClient := billing.NewClientFromEnv()
	controllers.InitializeBillingController(
		billingRepo,
		stripeClient,
		stripeClient,
		subscription.NewService(billingRepo),
	)

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)

	// Public card pages by slug
	app.Get("/c/:slug", controllers.HandlePublicCard)
}

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Post("/billing/checkout", middleware.RequireLogin, controllers.HandleBillingCheckout)
	group.Post("/billing/portal", middleware.RequireLogin, controllers.HandleBillingPortal)
	group.Post("/billing/cancel", middleware.RequireLogin, controllers.HandleBillingCancel)
	group.Post("/billing/resync", middleware.RequireLogin, controllers.HandleBillingResync)
}
