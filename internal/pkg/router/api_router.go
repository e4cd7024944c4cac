package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/FelixDorner/LinkCard/app/controllers"
	"github.com/FelixDorner/LinkCard/internal/pkg/middleware"
	"github.com/FelixDorner/LinkCard/internal/pkg/statistics"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	api.Get("/stats", func(ctx *fiber.Ctx) error {
		stats := statistics.GetStatistics()
		return ctx.JSON(fiber.Map{
			"total_users": stats.TotalUsers,
			"total_cards": stats.TotalCards,
			"views_today": stats.TodayViews,
		})
	})

	v1 := api.Group("/v1")

	v1.Post("/auth/register", controllers.HandleAuthRegister)
	v1.Post("/auth/login", controllers.HandleAuthLogin)
	v1.Post("/auth/logout", controllers.HandleAuthLogout)

	v1.Get("/account", middleware.RequireAuth, controllers.HandleAccount)

	v1.Get("/cards", middleware.RequireAuth, controllers.HandleListCards)
	v1.Post("/cards", middleware.RequireAuth, controllers.HandleCreateCard)
	v1.Put("/cards/:uuid", middleware.RequireAuth, controllers.HandleUpdateCard)
	v1.Delete("/cards/:uuid", middleware.RequireAuth, controllers.HandleDeleteCard)
	v1.Get("/cards/:uuid/stats", middleware.RequireAuth, controllers.HandleCardStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
