package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/FelixDorner/LinkCard/app/repository"
	"github.com/FelixDorner/LinkCard/internal/pkg/cache"
	"github.com/FelixDorner/LinkCard/internal/pkg/database"
	"github.com/FelixDorner/LinkCard/internal/pkg/env"
	"github.com/FelixDorner/LinkCard/internal/pkg/jobqueue"
	"github.com/FelixDorner/LinkCard/internal/pkg/logging"
	"github.com/FelixDorner/LinkCard/internal/pkg/router"
)

func main() {
	app := NewApplication()

	jobqueue.GetManager().Start()
	defer jobqueue.GetManager().Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	logging.Setup()
	database.SetupDatabase()
	cache.SetupCache()

	repository.SetGlobalFactory(repository.NewFactory(database.GetDB()))

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "LinkCard",
		BodyLimit: 1048576, // 1 MiB, JSON API only
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
