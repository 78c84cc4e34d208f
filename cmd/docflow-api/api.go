// Package main provides the docflow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/docflow/pkg/cmd"
	"github.com/dukex/docflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger   *slog.Logger
	stack    *cmd.Stack
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	stack *cmd.Stack,
) *API {
	return &API{
		logger:   logger,
		stack:    stack,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.stack.Router, a.stack.Registry, a.stack.Catalog, a.stack.Health, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("docflow API")
	})

	app.Get("/metrics", adaptor.HTTPHandler(a.stack.Metrics.Handler()))

	v1 := app.Group("/v1")
	v1.Post("/chat", handlers.Chat)
	v1.Post("/resume/:session_id", handlers.Resume)
	v1.Get("/status/:session_id", handlers.GetSessionStatus)
	v1.Get("/health", handlers.HealthCheck)
	v1.Get("/agents", handlers.GetAgents)
	v1.Get("/templates", handlers.GetTemplates)

	s := v1.Group("/sessions")
	s.Get("/", handlers.ListSessions)
	s.Delete("/:session_id", handlers.DeleteSession)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
