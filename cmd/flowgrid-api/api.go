// Package main provides the Flowgrid API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/execution"
	"github.com/flowgrid/flowgrid/pkg/monitor"
	"github.com/flowgrid/flowgrid/pkg/persistence"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/flowgrid/flowgrid/pkg/services"
	"github.com/flowgrid/flowgrid/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    *eventbus.WatermillEventBus
	validate    *validator.Validate

	// externalWorkers routes test runs through the bus to flowgrid-worker
	// processes instead of executing in-process.
	externalWorkers bool
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus *eventbus.WatermillEventBus,
	externalWorkers bool,
) *API {
	return &API{
		logger:          logger,
		persistence:     persistence,
		registry:        registry,
		eventBus:        eventBus,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		externalWorkers: externalWorkers,
	}
}

func (a *API) App() *fiber.App {
	draftService := services.NewDraft(a.persistence, a.registry)

	var runner execution.Runner
	if a.externalWorkers {
		runner = execution.NewBusRunner(a.eventBus)
	} else {
		runner = execution.NewLocalRunner(a.logger, a.eventBus)
	}

	stream := a.eventBus.Stream()
	mon := monitor.NewMonitor(a.logger, runner, stream)

	handlers := web.NewAPIHandlers(a.logger, draftService, mon, stream, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowgrid API")
	})

	handlers.RegisterRoutes(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
