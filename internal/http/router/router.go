package router

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"canister"
	"canister/internal/config"
	"canister/internal/http/handler"
	"canister/internal/http/middleware"
)

// Params collects everything the HTTP app needs from the container.
// Handlers contribute themselves through the http.routes group, so the
// router never has to know which endpoints exist.
type Params struct {
	canister.In

	Cfg        *config.AppConfig
	Log        zerolog.Logger
	Metrics    *middleware.HTTPMetrics
	Registrars []handler.Registrar `group:"http.routes"`
}

// New assembles the Fiber app: global middleware first, then every
// registrar's routes in registration order.
func New(p Params) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      p.Cfg.AppName,
		ErrorHandler: handler.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestLogger(p.Log))
	app.Use(p.Metrics.Handler())

	for _, reg := range p.Registrars {
		reg.Routes(app)
	}

	return app
}
