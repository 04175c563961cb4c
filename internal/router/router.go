package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sandwich-learn/sandwich-api/internal/config"
	"github.com/sandwich-learn/sandwich-api/internal/handler"
	"github.com/sandwich-learn/sandwich-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler   *handler.SessionHandler
	ChatHandler      *handler.ChatHandler
	CourseHandler    *handler.CourseHandler
	QuizHandler      *handler.QuizHandler
	WellbeingHandler *handler.WellbeingHandler
	HealthPingers    map[string]handler.DependencyPinger
	AuthMiddleware   fiber.Handler
	RateLimit        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthPingers))

	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterPublic(api)
	}

	// Everything below requires the session token.
	auth := deps.AuthMiddleware
	if auth == nil {
		auth = func(c *fiber.Ctx) error { return c.Next() }
	}

	protected := api.Group("", auth)
	if deps.RateLimit != nil {
		protected.Use(deps.RateLimit)
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(protected)
	}

	if deps.ChatHandler != nil {
		deps.ChatHandler.Register(protected.Group("/chat"))
	}

	if deps.CourseHandler != nil {
		courseGroup := protected.Group("/course")
		deps.CourseHandler.Register(courseGroup)

		if deps.QuizHandler != nil {
			deps.QuizHandler.Register(courseGroup)
		}
	}

	if deps.WellbeingHandler != nil {
		deps.WellbeingHandler.Register(protected.Group("/wellbeing"))
	}
}
