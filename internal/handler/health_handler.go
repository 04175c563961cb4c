package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sandwich-learn/sandwich-api/internal/config"
	"github.com/sandwich-learn/sandwich-api/internal/utils"
)

// DependencyPinger reports the reachability of one external dependency.
type DependencyPinger func() error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck returns a handler that reports application health plus
// the state of each registered dependency.
func HealthCheck(cfg config.Config, pingers map[string]DependencyPinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(pingers) > 0 {
			payload.Dependencies = make(map[string]string, len(pingers))
			for name, ping := range pingers {
				if err := ping(); err != nil {
					payload.Dependencies[name] = "unreachable"
					payload.Status = "degraded"
					continue
				}
				payload.Dependencies[name] = "ok"
			}
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
