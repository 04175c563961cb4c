package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/utils"
)

// SessionHandler exposes the learner session lifecycle.
type SessionHandler struct {
	service service.SessionService
	logger  zerolog.Logger
}

// NewSessionHandler creates a session handler instance.
func NewSessionHandler(service service.SessionService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// RegisterPublic binds the unauthenticated session start endpoint.
func (h *SessionHandler) RegisterPublic(router fiber.Router) {
	router.Post("/session", h.start)
}

// Register binds the token-protected session endpoints.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("/session", h.inspect)
	router.Delete("/session", h.reset)
}

func (h *SessionHandler) start(c *fiber.Ctx) error {
	response, err := h.service.Start(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to start session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to start session")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session started", response)
}

func (h *SessionHandler) inspect(c *fiber.Ctx) error {
	status, err := h.service.Inspect(c.UserContext(), sessionIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to inspect session")
	}
	return utils.SendSuccess(c, "session status", status)
}

func (h *SessionHandler) reset(c *fiber.Ctx) error {
	if err := h.service.Reset(c.UserContext(), sessionIDFromContext(c)); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to reset session")
	}
	return utils.SendSuccess(c, "session reset", nil)
}
