package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/utils"
)

// WellbeingHandler exposes the check-in endpoints and the checkpoint
// prompt cadence.
type WellbeingHandler struct {
	service service.WellbeingService
	logger  zerolog.Logger
}

// NewWellbeingHandler creates a wellbeing handler instance.
func NewWellbeingHandler(service service.WellbeingService, logger zerolog.Logger) *WellbeingHandler {
	return &WellbeingHandler{
		service: service,
		logger:  logger.With().Str("component", "wellbeing_handler").Logger(),
	}
}

// Register binds the wellbeing routes under the provided router group.
func (h *WellbeingHandler) Register(router fiber.Router) {
	router.Post("/check", h.check)
	router.Get("/checkpoint", h.checkpoint)
	router.Post("/checkpoint/dismiss", h.dismiss)
}

func (h *WellbeingHandler) check(c *fiber.Ctx) error {
	var req dto.WellbeingCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Check(c.UserContext(), sessionIDFromContext(c), req)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "wellbeing check failed")
	}
	return utils.SendSuccess(c, "check-in recorded", response)
}

func (h *WellbeingHandler) checkpoint(c *fiber.Ctx) error {
	response, err := h.service.CheckpointStatus(c.UserContext(), sessionIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load checkpoint status")
	}
	return utils.SendSuccess(c, "checkpoint status", response)
}

func (h *WellbeingHandler) dismiss(c *fiber.Ctx) error {
	if err := h.service.DismissCheckpoint(c.UserContext(), sessionIDFromContext(c)); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to dismiss checkpoint")
	}
	return utils.SendSuccess(c, "checkpoint dismissed", nil)
}
