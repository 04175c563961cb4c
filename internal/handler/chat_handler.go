package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/middleware"
	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/utils"
)

// ChatHandler wires the onboarding chat endpoints including the
// websocket upgrade.
type ChatHandler struct {
	service service.ChatService
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler instance.
func NewChatHandler(service service.ChatService, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger.With().Str("component", "chat_handler").Logger(),
	}
}

// Register binds chat routes under the provided router group.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/step", h.step)
	router.Post("/reset", h.reset)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *ChatHandler) step(c *fiber.Ctx) error {
	var req dto.ChatStepRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	reply, err := h.service.Step(c.UserContext(), sessionIDFromContext(c), req.Message)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "chat step failed")
	}
	return utils.SendSuccess(c, "chat step completed", reply)
}

func (h *ChatHandler) reset(c *fiber.Ctx) error {
	if err := h.service.Reset(c.UserContext(), sessionIDFromContext(c)); err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "chat reset failed")
	}
	return utils.SendSuccess(c, "conversation reset", nil)
}

func (h *ChatHandler) handleConnection(conn *websocket.Conn) {
	sessionID, _ := conn.Locals("session_id").(string)
	if sessionID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "session missing"))
		_ = conn.Close()
		return
	}

	correlation, _ := conn.Locals("correlation_id").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	h.logger.Info().Str("session_id", sessionID).Msg("chat websocket connected")
	h.service.ServeConnection(conn, service.ChatConnectionOptions{
		SessionID:     sessionID,
		CorrelationID: correlation,
		Context:       baseCtx,
	})
	h.logger.Info().Str("session_id", sessionID).Msg("chat websocket disconnected")
}
