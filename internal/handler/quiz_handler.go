package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/utils"
)

// QuizHandler exposes the timed quiz lifecycle for one week.
type QuizHandler struct {
	service service.QuizService
	logger  zerolog.Logger
}

// NewQuizHandler creates a quiz handler instance.
func NewQuizHandler(service service.QuizService, logger zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		service: service,
		logger:  logger.With().Str("component", "quiz_handler").Logger(),
	}
}

// Register binds the quiz routes under the course router group.
func (h *QuizHandler) Register(router fiber.Router) {
	router.Post("/weeks/:week/quiz", h.start)
	router.Post("/weeks/:week/quiz/submit", h.submit)
	router.Get("/weeks/:week/quiz/result", h.result)
}

func (h *QuizHandler) start(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Start(c.UserContext(), sessionIDFromContext(c), week)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to start quiz")
	}
	return utils.SendSuccess(c, "quiz ready", response)
}

func (h *QuizHandler) submit(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.QuizSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Answers) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "answers are required")
	}

	response, err := h.service.Submit(c.UserContext(), sessionIDFromContext(c), week, req)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to submit quiz")
	}
	return utils.SendSuccess(c, "quiz graded", response)
}

func (h *QuizHandler) result(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Result(c.UserContext(), sessionIDFromContext(c), week)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load quiz result")
	}
	return utils.SendSuccess(c, "quiz result", result)
}
