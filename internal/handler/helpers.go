package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/middleware"
	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
	"github.com/sandwich-learn/sandwich-api/internal/utils"
)

func sessionIDFromContext(c *fiber.Ctx) string {
	if v := c.Locals("session_id"); v != nil {
		if id, ok := v.(string); ok {
			return strings.TrimSpace(id)
		}
	}
	return ""
}

func parseWeekParam(c *fiber.Ctx) (int, error) {
	week, err := strconv.Atoi(strings.TrimSpace(c.Params("week")))
	if err != nil || week < 1 {
		return 0, errors.New("invalid week number")
	}
	return week, nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// sendServiceError maps service-layer failures onto the API's error
// vocabulary: typed sentinels become their HTTP codes, upstream
// failures become 502 so the client knows a manual retry may help.
func sendServiceError(c *fiber.Ctx, logger *zerolog.Logger, err error, fallback string) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCourseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "no course found for this session")
	case errors.Is(err, course.ErrWeekNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "week not found in course")
	case errors.Is(err, service.ErrLessonNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "lesson not found in week")
	case errors.Is(err, course.ErrWeekLocked):
		return utils.SendError(c, fiber.StatusForbidden, "week is locked")
	case errors.Is(err, service.ErrQuizSessionMissing):
		return utils.SendError(c, fiber.StatusConflict, "no active quiz session for this week")
	case errors.Is(err, service.ErrQuizResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "no quiz result stored for this week")
	case errors.Is(err, course.ErrUnknownSection):
		return utils.SendError(c, fiber.StatusConflict, "navigation cursor is in an unknown state")
	case errors.Is(err, service.ErrQuizNotGraded):
		logger.Error().Err(err).Msg("quiz submission was not graded")
		return utils.SendError(c, fiber.StatusBadGateway, "quiz grading failed, please retry")
	}

	var upstreamErr *upstream.Error
	if errors.As(err, &upstreamErr) {
		logger.Error().Err(err).Msg("tutor backend call failed")
		return utils.SendError(c, fiber.StatusBadGateway, "tutor backend unavailable, please retry")
	}

	logger.Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}
