package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/utils"
)

// CourseHandler exposes course initialization, content, navigation and
// progress endpoints.
type CourseHandler struct {
	service service.CourseService
	tips    service.TipsService
	logger  zerolog.Logger
}

// NewCourseHandler creates a course handler instance.
func NewCourseHandler(service service.CourseService, tips service.TipsService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service: service,
		tips:    tips,
		logger:  logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register binds the course routes under the provided router group.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Post("/", h.initialize)
	router.Get("/", h.get)
	router.Get("/summary", h.summary)
	router.Get("/progress", h.progress)
	router.Get("/section", h.section)
	router.Post("/navigate", h.navigate)
	router.Get("/weeks/:week", h.weekContent)
	router.Get("/weeks/:week/lessons/:lesson", h.lessonContent)
	router.Post("/weeks/:week/lessons/:lesson/complete", h.completeLesson)
	router.Get("/weeks/:week/study-tips", h.studyTips)
	router.Post("/weeks/:week/help", h.tutorHelp)
}

func (h *CourseHandler) initialize(c *fiber.Ctx) error {
	var req dto.CourseInitializeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Initialize(c.UserContext(), sessionIDFromContext(c), req)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to initialize course")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "course initialized", response)
}

func (h *CourseHandler) get(c *fiber.Ctx) error {
	response, err := h.service.Get(c.UserContext(), sessionIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load course")
	}
	return utils.SendSuccess(c, "course retrieved", response)
}

func (h *CourseHandler) summary(c *fiber.Ctx) error {
	response, err := h.service.Summary(c.UserContext(), sessionIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to build summary")
	}
	return utils.SendSuccess(c, "course summary", response)
}

func (h *CourseHandler) progress(c *fiber.Ctx) error {
	response, err := h.service.Progress(c.UserContext(), sessionIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to compute progress")
	}
	return utils.SendSuccess(c, "progress computed", response)
}

func (h *CourseHandler) section(c *fiber.Ctx) error {
	response, err := h.service.Section(c.UserContext(), sessionIDFromContext(c))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load section")
	}
	return utils.SendSuccess(c, "current section", response)
}

func (h *CourseHandler) navigate(c *fiber.Ctx) error {
	var req dto.NavigateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Direction != "next" && req.Direction != "previous" {
		return utils.SendError(c, fiber.StatusBadRequest, "direction must be next or previous")
	}

	response, err := h.service.Navigate(c.UserContext(), sessionIDFromContext(c), req.Direction)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "navigation failed")
	}
	return utils.SendSuccess(c, "navigated", response)
}

func (h *CourseHandler) weekContent(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	content, err := h.service.WeekContent(c.UserContext(), sessionIDFromContext(c), week)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load week content")
	}
	return utils.SendSuccess(c, "week content", content)
}

func (h *CourseHandler) lessonContent(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	lesson, err := h.service.LessonContent(c.UserContext(), sessionIDFromContext(c), week, c.Params("lesson"))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load lesson content")
	}
	return utils.SendSuccess(c, "lesson content", lesson)
}

func (h *CourseHandler) completeLesson(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.CompleteLesson(c.UserContext(), sessionIDFromContext(c), week, c.Params("lesson"))
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to complete lesson")
	}
	return utils.SendSuccess(c, "lesson completed", response)
}

func (h *CourseHandler) studyTips(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.tips.StudyTips(c.UserContext(), sessionIDFromContext(c), week)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "failed to load study tips")
	}
	return utils.SendSuccess(c, "study tips", response)
}

func (h *CourseHandler) tutorHelp(c *fiber.Ctx) error {
	week, err := parseWeekParam(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.TutorHelpRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Question) < 3 {
		return utils.SendError(c, fiber.StatusBadRequest, "question is too short")
	}

	response, err := h.tips.TutorHelp(c.UserContext(), sessionIDFromContext(c), week, req.Question)
	if err != nil {
		return sendServiceError(c, requestLogger(h.logger, c), err, "tutoring help failed")
	}
	return utils.SendSuccess(c, "tutor help", response)
}
