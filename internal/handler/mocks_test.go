package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/service"
)

const testSessionID = "11111111-2222-3333-4444-555555555555"

// newTestApp builds a fiber app with the session id local pre-set, the
// way the auth middleware does in production.
func newTestApp(register func(router fiber.Router)) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("session_id", testSessionID)
		return c.Next()
	})
	register(app.Group("/api/v1"))
	return app
}

// envelope mirrors utils.APIResponse with the data left raw so each
// test can decode its own payload type.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func decodeResponse(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", string(body))
	return env
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type mockCourseService struct {
	initialize     func(sessionID string, req dto.CourseInitializeRequest) (dto.CourseResponse, error)
	get            func(sessionID string) (dto.CourseResponse, error)
	weekContent    func(sessionID string, week int) (course.WeekContent, error)
	lessonContent  func(sessionID string, week int, lessonID string) (course.LessonContent, error)
	completeLesson func(sessionID string, week int, lessonID string) (dto.LessonCompleteResponse, error)
	navigate       func(sessionID, direction string) (dto.NavigateResponse, error)
	section        func(sessionID string) (dto.SectionResponse, error)
	progress       func(sessionID string) (dto.ProgressResponse, error)
	summary        func(sessionID string) (dto.CourseSummaryResponse, error)
}

func (m *mockCourseService) Initialize(_ context.Context, sessionID string, req dto.CourseInitializeRequest) (dto.CourseResponse, error) {
	return m.initialize(sessionID, req)
}

func (m *mockCourseService) Get(_ context.Context, sessionID string) (dto.CourseResponse, error) {
	return m.get(sessionID)
}

func (m *mockCourseService) WeekContent(_ context.Context, sessionID string, week int) (course.WeekContent, error) {
	return m.weekContent(sessionID, week)
}

func (m *mockCourseService) LessonContent(_ context.Context, sessionID string, week int, lessonID string) (course.LessonContent, error) {
	return m.lessonContent(sessionID, week, lessonID)
}

func (m *mockCourseService) CompleteLesson(_ context.Context, sessionID string, week int, lessonID string) (dto.LessonCompleteResponse, error) {
	return m.completeLesson(sessionID, week, lessonID)
}

func (m *mockCourseService) Navigate(_ context.Context, sessionID, direction string) (dto.NavigateResponse, error) {
	return m.navigate(sessionID, direction)
}

func (m *mockCourseService) Section(_ context.Context, sessionID string) (dto.SectionResponse, error) {
	return m.section(sessionID)
}

func (m *mockCourseService) Progress(_ context.Context, sessionID string) (dto.ProgressResponse, error) {
	return m.progress(sessionID)
}

func (m *mockCourseService) Summary(_ context.Context, sessionID string) (dto.CourseSummaryResponse, error) {
	return m.summary(sessionID)
}

type mockTipsService struct {
	studyTips func(sessionID string, week int) (dto.StudyTipsResponse, error)
	tutorHelp func(sessionID string, week int, question string) (dto.TutorHelpResponse, error)
}

func (m *mockTipsService) StudyTips(_ context.Context, sessionID string, week int) (dto.StudyTipsResponse, error) {
	return m.studyTips(sessionID, week)
}

func (m *mockTipsService) TutorHelp(_ context.Context, sessionID string, week int, question string) (dto.TutorHelpResponse, error) {
	return m.tutorHelp(sessionID, week, question)
}

type mockQuizService struct {
	start  func(sessionID string, week int) (dto.QuizStartResponse, error)
	submit func(sessionID string, week int, req dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error)
	result func(sessionID string, week int) (course.QuizResult, error)
}

func (m *mockQuizService) Start(_ context.Context, sessionID string, week int) (dto.QuizStartResponse, error) {
	return m.start(sessionID, week)
}

func (m *mockQuizService) Submit(_ context.Context, sessionID string, week int, req dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error) {
	return m.submit(sessionID, week, req)
}

func (m *mockQuizService) Result(_ context.Context, sessionID string, week int) (course.QuizResult, error) {
	return m.result(sessionID, week)
}

type mockSessionService struct {
	start   func() (dto.SessionStartResponse, error)
	inspect func(sessionID string) (dto.SessionStatusResponse, error)
	reset   func(sessionID string) error
}

func (m *mockSessionService) Start(_ context.Context) (dto.SessionStartResponse, error) {
	return m.start()
}

func (m *mockSessionService) Inspect(_ context.Context, sessionID string) (dto.SessionStatusResponse, error) {
	return m.inspect(sessionID)
}

func (m *mockSessionService) Reset(_ context.Context, sessionID string) error {
	return m.reset(sessionID)
}

type mockChatService struct {
	step  func(sessionID, message string) (dto.ChatStepResponse, error)
	reset func(sessionID string) error
}

func (m *mockChatService) Step(_ context.Context, sessionID, message string) (dto.ChatStepResponse, error) {
	return m.step(sessionID, message)
}

func (m *mockChatService) Reset(_ context.Context, sessionID string) error {
	return m.reset(sessionID)
}

func (m *mockChatService) ServeConnection(conn *websocket.Conn, _ service.ChatConnectionOptions) {
	_ = conn.Close()
}

type mockWellbeingService struct {
	check      func(sessionID string, req dto.WellbeingCheckRequest) (dto.WellbeingCheckResponse, error)
	checkpoint func(sessionID string) (dto.WellbeingCheckpointResponse, error)
	dismiss    func(sessionID string) error
	bump       func(sessionID string) (bool, error)
}

func (m *mockWellbeingService) Check(_ context.Context, sessionID string, req dto.WellbeingCheckRequest) (dto.WellbeingCheckResponse, error) {
	return m.check(sessionID, req)
}

func (m *mockWellbeingService) CheckpointStatus(_ context.Context, sessionID string) (dto.WellbeingCheckpointResponse, error) {
	return m.checkpoint(sessionID)
}

func (m *mockWellbeingService) DismissCheckpoint(_ context.Context, sessionID string) error {
	return m.dismiss(sessionID)
}

func (m *mockWellbeingService) Bump(_ context.Context, sessionID string) (bool, error) {
	return m.bump(sessionID)
}
