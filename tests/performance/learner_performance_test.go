package performance_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/handler"
	"github.com/sandwich-learn/sandwich-api/internal/middleware"
	"github.com/sandwich-learn/sandwich-api/internal/service"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

func TestChatWebsocketP95Under250ms(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	chatHandler := handler.NewChatHandler(&stubChatService{}, zerolog.Nop())

	chatGroup := app.Group("/api/v1/chat", func(c *fiber.Ctx) error {
		c.Locals("session_id", "perf-session")
		return c.Next()
	})
	chatHandler.Register(chatGroup)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v1/chat/ws"
	clients := 300
	durations := make([]time.Duration, 0, clients)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	for i := 0; i < clients; i++ {
		start := time.Now()
		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		_, _, _ = conn.ReadMessage()
		_ = conn.Close()

		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 250*time.Millisecond {
		t.Fatalf("expected websocket P95 <= 250ms, got %s", p95)
	}
}

func TestCourseProgressP95Under150ms(t *testing.T) {
	logger := zerolog.Nop()
	store := session.NewMemoryStore()
	seedProgress(t, store, "perf-session")

	courseService := service.NewCourseService(
		store,
		unreachableTutor{},
		nil,
		service.NewProgressPublisher(nil, "", logger),
		validator.New(validator.WithRequiredStructEnabled()),
		40,
		logger,
	)
	courseHandler := handler.NewCourseHandler(courseService, nil, logger)

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	courseGroup := app.Group("/api/v1/course", func(c *fiber.Ctx) error {
		c.Locals("session_id", "perf-session")
		return c.Next()
	})
	courseHandler.Register(courseGroup)

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	client := &http.Client{Timeout: 5 * time.Second}
	requests := 300
	durations := make([]time.Duration, 0, requests)

	for i := 0; i < requests; i++ {
		start := time.Now()
		resp, err := client.Get(baseURL + "/api/v1/course/progress")
		if err != nil {
			t.Fatalf("progress request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}

		var payload struct {
			Data dto.ProgressResponse `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode progress: %v", err)
		}
		resp.Body.Close()

		if payload.Data.ProgressPct <= 0 {
			t.Fatalf("expected non-zero progress, got %d", payload.Data.ProgressPct)
		}
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 150*time.Millisecond {
		t.Fatalf("expected progress P95 <= 150ms, got %s", p95)
	}
}

func seedProgress(t *testing.T, store session.Store, sessionID string) {
	t.Helper()
	ctx := context.Background()

	data := course.CourseData{
		Title:      "Intro to Nutrition",
		TotalWeeks: 2,
		Weeks: []course.WeekSummary{
			{
				WeekNumber: 1,
				Title:      "Nutrition Basics",
				LessonTopics: []course.LessonTopic{
					{ID: "macro-basics", Title: "Macronutrients"},
					{ID: "micro-basics", Title: "Micronutrients"},
				},
				Resources: []string{"https://example.test/guide"},
			},
			{
				WeekNumber: 2,
				Title:      "Meal Planning",
				LessonTopics: []course.LessonTopic{
					{ID: "meal-planning", Title: "Planning a Week of Meals"},
				},
			},
		},
	}

	if err := store.Set(ctx, sessionID, session.KeyCourseData, data); err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}
	completed := map[string]bool{
		course.GlobalLessonID(1, "macro-basics"): true,
		course.GlobalLessonID(1, "micro-basics"): true,
	}
	if err := store.Set(ctx, sessionID, session.KeyCompletedLessons, completed); err != nil {
		t.Fatalf("failed to seed lessons: %v", err)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

type stubChatService struct{}

func (s *stubChatService) Step(context.Context, string, string) (dto.ChatStepResponse, error) {
	return dto.ChatStepResponse{State: "welcome", Bot: "hello"}, nil
}

func (s *stubChatService) Reset(context.Context, string) error { return nil }

func (s *stubChatService) ServeConnection(conn *fiberws.Conn, _ service.ChatConnectionOptions) {
	_ = conn.WriteMessage(fiberws.TextMessage, []byte(`{"state":"welcome","bot":"hello"}`))
	_ = conn.Close()
}

// unreachableTutor fails every call: the measured paths must be served
// entirely from the session store.
type unreachableTutor struct{}

func (unreachableTutor) ChatbotStep(context.Context, upstream.ChatbotStepRequest) (upstream.ChatbotStepResponse, error) {
	return upstream.ChatbotStepResponse{}, errUnreachable
}

func (unreachableTutor) InitializeCourse(context.Context, upstream.InitializeCourseRequest) (course.CourseData, error) {
	return course.CourseData{}, errUnreachable
}

func (unreachableTutor) GetWeekContent(context.Context, upstream.WeekContentRequest) (course.WeekContent, error) {
	return course.WeekContent{}, errUnreachable
}

func (unreachableTutor) GetLessonContent(context.Context, upstream.LessonContentRequest) (course.LessonContent, error) {
	return course.LessonContent{}, errUnreachable
}

func (unreachableTutor) CreateQuiz(context.Context, upstream.CreateQuizRequest) (course.Quiz, error) {
	return course.Quiz{}, errUnreachable
}

func (unreachableTutor) SubmitQuiz(context.Context, upstream.SubmitQuizRequest) (upstream.SubmitQuizResponse, error) {
	return upstream.SubmitQuizResponse{}, errUnreachable
}

func (unreachableTutor) StudyTips(context.Context, upstream.StudyTipsRequest) ([]string, error) {
	return nil, errUnreachable
}

func (unreachableTutor) TutorHelp(context.Context, upstream.TutorHelpRequest) (string, error) {
	return "", errUnreachable
}

func (unreachableTutor) WellbeingCheck(context.Context, upstream.WellbeingCheckRequest) (upstream.WellbeingCheckResult, error) {
	return upstream.WellbeingCheckResult{}, errUnreachable
}

var errUnreachable = errors.New("tutor backend must not be called")
