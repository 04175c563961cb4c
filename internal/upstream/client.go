// Package upstream is the single HTTP boundary to the external tutor
// backend. All AI computation lives behind it; the rest of the service
// only sees the typed, validated results it returns.
package upstream

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/sandwich-learn/sandwich-api/internal/course"
)

const maxResponseBytes = 8 << 20

var (
	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sandwich",
		Subsystem: "upstream",
		Name:      "request_duration_seconds",
		Help:      "Duration of tutor backend requests",
	}, []string{"call"})

	upstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sandwich",
		Subsystem: "upstream",
		Name:      "failures_total",
		Help:      "Number of failed tutor backend requests",
	}, []string{"call"})

	upstreamDeduped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sandwich",
		Subsystem: "upstream",
		Name:      "deduplicated_total",
		Help:      "Number of requests collapsed into an identical in-flight call",
	}, []string{"call"})
)

// Config defines the tutor backend connection options.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	StudyTipsTimeout time.Duration
	RetryMax         int
	Logger           zerolog.Logger
}

// Client talks to the tutor backend. Identical in-flight content calls
// collapse into one upstream request; idempotent fetches retry with
// backoff on 429 and 5xx answers.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	tipsTimeout time.Duration
	retryMax    int
	retryDelay  time.Duration
	tracer      trace.Tracer
	logger      zerolog.Logger
	group       singleflight.Group
	schemas     *schemaSet
}

// NewClient builds a tutor backend client from the configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.StudyTipsTimeout <= 0 {
		cfg.StudyTipsTimeout = 15 * time.Second
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{},
		timeout:     cfg.Timeout,
		tipsTimeout: cfg.StudyTipsTimeout,
		retryMax:    cfg.RetryMax,
		retryDelay:  500 * time.Millisecond,
		tracer:      otel.Tracer("github.com/sandwich-learn/sandwich-api/internal/upstream"),
		logger:      cfg.Logger.With().Str("component", "upstream_client").Logger(),
		schemas:     schemas,
	}, nil
}

type callOptions struct {
	name    string
	timeout time.Duration
	retry   bool
	dedupe  bool
}

func (c *Client) call(ctx context.Context, endpoint string, payload interface{}, opts callOptions) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if !opts.dedupe {
		return c.invoke(ctx, endpoint, body, opts)
	}

	sum := sha256.Sum256(body)
	key := endpoint + ":" + hex.EncodeToString(sum[:])
	value, err, shared := c.group.Do(key, func() (interface{}, error) {
		return c.invoke(ctx, endpoint, body, opts)
	})
	if shared {
		upstreamDeduped.WithLabelValues(opts.name).Inc()
	}
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

func (c *Client) invoke(parent context.Context, endpoint string, body []byte, opts callOptions) ([]byte, error) {
	ctx, span := c.tracer.Start(parent, "tutor."+opts.name, trace.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
	defer span.End()

	start := time.Now()
	raw, err := c.send(ctx, endpoint, body, opts)
	upstreamDuration.WithLabelValues(opts.name).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamFailures.WithLabelValues(opts.name).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, endpoint string, body []byte, opts callOptions) ([]byte, error) {
	attempts := 1
	if opts.retry {
		attempts = c.retryMax + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			c.logger.Warn().Err(lastErr).Str("endpoint", endpoint).Int("attempt", attempt).Msg("retrying tutor backend call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.retryDelay):
			}
		}

		raw, err := c.httpOnce(ctx, endpoint, body, opts.timeout)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		var upstreamErr *Error
		if errors.As(err, &upstreamErr) && !upstreamErr.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) httpOnce(parent context.Context, endpoint string, body []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tutor backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}

	message := strings.TrimSpace(string(raw))
	if len(message) > 200 {
		message = message[:200]
	}
	if message == "" {
		message = "no response body"
	}
	return message
}

// ChatbotStep advances the onboarding conversation by one turn.
func (c *Client) ChatbotStep(ctx context.Context, req ChatbotStepRequest) (ChatbotStepResponse, error) {
	raw, err := c.call(ctx, endpointChatbotStep, req, callOptions{name: "chatbot_step"})
	if err != nil {
		return ChatbotStepResponse{}, err
	}

	var resp ChatbotStepResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ChatbotStepResponse{}, fmt.Errorf("decode chatbot step: %w", err)
	}
	return resp, nil
}

// InitializeCourse generates the course from the accepted syllabus.
// The returned course data is schema-validated and normalized before
// anything downstream sees it.
func (c *Client) InitializeCourse(ctx context.Context, req InitializeCourseRequest) (course.CourseData, error) {
	raw, err := c.call(ctx, endpointInitializeCourse, req, callOptions{name: "initialize_course", dedupe: true})
	if err != nil {
		return course.CourseData{}, err
	}

	var envelope struct {
		CourseData json.RawMessage `json:"course_data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return course.CourseData{}, fmt.Errorf("decode initialize course: %w", err)
	}
	if len(envelope.CourseData) == 0 || string(envelope.CourseData) == "null" {
		return course.CourseData{}, fmt.Errorf("initialize course: missing course_data")
	}
	if err := validate(c.schemas.courseData, envelope.CourseData); err != nil {
		return course.CourseData{}, fmt.Errorf("course data rejected: %w", err)
	}

	var data course.CourseData
	if err := json.Unmarshal(envelope.CourseData, &data); err != nil {
		return course.CourseData{}, fmt.Errorf("decode course data: %w", err)
	}
	data.Normalize()
	if data.CourseContext == nil {
		data.CourseContext = req.CourseContext
	}
	return data, nil
}

// GetWeekContent fetches the rendered content for one week.
func (c *Client) GetWeekContent(ctx context.Context, req WeekContentRequest) (course.WeekContent, error) {
	raw, err := c.call(ctx, endpointWeekContent, req, callOptions{name: "week_content", retry: true, dedupe: true})
	if err != nil {
		return course.WeekContent{}, err
	}

	var envelope struct {
		WeekContent course.WeekContent `json:"week_content"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return course.WeekContent{}, fmt.Errorf("decode week content: %w", err)
	}

	content := envelope.WeekContent
	if content.WeekNumber == 0 {
		content.WeekNumber = req.WeekNumber
	}
	return content, nil
}

// GetLessonContent fetches one lesson body. The backend answers either
// a bare markdown string or a structured lesson object; both are
// accepted.
func (c *Client) GetLessonContent(ctx context.Context, req LessonContentRequest) (course.LessonContent, error) {
	raw, err := c.call(ctx, endpointLessonContent, req, callOptions{name: "lesson_content", retry: true, dedupe: true})
	if err != nil {
		return course.LessonContent{}, err
	}

	var envelope struct {
		LessonContent json.RawMessage `json:"lesson_content"`
		Videos        []string        `json:"videos,omitempty"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return course.LessonContent{}, fmt.Errorf("decode lesson content: %w", err)
	}

	content := course.LessonContent{
		ID:     req.LessonInfo.LessonID,
		Title:  req.LessonInfo.Title,
		Videos: envelope.Videos,
	}
	if len(envelope.LessonContent) == 0 || string(envelope.LessonContent) == "null" {
		return content, nil
	}

	var body string
	if err := json.Unmarshal(envelope.LessonContent, &body); err == nil {
		content.Body = body
		return content, nil
	}

	var structured course.LessonContent
	if err := json.Unmarshal(envelope.LessonContent, &structured); err != nil {
		return course.LessonContent{}, fmt.Errorf("decode lesson content: %w", err)
	}
	if structured.ID == "" {
		structured.ID = req.LessonInfo.LessonID
	}
	if structured.Title == "" {
		structured.Title = req.LessonInfo.Title
	}
	if len(structured.Videos) == 0 {
		structured.Videos = envelope.Videos
	}
	return structured, nil
}

// CreateQuiz asks the backend to generate the quiz for one week.
func (c *Client) CreateQuiz(ctx context.Context, req CreateQuizRequest) (course.Quiz, error) {
	raw, err := c.call(ctx, endpointCreateQuiz, req, callOptions{name: "create_quiz", retry: true, dedupe: true})
	if err != nil {
		return course.Quiz{}, err
	}

	var envelope struct {
		Quiz course.Quiz `json:"quiz"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return course.Quiz{}, fmt.Errorf("decode quiz: %w", err)
	}

	quiz := envelope.Quiz
	if quiz.WeekNumber == 0 {
		quiz.WeekNumber = req.WeekNumber
	}
	if quiz.QuizID == "" {
		quiz.QuizID = fmt.Sprintf("week%d-quiz", req.WeekNumber)
	}
	if quiz.TotalPoints == 0 {
		for _, question := range quiz.Questions {
			quiz.TotalPoints += question.Points
		}
	}
	return quiz, nil
}

// SubmitQuiz sends the learner's answers for grading. The graded
// details are schema-validated; the call is never retried because the
// backend records the attempt.
func (c *Client) SubmitQuiz(ctx context.Context, req SubmitQuizRequest) (SubmitQuizResponse, error) {
	raw, err := c.call(ctx, endpointSubmitQuiz, req, callOptions{name: "submit_quiz", dedupe: true})
	if err != nil {
		return SubmitQuizResponse{}, err
	}

	var envelope struct {
		Success           bool                   `json:"success"`
		Results           json.RawMessage        `json:"results"`
		QuizResults       json.RawMessage        `json:"quiz_results"`
		NextWeekReady     bool                   `json:"next_week_ready"`
		AdaptationSummary string                 `json:"adaptation_summary"`
		RevisedWeekInfo   map[string]interface{} `json:"revised_week_info"`
		Error             string                 `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return SubmitQuizResponse{}, fmt.Errorf("decode quiz submission: %w", err)
	}

	resp := SubmitQuizResponse{
		Success:           envelope.Success,
		NextWeekReady:     envelope.NextWeekReady,
		AdaptationSummary: envelope.AdaptationSummary,
		RevisedWeekInfo:   envelope.RevisedWeekInfo,
		Error:             envelope.Error,
	}

	details := envelope.Results
	if len(details) == 0 || string(details) == "null" {
		details = envelope.QuizResults
	}
	if len(details) == 0 || string(details) == "null" {
		return resp, nil
	}

	if err := validate(c.schemas.quizResult, details); err != nil {
		return SubmitQuizResponse{}, fmt.Errorf("quiz result rejected: %w", err)
	}
	var graded course.QuizResultDetails
	if err := json.Unmarshal(details, &graded); err != nil {
		return SubmitQuizResponse{}, fmt.Errorf("decode quiz result: %w", err)
	}
	resp.Results = &graded
	return resp, nil
}

// StudyTips fetches coaching tips for one week. The call runs under
// its own shorter timeout; at most five tips are returned.
func (c *Client) StudyTips(ctx context.Context, req StudyTipsRequest) ([]string, error) {
	raw, err := c.call(ctx, endpointStudyTips, req, callOptions{name: "study_tips", timeout: c.tipsTimeout, retry: true, dedupe: true})
	if err != nil {
		return nil, err
	}

	var tips []string
	if err := json.Unmarshal(raw, &tips); err != nil {
		var envelope struct {
			Tips      []string `json:"tips"`
			StudyTips []string `json:"study_tips"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode study tips: %w", err)
		}
		tips = envelope.Tips
		if tips == nil {
			tips = envelope.StudyTips
		}
	}

	if len(tips) > 5 {
		tips = tips[:5]
	}
	return tips, nil
}

// TutorHelp relays a free-form question about the current material.
func (c *Client) TutorHelp(ctx context.Context, req TutorHelpRequest) (string, error) {
	raw, err := c.call(ctx, endpointTutorHelp, req, callOptions{name: "tutor_help"})
	if err != nil {
		return "", err
	}

	var envelope struct {
		Answer   string `json:"answer"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("decode tutor help: %w", err)
	}
	if envelope.Answer != "" {
		return envelope.Answer, nil
	}
	return envelope.Response, nil
}

// WellbeingCheck scores a check-in. The risk band is verified against
// the known set so an unexpected value never reaches the learner.
func (c *Client) WellbeingCheck(ctx context.Context, req WellbeingCheckRequest) (WellbeingCheckResult, error) {
	raw, err := c.call(ctx, endpointWellbeingCheck, req, callOptions{name: "wellbeing_check"})
	if err != nil {
		return WellbeingCheckResult{}, err
	}

	var result WellbeingCheckResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return WellbeingCheckResult{}, fmt.Errorf("decode wellbeing check: %w", err)
	}

	switch result.Risk {
	case "low", "watch", "elevated", "urgent":
	default:
		return WellbeingCheckResult{}, fmt.Errorf("wellbeing check: unknown risk band %q", result.Risk)
	}
	return result, nil
}
