package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Progress event types published on the event bus.
const (
	EventCourseInitialized = "course_initialized"
	EventLessonCompleted   = "lesson_completed"
	EventQuizSubmitted     = "quiz_submitted"
	EventWeekUnlocked      = "week_unlocked"
	EventCourseCompleted   = "course_completed"
)

// ProgressEvent is one progression change fanned out to interested
// consumers (analytics, coaching dashboards).
type ProgressEvent struct {
	Source      string    `json:"source"`
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	WeekNumber  int       `json:"week_number,omitempty"`
	LessonID    string    `json:"lesson_id,omitempty"`
	ProgressPct int       `json:"progress_pct"`
	Passed      bool      `json:"passed,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// ProgressPublisher fans progression events out over NATS. The bus is
// optional: with no connection every publish is a no-op.
type ProgressPublisher struct {
	nats    *nats.Conn
	subject string
	nodeID  string
	logger  zerolog.Logger
}

// NewProgressPublisher builds a publisher on the given subject. A nil
// connection disables publishing without disabling callers.
func NewProgressPublisher(natsConn *nats.Conn, subject string, logger zerolog.Logger) *ProgressPublisher {
	if subject == "" {
		subject = "sandwich.progress"
	}
	return &ProgressPublisher{
		nats:    natsConn,
		subject: subject,
		nodeID:  uuid.NewString(),
		logger:  logger.With().Str("component", "progress_publisher").Logger(),
	}
}

// Publish sends one event. Failures are logged, never surfaced: the
// learner's request must not fail because the bus is down.
func (p *ProgressPublisher) Publish(_ context.Context, event ProgressEvent) {
	if p == nil || p.nats == nil {
		return
	}

	event.Source = p.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to encode progress event")
		return
	}
	if err := p.nats.Publish(p.subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish progress event")
	}
}
