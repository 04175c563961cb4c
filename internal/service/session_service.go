package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/session"
)

// SessionService issues learner sessions and answers the client's
// resume-or-restart decision. Sessions carry no identity: the signed
// token exists purely to scope storage to one learner.
type SessionService interface {
	Start(ctx context.Context) (dto.SessionStartResponse, error)
	Inspect(ctx context.Context, sessionID string) (dto.SessionStatusResponse, error)
	Reset(ctx context.Context, sessionID string) error
}

type sessionService struct {
	progressionStore
	secret []byte
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

// NewSessionService builds the session lifecycle service.
func NewSessionService(store session.Store, secret string, ttl time.Duration, logger zerolog.Logger) SessionService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &sessionService{
		progressionStore: progressionStore{store: store},
		secret:           []byte(secret),
		ttl:              ttl,
		logger:           logger.With().Str("component", "session_service").Logger(),
		now:              time.Now,
	}
}

func (s *sessionService) Start(_ context.Context) (dto.SessionStartResponse, error) {
	sessionID := uuid.NewString()
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sessionID,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return dto.SessionStartResponse{}, fmt.Errorf("sign session token: %w", err)
	}

	s.logger.Info().Str("session_id", sessionID).Msg("learner session started")
	return dto.SessionStartResponse{
		SessionID: sessionID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *sessionService) Inspect(ctx context.Context, sessionID string) (dto.SessionStatusResponse, error) {
	var active bool
	if _, err := s.store.Get(ctx, sessionID, session.KeySessionActive, &active); err != nil {
		return dto.SessionStatusResponse{}, err
	}

	status := dto.SessionStatusResponse{Active: active}

	data, err := s.loadCourse(ctx, sessionID)
	if err == ErrCourseNotFound {
		return status, nil
	}
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}

	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.SessionStatusResponse{}, err
	}

	status.HasCourse = true
	status.CurrentWeek = state.CurrentWeek
	status.CourseTitle = data.Title
	return status, nil
}

// Reset wipes every session-store key for the session. Wellbeing
// checkpoint counters live in the relational store and survive.
func (s *sessionService) Reset(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("reset session: %w", err)
	}
	s.logger.Info().Str("session_id", sessionID).Msg("learner session reset")
	return nil
}
