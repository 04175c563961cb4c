package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/models"
	"github.com/sandwich-learn/sandwich-api/internal/observability"
	"github.com/sandwich-learn/sandwich-api/internal/repository"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

// WellbeingService handles periodic check-in prompts and relays scored
// check-ins. Risk scoring is backend-owned; this service validates
// input ranges, persists outcomes and drives the prompt cadence.
type WellbeingService interface {
	Check(ctx context.Context, sessionID string, req dto.WellbeingCheckRequest) (dto.WellbeingCheckResponse, error)
	CheckpointStatus(ctx context.Context, sessionID string) (dto.WellbeingCheckpointResponse, error)
	DismissCheckpoint(ctx context.Context, sessionID string) error

	// Bump implements CheckpointCounter for the course and quiz
	// services.
	Bump(ctx context.Context, sessionID string) (bool, error)
}

type wellbeingService struct {
	repo      repository.WellbeingRepository
	tutor     TutorClient
	validator *validator.Validate
	interval  int
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWellbeingService builds the wellbeing service. interval is the
// number of checkpoints between prompts.
func NewWellbeingService(repo repository.WellbeingRepository, tutor TutorClient, validate *validator.Validate, interval int, logger zerolog.Logger) WellbeingService {
	if interval <= 0 {
		interval = 3
	}
	return &wellbeingService{
		repo:      repo,
		tutor:     tutor,
		validator: validate,
		interval:  interval,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "wellbeing_service").Logger(),
		now:       time.Now,
	}
}

// Check scores one check-in via the backend, stores the outcome and
// marks the current checkpoint shown.
func (s *wellbeingService) Check(ctx context.Context, sessionID string, req dto.WellbeingCheckRequest) (dto.WellbeingCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.WellbeingCheckResponse{}, err
	}

	result, err := s.tutor.WellbeingCheck(ctx, upstream.WellbeingCheckRequest{
		Mood:     req.Mood,
		PHQ2:     req.PHQ2,
		GAD2:     req.GAD2,
		FreeText: strings.TrimSpace(s.sanitizer.Sanitize(req.FreeText)),
	})
	if err != nil {
		return dto.WellbeingCheckResponse{}, err
	}

	now := s.now().UTC()
	checkIn := models.WellbeingCheckIn{
		SessionRef:    sessionID,
		Mood:          result.Mood,
		PHQ2Total:     result.PHQ2Total,
		GAD2Total:     result.GAD2Total,
		Risk:          result.Risk,
		ShowResources: result.ShowResources,
		Scores: datatypes.JSONMap{
			"mood": req.Mood,
			"phq2": req.PHQ2,
			"gad2": req.GAD2,
		},
	}
	if err := s.repo.RecordCheckIn(ctx, &checkIn); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to record check-in")
	}

	checkpoint, err := s.repo.GetCheckpoint(ctx, sessionID)
	if err != nil {
		return dto.WellbeingCheckResponse{}, err
	}
	checkpoint.LastShownCheckpoint = checkpoint.CheckpointCount
	checkpoint.LastRisk = result.Risk
	checkpoint.LastCheckedAt = &now
	if err := s.repo.SaveCheckpoint(ctx, &checkpoint); err != nil {
		return dto.WellbeingCheckResponse{}, err
	}

	observability.WellbeingChecks().WithLabelValues(result.Risk).Inc()
	if result.Risk == "urgent" {
		s.logger.Warn().Str("session_id", sessionID).Msg("urgent wellbeing risk flagged")
	}

	return dto.WellbeingCheckResponse{
		Timestamp:     result.Timestamp,
		Mood:          result.Mood,
		PHQ2Total:     result.PHQ2Total,
		GAD2Total:     result.GAD2Total,
		Risk:          result.Risk,
		Message:       result.Message,
		ShowResources: result.ShowResources,
	}, nil
}

// CheckpointStatus reports whether a prompt is due: the count has run
// at least the configured interval past the last shown checkpoint.
func (s *wellbeingService) CheckpointStatus(ctx context.Context, sessionID string) (dto.WellbeingCheckpointResponse, error) {
	checkpoint, err := s.repo.GetCheckpoint(ctx, sessionID)
	if err != nil {
		return dto.WellbeingCheckpointResponse{}, err
	}
	return dto.WellbeingCheckpointResponse{
		Due:                 checkpointDue(checkpoint, s.interval),
		CheckpointCount:     checkpoint.CheckpointCount,
		LastShownCheckpoint: checkpoint.LastShownCheckpoint,
	}, nil
}

// DismissCheckpoint marks the prompt shown without a check.
func (s *wellbeingService) DismissCheckpoint(ctx context.Context, sessionID string) error {
	checkpoint, err := s.repo.GetCheckpoint(ctx, sessionID)
	if err != nil {
		return err
	}
	checkpoint.LastShownCheckpoint = checkpoint.CheckpointCount
	return s.repo.SaveCheckpoint(ctx, &checkpoint)
}

// Bump increments the checkpoint counter and reports whether a prompt
// is now due.
func (s *wellbeingService) Bump(ctx context.Context, sessionID string) (bool, error) {
	checkpoint, err := s.repo.IncrementCount(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return checkpointDue(checkpoint, s.interval), nil
}

func checkpointDue(checkpoint models.WellbeingCheckpoint, interval int) bool {
	return checkpoint.CheckpointCount-checkpoint.LastShownCheckpoint >= interval
}
