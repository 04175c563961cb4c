package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/observability"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

// QuizService owns the timed quiz lifecycle: creation, submission with
// its unlock side effects, and stored results.
type QuizService interface {
	Start(ctx context.Context, sessionID string, week int) (dto.QuizStartResponse, error)
	Submit(ctx context.Context, sessionID string, week int, req dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error)
	Result(ctx context.Context, sessionID string, week int) (course.QuizResult, error)
}

type quizService struct {
	progressionStore
	tutor            TutorClient
	checkpoints      CheckpointCounter
	events           *ProgressPublisher
	threshold        int
	timeLimitMinutes int
	logger           zerolog.Logger
	now              func() time.Time
}

// NewQuizService builds the quiz service.
func NewQuizService(store session.Store, tutor TutorClient, checkpoints CheckpointCounter, events *ProgressPublisher, threshold, timeLimitMinutes int, logger zerolog.Logger) QuizService {
	if timeLimitMinutes <= 0 {
		timeLimitMinutes = 30
	}
	return &quizService{
		progressionStore: progressionStore{store: store},
		tutor:            tutor,
		checkpoints:      checkpoints,
		events:           events,
		threshold:        threshold,
		timeLimitMinutes: timeLimitMinutes,
		logger:           logger.With().Str("component", "quiz_service").Logger(),
		now:              time.Now,
	}
}

// Start creates the quiz for an unlocked week or resumes the active
// attempt. Creating again after a submission starts a retake with a
// freshly generated quiz.
func (s *quizService) Start(ctx context.Context, sessionID string, week int) (dto.QuizStartResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.QuizStartResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.QuizStartResponse{}, err
	}

	if data.Week(week) == nil {
		return dto.QuizStartResponse{}, course.ErrWeekNotFound
	}
	if !state.IsWeekUnlocked(week, s.threshold) {
		return dto.QuizStartResponse{}, course.ErrWeekLocked
	}

	now := s.now().UTC()

	var existing course.QuizSession
	found, err := s.store.Get(ctx, sessionID, session.KeyQuizSession(week), &existing)
	if err != nil {
		return dto.QuizStartResponse{}, err
	}
	if found && existing.Status == course.QuizStatusActive && !existing.Expired(now) {
		return dto.QuizStartResponse{
			Quiz:          existing.Quiz,
			TimeRemaining: existing.TimeRemaining(now),
			TimeLimit:     existing.TimeLimitMinutes,
			Status:        existing.Status,
			Resumed:       true,
		}, nil
	}

	content, err := s.cachedWeekContent(ctx, sessionID, week)
	if err != nil {
		s.logger.Warn().Err(err).Int("week", week).Msg("week content cache read failed")
	}
	if content == nil {
		fetched, err := s.tutor.GetWeekContent(ctx, upstream.WeekContentRequest{WeekNumber: week, CourseData: *data})
		if err != nil {
			return dto.QuizStartResponse{}, err
		}
		content = &fetched
		if err := s.saveWeekContent(ctx, sessionID, content); err != nil {
			s.logger.Warn().Err(err).Int("week", week).Msg("failed to cache week content")
		}
	}

	quiz, err := s.tutor.CreateQuiz(ctx, upstream.CreateQuizRequest{
		WeekNumber:    week,
		WeekContent:   *content,
		CourseContext: data.CourseContext,
	})
	if err != nil {
		return dto.QuizStartResponse{}, err
	}

	attempt := course.QuizSession{
		Quiz:             quiz,
		WeekNumber:       week,
		StartedAt:        now,
		TimeLimitMinutes: s.timeLimitMinutes,
		Status:           course.QuizStatusActive,
	}
	if err := s.store.Set(ctx, sessionID, session.KeyQuizSession(week), attempt); err != nil {
		return dto.QuizStartResponse{}, err
	}

	s.logger.Info().Str("session_id", sessionID).Int("week", week).Str("quiz_id", quiz.QuizID).Msg("quiz attempt started")
	return dto.QuizStartResponse{
		Quiz:          quiz,
		TimeRemaining: attempt.TimeRemaining(now),
		TimeLimit:     attempt.TimeLimitMinutes,
		Status:        attempt.Status,
	}, nil
}

// Submit grades the learner's answers. A submission past the time
// limit is still graded but flagged auto-submitted. On upstream
// failure nothing changes: no unlock, no stored result.
func (s *quizService) Submit(ctx context.Context, sessionID string, week int, req dto.QuizSubmitRequest) (dto.QuizSubmitResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.QuizSubmitResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.QuizSubmitResponse{}, err
	}

	var attempt course.QuizSession
	found, err := s.store.Get(ctx, sessionID, session.KeyQuizSession(week), &attempt)
	if err != nil {
		return dto.QuizSubmitResponse{}, err
	}
	if !found || attempt.Status != course.QuizStatusActive {
		return dto.QuizSubmitResponse{}, ErrQuizSessionMissing
	}

	now := s.now().UTC()
	autoSubmitted := attempt.Expired(now)

	graded, err := s.tutor.SubmitQuiz(ctx, upstream.SubmitQuizRequest{
		QuizID:        attempt.Quiz.QuizID,
		WeekNumber:    week,
		Answers:       req.Answers,
		CourseContext: data.CourseContext,
	})
	if err != nil {
		return dto.QuizSubmitResponse{}, err
	}
	if !graded.Success || graded.Results == nil {
		if graded.Error != "" {
			return dto.QuizSubmitResponse{}, fmt.Errorf("%w: %s", ErrQuizNotGraded, graded.Error)
		}
		return dto.QuizSubmitResponse{}, ErrQuizNotGraded
	}

	result := course.QuizResult{
		WeekNumber:        week,
		Results:           *graded.Results,
		AdaptationSummary: graded.AdaptationSummary,
		AutoSubmitted:     autoSubmitted,
		CompletedAt:       now,
	}

	nextWeek := week + 1
	wasUnlocked := state.IsWeekUnlocked(nextWeek, s.threshold)
	passed := state.RecordQuizResult(data, week, result, s.threshold)

	if err := s.saveQuizResult(ctx, sessionID, state, week); err != nil {
		return dto.QuizSubmitResponse{}, err
	}
	if passed {
		// Persist the latched quiz_completed flag on the week entry.
		if err := s.saveCourse(ctx, sessionID, data); err != nil {
			return dto.QuizSubmitResponse{}, err
		}
	}

	attempt.Status = course.QuizStatusSubmitted
	if err := s.store.Set(ctx, sessionID, session.KeyQuizSession(week), attempt); err != nil {
		return dto.QuizSubmitResponse{}, err
	}

	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	observability.QuizzesSubmitted().WithLabelValues(outcome).Inc()

	progress := state.Progress(data, s.threshold)
	response := dto.QuizSubmitResponse{
		Result:        result,
		Passed:        passed,
		NextWeekReady: graded.NextWeekReady,
		ProgressPct:   progress,
		AutoSubmitted: autoSubmitted,
	}

	s.events.Publish(ctx, ProgressEvent{
		Type:        EventQuizSubmitted,
		SessionID:   sessionID,
		WeekNumber:  week,
		ProgressPct: progress,
		Passed:      passed,
	})

	if passed && !wasUnlocked && data.Week(nextWeek) != nil {
		response.UnlockedWeek = nextWeek
		observability.WeeksUnlocked().Inc()
		s.events.Publish(ctx, ProgressEvent{
			Type:        EventWeekUnlocked,
			SessionID:   sessionID,
			WeekNumber:  nextWeek,
			ProgressPct: progress,
		})
	}

	response.WellbeingPrompt = s.bumpCheckpoint(ctx, sessionID)

	s.logger.Info().
		Str("session_id", sessionID).
		Int("week", week).
		Float64("percentage", result.Results.Percentage).
		Bool("passed", passed).
		Bool("auto_submitted", autoSubmitted).
		Msg("quiz graded")

	return response, nil
}

func (s *quizService) bumpCheckpoint(ctx context.Context, sessionID string) bool {
	if s.checkpoints == nil {
		return false
	}
	due, err := s.checkpoints.Bump(ctx, sessionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to bump wellbeing checkpoint")
		return false
	}
	return due
}

// Result returns the stored graded result for one week.
func (s *quizService) Result(ctx context.Context, sessionID string, week int) (course.QuizResult, error) {
	var result course.QuizResult
	found, err := s.store.Get(ctx, sessionID, session.KeyQuizResult(week), &result)
	if err != nil {
		return course.QuizResult{}, err
	}
	if !found {
		return course.QuizResult{}, ErrQuizResultNotFound
	}
	return result, nil
}
