package service

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

// TipsService proxies per-week coaching content: study tips driven by
// the learner's performance, and free-form tutoring help.
type TipsService interface {
	StudyTips(ctx context.Context, sessionID string, week int) (dto.StudyTipsResponse, error)
	TutorHelp(ctx context.Context, sessionID string, week int, question string) (dto.TutorHelpResponse, error)
}

type tipsService struct {
	progressionStore
	tutor     TutorClient
	threshold int
	input     *bluemonday.Policy
	markdown  *bluemonday.Policy
	logger    zerolog.Logger
}

// NewTipsService builds the coaching content proxy.
func NewTipsService(store session.Store, tutor TutorClient, threshold int, logger zerolog.Logger) TipsService {
	markdown := bluemonday.UGCPolicy()
	markdown.AllowElements("br")

	return &tipsService{
		progressionStore: progressionStore{store: store},
		tutor:            tutor,
		threshold:        threshold,
		input:            bluemonday.StrictPolicy(),
		markdown:         markdown,
		logger:           logger.With().Str("component", "tips_service").Logger(),
	}
}

// StudyTips returns the cached tips for one week or fetches them. The
// upstream call runs under its own dedicated timeout.
func (s *tipsService) StudyTips(ctx context.Context, sessionID string, week int) (dto.StudyTipsResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.StudyTipsResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.StudyTipsResponse{}, err
	}

	w := data.Week(week)
	if w == nil {
		return dto.StudyTipsResponse{}, course.ErrWeekNotFound
	}
	if !state.IsWeekUnlocked(week, s.threshold) {
		return dto.StudyTipsResponse{}, course.ErrWeekLocked
	}

	var cached []string
	found, err := s.store.Get(ctx, sessionID, session.KeyStudyTips(week), &cached)
	if err != nil {
		s.logger.Warn().Err(err).Int("week", week).Msg("study tips cache read failed")
	}
	if found {
		return dto.StudyTipsResponse{WeekNumber: week, Tips: cached, Cached: true}, nil
	}

	tips, err := s.tutor.StudyTips(ctx, upstream.StudyTipsRequest{
		WeekInfo:           weekInfo(w),
		CourseContext:      data.CourseContext,
		StudentPerformance: studentPerformance(state),
	})
	if err != nil {
		return dto.StudyTipsResponse{}, err
	}
	if tips == nil {
		tips = []string{}
	}

	if err := s.store.Set(ctx, sessionID, session.KeyStudyTips(week), tips); err != nil {
		s.logger.Warn().Err(err).Int("week", week).Msg("failed to cache study tips")
	}
	return dto.StudyTipsResponse{WeekNumber: week, Tips: tips}, nil
}

// TutorHelp relays a free-form question with week context. Answers are
// sanitized markdown; nothing is cached.
func (s *tipsService) TutorHelp(ctx context.Context, sessionID string, week int, question string) (dto.TutorHelpResponse, error) {
	data, err := s.loadCourse(ctx, sessionID)
	if err != nil {
		return dto.TutorHelpResponse{}, err
	}
	state, err := s.loadState(ctx, sessionID)
	if err != nil {
		return dto.TutorHelpResponse{}, err
	}

	w := data.Week(week)
	if w == nil {
		return dto.TutorHelpResponse{}, course.ErrWeekNotFound
	}
	if !state.IsWeekUnlocked(week, s.threshold) {
		return dto.TutorHelpResponse{}, course.ErrWeekLocked
	}

	answer, err := s.tutor.TutorHelp(ctx, upstream.TutorHelpRequest{
		Question:      strings.TrimSpace(s.input.Sanitize(question)),
		WeekInfo:      weekInfo(w),
		CourseContext: data.CourseContext,
	})
	if err != nil {
		return dto.TutorHelpResponse{}, err
	}

	return dto.TutorHelpResponse{Answer: s.markdown.Sanitize(answer)}, nil
}

// weekInfo summarizes one week for the backend prompt context.
func weekInfo(w *course.WeekSummary) map[string]interface{} {
	topics := make([]string, 0, len(w.LessonTopics))
	for _, topic := range w.LessonTopics {
		topics = append(topics, topic.Title)
	}
	return map[string]interface{}{
		"week_number":   w.WeekNumber,
		"title":         w.Title,
		"lesson_topics": topics,
	}
}

// studentPerformance summarizes stored quiz results for the coaching
// prompt.
func studentPerformance(state course.State) map[string]interface{} {
	scores := map[string]float64{}
	var total float64
	for key, result := range state.QuizResults {
		scores[key] = result.Results.Percentage
		total += result.Results.Percentage
	}

	average := 0.0
	if len(scores) > 0 {
		average = total / float64(len(scores))
	}

	return map[string]interface{}{
		"quiz_scores":        scores,
		"average_percentage": average,
		"quizzes_taken":      len(scores),
		"lessons_completed":  len(state.CompletedLessons),
	}
}
