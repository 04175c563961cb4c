package service

import (
	"context"
	"errors"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/session"
)

// Sentinel errors shared by the course-facing services. Handlers map
// them onto HTTP status codes with errors.Is.
var (
	ErrCourseNotFound     = errors.New("no course found for session")
	ErrLessonNotFound     = errors.New("lesson not found in week")
	ErrQuizSessionMissing = errors.New("no active quiz session for week")
	ErrQuizResultNotFound = errors.New("no quiz result stored for week")
	ErrQuizNotGraded      = errors.New("quiz submission was not graded")
)

// progressionStore assembles and persists the progression aggregate
// from its session-store keys. Both the course and quiz services embed
// it so the two always agree on the storage layout.
type progressionStore struct {
	store session.Store
}

// loadCourse returns the stored course data or ErrCourseNotFound.
func (p progressionStore) loadCourse(ctx context.Context, sessionID string) (*course.CourseData, error) {
	var data course.CourseData
	found, err := p.store.Get(ctx, sessionID, session.KeyCourseData, &data)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCourseNotFound
	}
	return &data, nil
}

// loadState assembles the progression state, defaulting every missing
// key so a fresh session starts at week 1's overview.
func (p progressionStore) loadState(ctx context.Context, sessionID string) (course.State, error) {
	state := course.NewState()

	if _, err := p.store.Get(ctx, sessionID, session.KeyCurrentWeek, &state.CurrentWeek); err != nil {
		return state, err
	}
	if state.CurrentWeek < 1 {
		state.CurrentWeek = 1
	}
	if _, err := p.store.Get(ctx, sessionID, session.KeyActiveSection, &state.ActiveSection); err != nil {
		return state, err
	}
	if state.ActiveSection == "" {
		state.ActiveSection = course.SectionOverview
	}
	if _, err := p.store.Get(ctx, sessionID, session.KeyCompletedLessons, &state.CompletedLessons); err != nil {
		return state, err
	}
	if state.CompletedLessons == nil {
		state.CompletedLessons = map[string]bool{}
	}
	if _, err := p.store.Get(ctx, sessionID, session.KeyQuizResults, &state.QuizResults); err != nil {
		return state, err
	}
	if state.QuizResults == nil {
		state.QuizResults = map[string]course.QuizResult{}
	}

	return state, nil
}

func (p progressionStore) saveCourse(ctx context.Context, sessionID string, data *course.CourseData) error {
	return p.store.Set(ctx, sessionID, session.KeyCourseData, data)
}

func (p progressionStore) saveCursor(ctx context.Context, sessionID string, state course.State) error {
	if err := p.store.Set(ctx, sessionID, session.KeyCurrentWeek, state.CurrentWeek); err != nil {
		return err
	}
	return p.store.Set(ctx, sessionID, session.KeyActiveSection, state.ActiveSection)
}

func (p progressionStore) saveCompletedLessons(ctx context.Context, sessionID string, state course.State) error {
	return p.store.Set(ctx, sessionID, session.KeyCompletedLessons, state.CompletedLessons)
}

// saveQuizResult persists the results map plus the per-week mirror key
// the client reads directly.
func (p progressionStore) saveQuizResult(ctx context.Context, sessionID string, state course.State, week int) error {
	if err := p.store.Set(ctx, sessionID, session.KeyQuizResults, state.QuizResults); err != nil {
		return err
	}
	result, ok := state.QuizResults[course.WeekKey(week)]
	if !ok {
		return nil
	}
	return p.store.Set(ctx, sessionID, session.KeyQuizResult(week), result)
}

// cachedWeekContent returns the per-week content cache entry, if any.
func (p progressionStore) cachedWeekContent(ctx context.Context, sessionID string, week int) (*course.WeekContent, error) {
	var content course.WeekContent
	found, err := p.store.Get(ctx, sessionID, session.KeyWeekContent(week), &content)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &content, nil
}

func (p progressionStore) saveWeekContent(ctx context.Context, sessionID string, content *course.WeekContent) error {
	return p.store.Set(ctx, sessionID, session.KeyWeekContent(content.WeekNumber), content)
}
