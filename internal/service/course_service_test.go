package service

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/dto"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

func newCourseService(store session.Store, tutor TutorClient) CourseService {
	return NewCourseService(store, tutor, nil, nopPublisher(), validator.New(validator.WithRequiredStructEnabled()), testThreshold, nopLogger())
}

func TestCourseInitializeReplacesPriorSession(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-init"
	ctx := context.Background()

	// Leftovers from a previous course that must be wiped.
	require.NoError(t, store.Set(ctx, sessionID, session.KeyChatState, chatCursor{State: "syllabus_review"}))
	require.NoError(t, store.Set(ctx, sessionID, session.KeyCurrentWeek, 2))

	tutor := &stubTutor{
		initializeCourse: func(req upstream.InitializeCourseRequest) (course.CourseData, error) {
			assert.Equal(t, "a syllabus accepted during onboarding", req.SyllabusText)
			return twoWeekCourse(), nil
		},
	}
	svc := newCourseService(store, tutor)

	resp, err := svc.Initialize(ctx, sessionID, dto.CourseInitializeRequest{
		SyllabusText: "a syllabus accepted during onboarding",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.CurrentWeek)
	assert.Equal(t, course.SectionOverview, resp.ActiveSection)
	assert.Len(t, resp.WeekStates, 2)
	assert.Equal(t, course.WeekInProgress, resp.WeekStates[0].State)
	assert.Equal(t, course.WeekLocked, resp.WeekStates[1].State)
	assert.False(t, resp.CourseComplete)

	var active bool
	found, err := store.Get(ctx, sessionID, session.KeySessionActive, &active)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, active)

	var cursor chatCursor
	found, err = store.Get(ctx, sessionID, session.KeyChatState, &cursor)
	require.NoError(t, err)
	assert.False(t, found, "prior chat state should be wiped")
}

func TestCourseInitializeRejectsShortSyllabus(t *testing.T) {
	store := session.NewMemoryStore()
	svc := newCourseService(store, &stubTutor{})

	_, err := svc.Initialize(context.Background(), "session-bad", dto.CourseInitializeRequest{SyllabusText: "nope"})
	require.Error(t, err)

	var validationErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &validationErrs)
}

func TestCourseGetWithoutCourse(t *testing.T) {
	svc := newCourseService(session.NewMemoryStore(), &stubTutor{})

	_, err := svc.Get(context.Background(), "session-empty")
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestWeekContentLockedWeek(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-locked"
	seedCourse(t, store, sessionID, twoWeekCourse())
	svc := newCourseService(store, &stubTutor{})

	_, err := svc.WeekContent(context.Background(), sessionID, 2)
	assert.ErrorIs(t, err, course.ErrWeekLocked)

	_, err = svc.WeekContent(context.Background(), sessionID, 9)
	assert.ErrorIs(t, err, course.ErrWeekNotFound)
}

func TestWeekContentFetchedOnceThenCached(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-cache"
	seedCourse(t, store, sessionID, twoWeekCourse())

	calls := 0
	tutor := &stubTutor{
		weekContent: func(req upstream.WeekContentRequest) (course.WeekContent, error) {
			calls++
			return course.WeekContent{WeekNumber: req.WeekNumber, Overview: "welcome to week one"}, nil
		},
	}
	svc := newCourseService(store, tutor)

	first, err := svc.WeekContent(context.Background(), sessionID, 1)
	require.NoError(t, err)
	second, err := svc.WeekContent(context.Background(), sessionID, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second read should hit the cache")
	assert.Equal(t, first.Overview, second.Overview)
}

func TestLessonContentLazyFetchAndCache(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-lesson"
	seedCourse(t, store, sessionID, twoWeekCourse())

	lessonCalls := 0
	tutor := &stubTutor{
		weekContent: func(req upstream.WeekContentRequest) (course.WeekContent, error) {
			return course.WeekContent{WeekNumber: req.WeekNumber}, nil
		},
		lessonContent: func(req upstream.LessonContentRequest) (course.LessonContent, error) {
			lessonCalls++
			assert.Equal(t, "lesson-1", req.LessonInfo.LessonID)
			return course.LessonContent{ID: req.LessonInfo.LessonID, Body: "macronutrients explained"}, nil
		},
	}
	svc := newCourseService(store, tutor)

	lesson, err := svc.LessonContent(context.Background(), sessionID, 1, "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, "macronutrients explained", lesson.Body)

	_, err = svc.LessonContent(context.Background(), sessionID, 1, "lesson-1")
	require.NoError(t, err)
	assert.Equal(t, 1, lessonCalls, "lesson body should be cached in the week entry")

	_, err = svc.LessonContent(context.Background(), sessionID, 1, "missing-lesson")
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestCompleteLessonIdempotent(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-complete"
	seedCourse(t, store, sessionID, twoWeekCourse())
	svc := newCourseService(store, &stubTutor{})

	first, err := svc.CompleteLesson(context.Background(), sessionID, 1, "lesson-1")
	require.NoError(t, err)
	assert.True(t, first.NewlyCompleted)
	assert.False(t, first.WeekCompleted)

	again, err := svc.CompleteLesson(context.Background(), sessionID, 1, "lesson-1")
	require.NoError(t, err)
	assert.False(t, again.NewlyCompleted)
	assert.Equal(t, first.ProgressPct, again.ProgressPct)

	second, err := svc.CompleteLesson(context.Background(), sessionID, 1, "lesson-2")
	require.NoError(t, err)
	assert.True(t, second.NewlyCompleted)
	assert.True(t, second.WeekCompleted, "all week 1 lessons done")
	assert.Greater(t, second.ProgressPct, first.ProgressPct)
}

func TestCompleteLessonUnknownLesson(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-unknown"
	seedCourse(t, store, sessionID, twoWeekCourse())
	svc := newCourseService(store, &stubTutor{})

	_, err := svc.CompleteLesson(context.Background(), sessionID, 1, "lesson-99")
	assert.ErrorIs(t, err, ErrLessonNotFound)
}

func TestNavigateAdvanceWithinWeek(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-nav"
	seedCourse(t, store, sessionID, twoWeekCourse())
	svc := newCourseService(store, &stubTutor{})

	resp, err := svc.Navigate(context.Background(), sessionID, course.DirectionNext)
	require.NoError(t, err)
	assert.True(t, resp.Moved)
	assert.Equal(t, 1, resp.CurrentWeek)
	assert.Equal(t, "lesson-1", resp.ActiveSection)
	assert.Nil(t, resp.WeekContent)

	var storedSection string
	_, err = store.Get(context.Background(), sessionID, session.KeyActiveSection, &storedSection)
	require.NoError(t, err)
	assert.Equal(t, "lesson-1", storedSection)
}

func TestNavigateBlockedPastLockedWeek(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-nav-locked"
	seedCourse(t, store, sessionID, twoWeekCourse())
	seedCursor(t, store, sessionID, 1, course.SectionQuiz)
	svc := newCourseService(store, &stubTutor{})

	_, err := svc.Navigate(context.Background(), sessionID, course.DirectionNext)
	assert.ErrorIs(t, err, course.ErrWeekLocked)
}

func TestNavigateCrossWeekFetchFailureKeepsCursor(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-nav-fail"
	seedCourse(t, store, sessionID, twoWeekCourse())
	seedCursor(t, store, sessionID, 1, course.SectionQuiz)
	seedQuizPass(t, store, sessionID, 1, 72)

	tutor := &stubTutor{
		weekContent: func(upstream.WeekContentRequest) (course.WeekContent, error) {
			return course.WeekContent{}, &upstream.Error{StatusCode: 503, Message: "backend down"}
		},
	}
	svc := newCourseService(store, tutor)

	_, err := svc.Navigate(context.Background(), sessionID, course.DirectionNext)
	require.Error(t, err)

	var upstreamErr *upstream.Error
	assert.True(t, errors.As(err, &upstreamErr))

	var storedWeek int
	_, err = store.Get(context.Background(), sessionID, session.KeyCurrentWeek, &storedWeek)
	require.NoError(t, err)
	assert.Equal(t, 1, storedWeek, "cursor must not move when the fetch fails")
}

func TestNavigateCrossWeekFetchesContent(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-nav-cross"
	seedCourse(t, store, sessionID, twoWeekCourse())
	seedCursor(t, store, sessionID, 1, course.SectionQuiz)
	seedQuizPass(t, store, sessionID, 1, 72)

	tutor := &stubTutor{
		weekContent: func(req upstream.WeekContentRequest) (course.WeekContent, error) {
			return course.WeekContent{WeekNumber: req.WeekNumber, Overview: "week two"}, nil
		},
	}
	svc := newCourseService(store, tutor)

	resp, err := svc.Navigate(context.Background(), sessionID, course.DirectionNext)
	require.NoError(t, err)
	assert.True(t, resp.Moved)
	assert.Equal(t, 2, resp.CurrentWeek)
	assert.Equal(t, course.SectionOverview, resp.ActiveSection)
	require.NotNil(t, resp.WeekContent)
	assert.Equal(t, "week two", resp.WeekContent.Overview)
}

func TestNavigateIntoCompletionState(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-nav-done"
	seedCourse(t, store, sessionID, twoWeekCourse())
	seedCursor(t, store, sessionID, 2, course.SectionQuiz)
	seedQuizPass(t, store, sessionID, 1, 80)
	seedQuizPass(t, store, sessionID, 2, 90)
	svc := newCourseService(store, &stubTutor{})

	resp, err := svc.Navigate(context.Background(), sessionID, course.DirectionNext)
	require.NoError(t, err)
	assert.True(t, resp.Moved)
	assert.Equal(t, course.SectionCompleted, resp.ActiveSection)
	assert.True(t, resp.CourseComplete)
}

func TestNavigateRetreatFromWeekOneOverview(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-nav-back"
	seedCourse(t, store, sessionID, twoWeekCourse())
	svc := newCourseService(store, &stubTutor{})

	resp, err := svc.Navigate(context.Background(), sessionID, course.DirectionPrevious)
	require.NoError(t, err)
	assert.False(t, resp.Moved)
	assert.Equal(t, 1, resp.CurrentWeek)
	assert.Equal(t, course.SectionOverview, resp.ActiveSection)
}

func TestSectionAffordances(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-section"
	seedCourse(t, store, sessionID, twoWeekCourse())
	svc := newCourseService(store, &stubTutor{})

	resp, err := svc.Section(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, resp.CanAdvance)
	assert.False(t, resp.CanRetreat, "week 1 overview is the start")

	seedCursor(t, store, sessionID, 1, course.SectionQuiz)
	resp, err = svc.Section(context.Background(), sessionID)
	require.NoError(t, err)
	assert.False(t, resp.CanAdvance, "next week locked without a passing quiz")
	assert.True(t, resp.CanRetreat)
}

func TestProgressBreakdown(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-progress"
	data := twoWeekCourse()
	seedCourse(t, store, sessionID, data)
	svc := newCourseService(store, &stubTutor{})
	ctx := context.Background()

	resp, err := svc.Progress(ctx, sessionID)
	require.NoError(t, err)
	// Week 1 counts overview + 2 lessons + resources + quiz = 5 points,
	// week 2 counts overview + 1 lesson + quiz = 3. The overview
	// baseline alone is 2/8.
	assert.Equal(t, 25, resp.ProgressPct)
	assert.False(t, resp.CourseComplete)
	require.Len(t, resp.Weeks, 2)
	assert.Equal(t, course.WeekLocked, resp.Weeks[1].State)
	assert.Nil(t, resp.Weeks[0].QuizPercentage)

	_, err = svc.CompleteLesson(ctx, sessionID, 1, "lesson-1")
	require.NoError(t, err)

	resp, err = svc.Progress(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 38, resp.ProgressPct)
	assert.Equal(t, 1, resp.Weeks[0].LessonsCompleted)
}

func TestSummaryAggregatesGrades(t *testing.T) {
	store := session.NewMemoryStore()
	sessionID := "session-summary"
	seedCourse(t, store, sessionID, twoWeekCourse())
	seedQuizPass(t, store, sessionID, 1, 80)
	seedQuizPass(t, store, sessionID, 2, 60)
	svc := newCourseService(store, &stubTutor{})

	resp, err := svc.Summary(context.Background(), sessionID)
	require.NoError(t, err)
	assert.True(t, resp.Complete)
	assert.Equal(t, "Intro to Nutrition", resp.CourseTitle)
	assert.Equal(t, 2, resp.QuizzesPassed)
	assert.InDelta(t, 70.0, resp.AverageQuizPct, 0.001)
	assert.Len(t, resp.Grades, 2)
}
