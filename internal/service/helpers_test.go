package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/session"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

const testThreshold = 40

var errUnexpectedCall = errors.New("unexpected tutor call")

// stubTutor implements TutorClient with overridable call hooks. Any
// call without a hook fails the request with errUnexpectedCall.
type stubTutor struct {
	chatbotStep      func(req upstream.ChatbotStepRequest) (upstream.ChatbotStepResponse, error)
	initializeCourse func(req upstream.InitializeCourseRequest) (course.CourseData, error)
	weekContent      func(req upstream.WeekContentRequest) (course.WeekContent, error)
	lessonContent    func(req upstream.LessonContentRequest) (course.LessonContent, error)
	createQuiz       func(req upstream.CreateQuizRequest) (course.Quiz, error)
	submitQuiz       func(req upstream.SubmitQuizRequest) (upstream.SubmitQuizResponse, error)
	studyTips        func(req upstream.StudyTipsRequest) ([]string, error)
	tutorHelp        func(req upstream.TutorHelpRequest) (string, error)
	wellbeingCheck   func(req upstream.WellbeingCheckRequest) (upstream.WellbeingCheckResult, error)
}

func (s *stubTutor) ChatbotStep(_ context.Context, req upstream.ChatbotStepRequest) (upstream.ChatbotStepResponse, error) {
	if s.chatbotStep == nil {
		return upstream.ChatbotStepResponse{}, errUnexpectedCall
	}
	return s.chatbotStep(req)
}

func (s *stubTutor) InitializeCourse(_ context.Context, req upstream.InitializeCourseRequest) (course.CourseData, error) {
	if s.initializeCourse == nil {
		return course.CourseData{}, errUnexpectedCall
	}
	return s.initializeCourse(req)
}

func (s *stubTutor) GetWeekContent(_ context.Context, req upstream.WeekContentRequest) (course.WeekContent, error) {
	if s.weekContent == nil {
		return course.WeekContent{}, errUnexpectedCall
	}
	return s.weekContent(req)
}

func (s *stubTutor) GetLessonContent(_ context.Context, req upstream.LessonContentRequest) (course.LessonContent, error) {
	if s.lessonContent == nil {
		return course.LessonContent{}, errUnexpectedCall
	}
	return s.lessonContent(req)
}

func (s *stubTutor) CreateQuiz(_ context.Context, req upstream.CreateQuizRequest) (course.Quiz, error) {
	if s.createQuiz == nil {
		return course.Quiz{}, errUnexpectedCall
	}
	return s.createQuiz(req)
}

func (s *stubTutor) SubmitQuiz(_ context.Context, req upstream.SubmitQuizRequest) (upstream.SubmitQuizResponse, error) {
	if s.submitQuiz == nil {
		return upstream.SubmitQuizResponse{}, errUnexpectedCall
	}
	return s.submitQuiz(req)
}

func (s *stubTutor) StudyTips(_ context.Context, req upstream.StudyTipsRequest) ([]string, error) {
	if s.studyTips == nil {
		return nil, errUnexpectedCall
	}
	return s.studyTips(req)
}

func (s *stubTutor) TutorHelp(_ context.Context, req upstream.TutorHelpRequest) (string, error) {
	if s.tutorHelp == nil {
		return "", errUnexpectedCall
	}
	return s.tutorHelp(req)
}

func (s *stubTutor) WellbeingCheck(_ context.Context, req upstream.WellbeingCheckRequest) (upstream.WellbeingCheckResult, error) {
	if s.wellbeingCheck == nil {
		return upstream.WellbeingCheckResult{}, errUnexpectedCall
	}
	return s.wellbeingCheck(req)
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func nopPublisher() *ProgressPublisher {
	return NewProgressPublisher(nil, "", nopLogger())
}

// twoWeekCourse is the standard fixture: week 1 with two lessons and a
// resources section, week 2 with one lesson and no resources.
func twoWeekCourse() course.CourseData {
	return course.CourseData{
		Title:      "Intro to Nutrition",
		TotalWeeks: 2,
		Summary: course.CourseSummary{
			CourseTitle: "Intro to Nutrition",
			Difficulty:  "beginner",
		},
		Weeks: []course.WeekSummary{
			{
				WeekNumber: 1,
				Title:      "Foundations",
				LessonTopics: []course.LessonTopic{
					{ID: "lesson-1", Title: "Macronutrients"},
					{ID: "lesson-2", Title: "Micronutrients"},
				},
				Resources: []string{"reading list"},
			},
			{
				WeekNumber: 2,
				Title:      "Applications",
				LessonTopics: []course.LessonTopic{
					{ID: "lesson-1", Title: "Meal planning"},
				},
			},
		},
	}
}

func seedCourse(t *testing.T, store session.Store, sessionID string, data course.CourseData) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), sessionID, session.KeyCourseData, data))
}

func seedQuizPass(t *testing.T, store session.Store, sessionID string, week int, percentage float64) {
	t.Helper()
	results := map[string]course.QuizResult{}
	_, err := store.Get(context.Background(), sessionID, session.KeyQuizResults, &results)
	require.NoError(t, err)
	results[course.WeekKey(week)] = course.QuizResult{
		WeekNumber: week,
		Results:    course.QuizResultDetails{Percentage: percentage},
	}
	require.NoError(t, store.Set(context.Background(), sessionID, session.KeyQuizResults, results))
}

func seedCursor(t *testing.T, store session.Store, sessionID string, week int, section string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), sessionID, session.KeyCurrentWeek, week))
	require.NoError(t, store.Set(context.Background(), sessionID, session.KeyActiveSection, section))
}
