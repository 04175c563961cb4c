package service

import (
	"context"

	"github.com/sandwich-learn/sandwich-api/internal/course"
	"github.com/sandwich-learn/sandwich-api/internal/upstream"
)

// TutorClient is the slice of the upstream tutor backend the services
// depend on. *upstream.Client satisfies it; tests substitute stubs.
type TutorClient interface {
	ChatbotStep(ctx context.Context, req upstream.ChatbotStepRequest) (upstream.ChatbotStepResponse, error)
	InitializeCourse(ctx context.Context, req upstream.InitializeCourseRequest) (course.CourseData, error)
	GetWeekContent(ctx context.Context, req upstream.WeekContentRequest) (course.WeekContent, error)
	GetLessonContent(ctx context.Context, req upstream.LessonContentRequest) (course.LessonContent, error)
	CreateQuiz(ctx context.Context, req upstream.CreateQuizRequest) (course.Quiz, error)
	SubmitQuiz(ctx context.Context, req upstream.SubmitQuizRequest) (upstream.SubmitQuizResponse, error)
	StudyTips(ctx context.Context, req upstream.StudyTipsRequest) ([]string, error)
	TutorHelp(ctx context.Context, req upstream.TutorHelpRequest) (string, error)
	WellbeingCheck(ctx context.Context, req upstream.WellbeingCheckRequest) (upstream.WellbeingCheckResult, error)
}
