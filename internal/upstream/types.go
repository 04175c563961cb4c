package upstream

import (
	"fmt"

	"github.com/sandwich-learn/sandwich-api/internal/course"
)

// Endpoint paths on the tutor backend.
const (
	endpointChatbotStep      = "/chatbot_step"
	endpointInitializeCourse = "/initialize_course"
	endpointWeekContent      = "/get_week_content"
	endpointLessonContent    = "/get_lesson_content"
	endpointCreateQuiz       = "/create_quiz"
	endpointSubmitQuiz       = "/submit_quiz"
	endpointStudyTips        = "/study_tips"
	endpointTutorHelp        = "/tutor_help"
	endpointWellbeingCheck   = "/wellbeing/check"
)

// Error is a failed upstream call carrying the HTTP status the backend
// answered with.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the call may be repeated safely from the
// status alone.
func (e *Error) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ChatbotStepRequest drives one turn of the backend-owned onboarding
// conversation.
type ChatbotStepRequest struct {
	State     string `json:"state"`
	UserInput string `json:"user_input,omitempty"`
}

// ChatbotStepResponse is one turn's reply. Syllabus and CourseContext
// arrive once CourseReady turns true.
type ChatbotStepResponse struct {
	State         string                 `json:"state"`
	Bot           string                 `json:"bot"`
	Summary       map[string]interface{} `json:"summary,omitempty"`
	Syllabus      string                 `json:"syllabus,omitempty"`
	CourseReady   bool                   `json:"course_ready,omitempty"`
	CourseContext map[string]interface{} `json:"course_context,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// InitializeCourseRequest seeds course generation from the accepted
// syllabus.
type InitializeCourseRequest struct {
	SyllabusText  string                 `json:"syllabus_text"`
	CourseContext map[string]interface{} `json:"course_context"`
}

// WeekContentRequest fetches the rendered content for one week. The
// stored course data is echoed back so the backend has full context.
type WeekContentRequest struct {
	WeekNumber int               `json:"week_number"`
	CourseData course.CourseData `json:"course_data"`
}

// LessonInfo identifies the lesson whose body should be generated.
type LessonInfo struct {
	WeekNumber int    `json:"week_number"`
	LessonID   string `json:"lesson_id"`
	Title      string `json:"title"`
	Summary    string `json:"summary,omitempty"`
}

// LessonContentRequest fetches one lesson body lazily.
type LessonContentRequest struct {
	LessonInfo    LessonInfo             `json:"lesson_info"`
	CourseContext map[string]interface{} `json:"course_context"`
}

// CreateQuizRequest asks the backend to generate a quiz for one week.
type CreateQuizRequest struct {
	WeekNumber    int                    `json:"week_number"`
	WeekContent   course.WeekContent     `json:"week_content"`
	CourseContext map[string]interface{} `json:"course_context,omitempty"`
}

// SubmitQuizRequest sends the learner's answers for grading.
type SubmitQuizRequest struct {
	QuizID        string                 `json:"quiz_id"`
	WeekNumber    int                    `json:"week_number"`
	Answers       map[string]string      `json:"answers"`
	CourseContext map[string]interface{} `json:"course_context,omitempty"`
}

// SubmitQuizResponse is the grading outcome. Older backend versions
// answer under quiz_results instead of results; the client folds both
// into Results.
type SubmitQuizResponse struct {
	Success           bool                      `json:"success"`
	Results           *course.QuizResultDetails `json:"results,omitempty"`
	NextWeekReady     bool                      `json:"next_week_ready,omitempty"`
	AdaptationSummary string                    `json:"adaptation_summary,omitempty"`
	RevisedWeekInfo   map[string]interface{}    `json:"revised_week_info,omitempty"`
	Error             string                    `json:"error,omitempty"`
}

// StudyTipsRequest asks for coaching tips based on the learner's
// performance so far.
type StudyTipsRequest struct {
	WeekInfo           map[string]interface{} `json:"week_info"`
	CourseContext      map[string]interface{} `json:"course_context"`
	StudentPerformance map[string]interface{} `json:"student_performance"`
}

// TutorHelpRequest relays a free-form question about the current
// material.
type TutorHelpRequest struct {
	Question      string                 `json:"question"`
	WeekInfo      map[string]interface{} `json:"week_info,omitempty"`
	CourseContext map[string]interface{} `json:"course_context,omitempty"`
}

// WellbeingCheckRequest carries the learner's check-in answers: a mood
// rating 0-4 and the two-item PHQ-2 and GAD-2 screens, each item 0-3.
type WellbeingCheckRequest struct {
	Mood     int    `json:"mood"`
	PHQ2     []int  `json:"phq2"`
	GAD2     []int  `json:"gad2"`
	FreeText string `json:"free_text,omitempty"`
}

// WellbeingCheckResult is the scored check-in. Risk is one of low,
// watch, elevated or urgent; ShowResources accompanies the higher
// bands. Timestamp stays a string because the backend emits bare ISO
// timestamps without a zone.
type WellbeingCheckResult struct {
	Timestamp     string `json:"timestamp"`
	Mood          int    `json:"mood"`
	PHQ2Total     int    `json:"phq2_total"`
	GAD2Total     int    `json:"gad2_total"`
	Risk          string `json:"risk"`
	Message       string `json:"message"`
	ShowResources bool   `json:"show_resources"`
}
