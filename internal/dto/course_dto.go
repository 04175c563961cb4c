package dto

import "github.com/sandwich-learn/sandwich-api/internal/course"

// CourseInitializeRequest starts a new course from the syllabus the
// learner accepted during onboarding. Any prior course is replaced
// wholesale.
type CourseInitializeRequest struct {
	SyllabusText  string                 `json:"syllabus_text" validate:"required,min=10"`
	CourseContext map[string]interface{} `json:"course_context"`
}

// WeekStateInfo is the derived display state for one week.
type WeekStateInfo struct {
	WeekNumber    int    `json:"week_number"`
	Title         string `json:"title"`
	State         string `json:"state"`
	QuizCompleted bool   `json:"quiz_completed"`
	LessonCount   int    `json:"lesson_count"`
}

// CourseResponse is the course with everything the syllabus page
// renders: per-week states, the cursor and the progress percentage.
type CourseResponse struct {
	CourseData     course.CourseData `json:"course_data"`
	WeekStates     []WeekStateInfo   `json:"week_states"`
	CurrentWeek    int               `json:"current_week"`
	ActiveSection  string            `json:"active_section"`
	ProgressPct    int               `json:"progress_pct"`
	CourseComplete bool              `json:"course_complete"`
}

// NavigateRequest moves the section cursor one step.
type NavigateRequest struct {
	Direction string `json:"direction" validate:"required,oneof=next previous"`
}

// SectionResponse is the current cursor position plus the navigation
// affordances the UI renders.
type SectionResponse struct {
	CurrentWeek    int    `json:"current_week"`
	ActiveSection  string `json:"active_section"`
	CanAdvance     bool   `json:"can_advance"`
	CanRetreat     bool   `json:"can_retreat"`
	CourseComplete bool   `json:"course_complete"`
}

// NavigateResponse is the committed cursor after a navigation step.
// WeekContent is attached when the move crossed a week boundary and
// fresh content was fetched.
type NavigateResponse struct {
	CurrentWeek    int                 `json:"current_week"`
	ActiveSection  string              `json:"active_section"`
	Moved          bool                `json:"moved"`
	CourseComplete bool                `json:"course_complete,omitempty"`
	WeekContent    *course.WeekContent `json:"week_content,omitempty"`
}

// WeekProgress is one row of the progress breakdown.
type WeekProgress struct {
	WeekNumber       int      `json:"week_number"`
	State            string   `json:"state"`
	LessonsCompleted int      `json:"lessons_completed"`
	LessonCount      int      `json:"lesson_count"`
	QuizCompleted    bool     `json:"quiz_completed"`
	QuizPercentage   *float64 `json:"quiz_percentage,omitempty"`
}

// ProgressResponse is the aggregate percentage with its per-week
// breakdown.
type ProgressResponse struct {
	ProgressPct    int            `json:"progress_pct"`
	CourseComplete bool           `json:"course_complete"`
	Weeks          []WeekProgress `json:"weeks"`
}

// LessonCompleteResponse reports the effect of marking a lesson done.
type LessonCompleteResponse struct {
	NewlyCompleted  bool `json:"newly_completed"`
	WeekCompleted   bool `json:"week_completed"`
	ProgressPct     int  `json:"progress_pct"`
	WellbeingPrompt bool `json:"wellbeing_prompt,omitempty"`
}

// WeekGrade is one week's quiz outcome inside the completion summary.
type WeekGrade struct {
	WeekNumber  int     `json:"week_number"`
	Percentage  float64 `json:"percentage"`
	GradeLetter string  `json:"grade_letter,omitempty"`
}

// CourseSummaryResponse is the completion summary. Complete flips true
// once every week's quiz has a passing result.
type CourseSummaryResponse struct {
	Complete         bool                 `json:"complete"`
	CourseTitle      string               `json:"course_title"`
	Difficulty       string               `json:"difficulty,omitempty"`
	TotalWeeks       int                  `json:"total_weeks"`
	LessonsCompleted int                  `json:"lessons_completed"`
	QuizzesPassed    int                  `json:"quizzes_passed"`
	AverageQuizPct   float64              `json:"average_quiz_pct"`
	ProgressPct      int                  `json:"progress_pct"`
	Grades           []WeekGrade          `json:"grades"`
	Summary          course.CourseSummary `json:"summary"`
}
