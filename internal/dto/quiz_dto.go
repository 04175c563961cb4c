package dto

import "github.com/sandwich-learn/sandwich-api/internal/course"

// QuizStartResponse carries the quiz and the remaining attempt time.
// Resumed is true when an active attempt already existed and was
// returned instead of generating a new quiz.
type QuizStartResponse struct {
	Quiz          course.Quiz `json:"quiz"`
	TimeRemaining int         `json:"time_remaining"`
	TimeLimit     int         `json:"time_limit_minutes"`
	Status        string      `json:"status"`
	Resumed       bool        `json:"resumed,omitempty"`
}

// QuizSubmitRequest carries the learner's answers keyed by question
// id.
type QuizSubmitRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1"`
}

// QuizSubmitResponse is the graded outcome with its progression side
// effects.
type QuizSubmitResponse struct {
	Result          course.QuizResult `json:"result"`
	Passed          bool              `json:"passed"`
	NextWeekReady   bool              `json:"next_week_ready,omitempty"`
	UnlockedWeek    int               `json:"unlocked_week,omitempty"`
	ProgressPct     int               `json:"progress_pct"`
	AutoSubmitted   bool              `json:"auto_submitted,omitempty"`
	WellbeingPrompt bool              `json:"wellbeing_prompt,omitempty"`
}
