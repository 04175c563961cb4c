package course

import "time"

// Quiz session lifecycle.
const (
	QuizStatusActive    = "active"
	QuizStatusSubmitted = "submitted"
)

// Quiz is a generated assessment for one week.
type Quiz struct {
	QuizID      string         `json:"quiz_id"`
	WeekNumber  int            `json:"week_number"`
	Title       string         `json:"title,omitempty"`
	Questions   []QuizQuestion `json:"questions"`
	TotalPoints int            `json:"total_points"`
}

// QuizQuestion is a single question. Options are empty for free-text
// question types.
type QuizQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Type     string   `json:"type,omitempty"`
	Options  []string `json:"options,omitempty"`
	Points   int      `json:"points,omitempty"`
}

// QuizSession tracks one timed attempt at a week's quiz. A submission
// arriving after the limit is still graded but flagged auto-submitted.
type QuizSession struct {
	Quiz             Quiz      `json:"quiz"`
	WeekNumber       int       `json:"week_number"`
	StartedAt        time.Time `json:"started_at"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	Status           string    `json:"status"`
}

// Deadline returns the instant the attempt times out.
func (qs *QuizSession) Deadline() time.Time {
	return qs.StartedAt.Add(time.Duration(qs.TimeLimitMinutes) * time.Minute)
}

// TimeRemaining returns the seconds left in the attempt, clamped at
// zero once the deadline passes.
func (qs *QuizSession) TimeRemaining(now time.Time) int {
	remaining := qs.Deadline().Sub(now)
	if remaining < 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// Expired reports whether the attempt ran past its time limit.
func (qs *QuizSession) Expired(now time.Time) bool {
	return now.After(qs.Deadline())
}

// QuizResult is the graded outcome for one week, keyed by WeekKey.
// At most one entry exists per week; a retake overwrites the prior
// entry.
type QuizResult struct {
	WeekNumber        int               `json:"week_number"`
	Results           QuizResultDetails `json:"results"`
	AdaptationSummary string            `json:"adaptation_summary,omitempty"`
	AutoSubmitted     bool              `json:"auto_submitted,omitempty"`
	CompletedAt       time.Time         `json:"completed_at"`
}

// QuizResultDetails mirrors the grading payload produced by the tutor
// backend.
type QuizResultDetails struct {
	QuizID          string             `json:"quiz_id,omitempty"`
	TotalQuestions  int                `json:"total_questions,omitempty"`
	TotalPoints     int                `json:"total_points,omitempty"`
	UserScore       float64            `json:"user_score"`
	CorrectAnswers  int                `json:"correct_answers"`
	Percentage      float64            `json:"percentage"`
	GradeLetter     string             `json:"grade_letter,omitempty"`
	Feedback        []QuestionFeedback `json:"feedback,omitempty"`
	OverallFeedback string             `json:"overall_feedback,omitempty"`
}

// QuestionFeedback is the per-question breakdown inside a graded
// result.
type QuestionFeedback struct {
	QuestionNumber int    `json:"question_number,omitempty"`
	Question       string `json:"question,omitempty"`
	Correct        bool   `json:"correct"`
	UserAnswer     string `json:"user_answer,omitempty"`
	CorrectAnswer  string `json:"correct_answer,omitempty"`
	PointsEarned   int    `json:"points_earned,omitempty"`
	PointsPossible int    `json:"points_possible,omitempty"`
	Feedback       string `json:"feedback,omitempty"`
}

// Passed reports whether the result clears the unlock threshold. The
// comparison is strictly greater-than.
func (r QuizResult) Passed(threshold int) bool {
	return r.Results.Percentage > float64(threshold)
}
