package dto

import "time"

// SessionStartResponse carries the freshly issued learner session and
// the bearer token that scopes all other calls.
type SessionStartResponse struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStatusResponse answers the client's resume-or-restart
// decision on page load.
type SessionStatusResponse struct {
	Active      bool   `json:"active"`
	HasCourse   bool   `json:"has_course"`
	CurrentWeek int    `json:"current_week,omitempty"`
	CourseTitle string `json:"course_title,omitempty"`
}
