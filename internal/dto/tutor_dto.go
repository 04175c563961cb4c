package dto

// StudyTipsResponse is the per-week coaching list, capped at five
// tips.
type StudyTipsResponse struct {
	WeekNumber int      `json:"week_number"`
	Tips       []string `json:"tips"`
	Cached     bool     `json:"cached,omitempty"`
}

// TutorHelpRequest relays a free-form question about the current
// material.
type TutorHelpRequest struct {
	Question string `json:"question" validate:"required,min=3,max=2000"`
}

// TutorHelpResponse is the tutor's sanitized markdown answer.
type TutorHelpResponse struct {
	Answer string `json:"answer"`
}
