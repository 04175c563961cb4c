package dto

// ChatStepRequest is one learner turn in the onboarding conversation.
// An empty message is valid for the opening turn.
type ChatStepRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// ChatStepResponse mirrors the backend conversation reply. Syllabus
// and CourseContext are present once the course is ready to
// initialize.
type ChatStepResponse struct {
	State         string                 `json:"state"`
	Bot           string                 `json:"bot"`
	Summary       map[string]interface{} `json:"summary,omitempty"`
	Syllabus      string                 `json:"syllabus,omitempty"`
	CourseReady   bool                   `json:"course_ready,omitempty"`
	CourseContext map[string]interface{} `json:"course_context,omitempty"`
	Error         string                 `json:"error,omitempty"`
}
