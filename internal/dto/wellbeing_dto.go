package dto

// WellbeingCheckRequest is the learner's check-in: a mood rating 0-4
// and the PHQ-2 and GAD-2 screens with two items each, every item
// scored 0-3.
type WellbeingCheckRequest struct {
	Mood     int    `json:"mood" validate:"gte=0,lte=4"`
	PHQ2     []int  `json:"phq2" validate:"required,len=2,dive,gte=0,lte=3"`
	GAD2     []int  `json:"gad2" validate:"required,len=2,dive,gte=0,lte=3"`
	FreeText string `json:"free_text" validate:"max=2000"`
}

// WellbeingCheckResponse is the scored check-in relayed to the
// learner.
type WellbeingCheckResponse struct {
	Timestamp     string `json:"timestamp"`
	Mood          int    `json:"mood"`
	PHQ2Total     int    `json:"phq2_total"`
	GAD2Total     int    `json:"gad2_total"`
	Risk          string `json:"risk"`
	Message       string `json:"message"`
	ShowResources bool   `json:"show_resources"`
}

// WellbeingCheckpointResponse reports whether a check-in prompt is
// due.
type WellbeingCheckpointResponse struct {
	Due                 bool `json:"due"`
	CheckpointCount     int  `json:"checkpoint_count"`
	LastShownCheckpoint int  `json:"last_shown_checkpoint"`
}
