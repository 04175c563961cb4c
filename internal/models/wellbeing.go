package models

import (
	"time"

	"gorm.io/datatypes"
)

// WellbeingCheckpoint tracks how many check-in opportunities a learner
// has accrued and when a prompt was last shown. It outlives the course
// session so a restart does not re-prompt immediately.
type WellbeingCheckpoint struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	SessionRef          string    `gorm:"size:64;uniqueIndex;not null" json:"session_ref"`
	CheckpointCount     int       `gorm:"not null;default:0" json:"checkpoint_count"`
	LastShownCheckpoint int       `gorm:"not null;default:0" json:"last_shown_checkpoint"`
	LastRisk            string    `gorm:"size:16" json:"last_risk,omitempty"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// WellbeingCheckIn is one submitted check-in with its scored outcome.
// Scores holds the raw answers so trends can be reviewed later.
type WellbeingCheckIn struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	SessionRef    string            `gorm:"size:64;index;not null" json:"session_ref"`
	Mood          int               `gorm:"not null" json:"mood"`
	PHQ2Total     int               `gorm:"not null" json:"phq2_total"`
	GAD2Total     int               `gorm:"not null" json:"gad2_total"`
	Risk          string            `gorm:"size:16;not null" json:"risk"`
	ShowResources bool              `gorm:"not null;default:false" json:"show_resources"`
	Scores        datatypes.JSONMap `gorm:"type:json" json:"scores"`
	CreatedAt     time.Time         `json:"created_at"`
}
