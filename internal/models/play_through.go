package models

import "time"

const (
	PlayThroughPlaying  = "playing"
	PlayThroughPaused   = "paused"
	PlayThroughFinished = "finished"
	PlayThroughReset    = "reset"
)

// PlayThrough records one run of the race animation, from year index 0 until
// it finishes or gets interrupted.
type PlayThrough struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	RunID         string     `gorm:"uniqueIndex;size:36;not null" json:"run_id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	FramesEmitted int        `gorm:"default:0" json:"frames_emitted"`
	LastYear      int        `json:"last_year"`
	Status        string     `gorm:"size:20;index" json:"status"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
