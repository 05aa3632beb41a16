package models

import (
	"time"

	"gorm.io/gorm"
)

// Track is one row of the popularity dataset.
type Track struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TrackName   string    `gorm:"index;not null" json:"track_name"`
	ReleaseDate time.Time `gorm:"index" json:"release_date"`
	Popularity  float64   `json:"popularity"` // 0-100, not enforced

	// Provenance. Position is the row index in the source file and keeps the
	// input order stable when the dataset is read back from the database.
	Source   string `gorm:"uniqueIndex:idx_track_source_position;size:255" json:"-"`
	Position int    `gorm:"uniqueIndex:idx_track_source_position" json:"-"`
}

// Year is the calendar year of the release date, in UTC.
func (t Track) Year() int {
	return t.ReleaseDate.UTC().Year()
}
