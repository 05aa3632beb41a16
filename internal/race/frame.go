package race

import (
	"sort"

	"chart-race/internal/models"
)

const DefaultTopN = 10

// Frame is the ranked subset of one year, the unit of one animation step.
type Frame struct {
	RunID     string         `json:"run_id,omitempty"`
	Year      int            `json:"year"`
	YearIndex int            `json:"year_index"`
	YearCount int            `json:"year_count"`
	Tracks    []models.Track `json:"tracks"`
	Final     bool           `json:"final"`
}

// Keys returns the track names of the frame, in rank order.
func (f Frame) Keys() []string {
	keys := make([]string, len(f.Tracks))
	for i, t := range f.Tracks {
		keys[i] = t.TrackName
	}
	return keys
}

// TopN returns at most n tracks by descending popularity. Equal scores keep
// their input order. The argument is not modified.
func TopN(tracks []models.Track, n int) []models.Track {
	ranked := make([]models.Track, len(tracks))
	copy(ranked, tracks)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Popularity > ranked[j].Popularity
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
