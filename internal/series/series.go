package series

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"chart-race/internal/models"
)

const DefaultYTickCount = 6

type Point struct {
	TrackName   string    `json:"track_name"`
	ReleaseDate time.Time `json:"release_date"`
	Popularity  float64   `json:"popularity"`
	Tooltip     string    `json:"tooltip"`
}

type TimeDomain struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Series is everything the line chart needs: chronological points, both
// domains and the axis ticks.
type Series struct {
	Points []Point     `json:"points"`
	X      TimeDomain  `json:"x"`
	Y      Domain      `json:"y"`
	XTicks []time.Time `json:"x_ticks"`
	YTicks []float64   `json:"y_ticks"`
	Layout Layout      `json:"layout"`
}

// Build sorts the tracks by release date (ties keep input order) and derives
// domains and ticks. The y domain always starts at zero.
func Build(tracks []models.Track, layout Layout) Series {
	sorted := make([]models.Track, len(tracks))
	copy(sorted, tracks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReleaseDate.Before(sorted[j].ReleaseDate)
	})

	s := Series{Points: make([]Point, len(sorted)), Layout: layout}
	if len(sorted) == 0 {
		return s
	}

	maxPop := 0.0
	for i, t := range sorted {
		s.Points[i] = Point{
			TrackName:   t.TrackName,
			ReleaseDate: t.ReleaseDate.UTC(),
			Popularity:  t.Popularity,
			Tooltip:     Tooltip(t),
		}
		maxPop = math.Max(maxPop, t.Popularity)
	}

	s.X = TimeDomain{Min: s.Points[0].ReleaseDate, Max: s.Points[len(s.Points)-1].ReleaseDate}
	s.Y = Domain{Min: 0, Max: maxPop}
	s.XTicks = YearTicks(s.X.Min, s.X.Max)

	count := layout.YTickCount
	if count <= 0 {
		count = DefaultYTickCount
	}
	s.YTicks = NiceTicks(s.Y.Min, s.Y.Max, count)
	return s
}

// Tooltip is the hover text of one point.
func Tooltip(t models.Track) string {
	return fmt.Sprintf("%s - Popularity: %s", t.TrackName, strconv.FormatFloat(t.Popularity, 'f', -1, 64))
}

// YearTicks returns January 1st of every year inside [min, max].
func YearTicks(min, max time.Time) []time.Time {
	min, max = min.UTC(), max.UTC()
	if max.Before(min) {
		return nil
	}

	year := min.Year()
	if !min.Equal(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)) {
		year++
	}

	var ticks []time.Time
	for ; year <= max.Year(); year++ {
		ticks = append(ticks, time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC))
	}
	return ticks
}

// NiceTicks returns round values spaced by 1, 2 or 5 times a power of ten,
// about count of them, covering [start, stop].
func NiceTicks(start, stop float64, count int) []float64 {
	if count <= 0 || math.IsNaN(start) || math.IsNaN(stop) {
		return nil
	}
	if start == stop {
		return []float64{start}
	}
	if stop < start {
		start, stop = stop, start
	}

	step := (stop - start) / float64(count)
	power := math.Floor(math.Log10(step))
	rel := step / math.Pow(10, power)

	factor := 1.0
	switch {
	case rel >= math.Sqrt(50):
		factor = 10
	case rel >= math.Sqrt(10):
		factor = 5
	case rel >= math.Sqrt(2):
		factor = 2
	}

	// Work in integer multiples so 0.1 steps do not accumulate float error.
	var ticks []float64
	if power >= 0 {
		inc := factor * math.Pow(10, power)
		for i := math.Ceil(start / inc); i <= math.Floor(stop/inc); i++ {
			ticks = append(ticks, i*inc)
		}
	} else {
		inv := math.Pow(10, -power) / factor
		for i := math.Ceil(start * inv); i <= math.Floor(stop*inv); i++ {
			ticks = append(ticks, i/inv)
		}
	}
	return ticks
}
