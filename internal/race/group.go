package race

import "chart-race/internal/models"

// YearGroup holds every track released in one calendar year.
type YearGroup struct {
	Year   int
	Tracks []models.Track
}

// GroupByYear buckets tracks by release year. Groups come out in the order
// their year first appears in the input, not sorted by year.
func GroupByYear(tracks []models.Track) []YearGroup {
	index := make(map[int]int)
	var groups []YearGroup

	for _, t := range tracks {
		year := t.Year()
		i, ok := index[year]
		if !ok {
			i = len(groups)
			index[year] = i
			groups = append(groups, YearGroup{Year: year})
		}
		groups[i].Tracks = append(groups[i].Tracks, t)
	}
	return groups
}
