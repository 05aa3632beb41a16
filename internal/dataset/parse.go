package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"chart-race/internal/models"
)

var ErrMissingColumn = errors.New("dataset: missing required column")

// Layouts accepted for release_date, most specific first. Dates without a
// zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// RowError describes one skipped input row. Row is 1-based and counts the header.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Report summarizes a parse.
type Report struct {
	Rows       int
	Skipped    []RowError
	OutOfRange int
}

type ParseOptions struct {
	// Strict fails the parse on the first malformed row instead of skipping it.
	Strict bool
	Source string
}

// Parse reads a delimited file with at least the columns track_name,
// release_date and popularity. Extra columns are ignored.
func Parse(r io.Reader, opts ParseOptions) ([]models.Track, *Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &Report{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	report := &Report{}
	var tracks []models.Track
	row := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return tracks, report, fmt.Errorf("row %d: %w", row, err)
		}
		if isBlank(record) {
			continue
		}
		report.Rows++

		track, err := parseRecord(record, cols)
		if err != nil {
			rowErr := RowError{Row: row, Err: err}
			if opts.Strict {
				return nil, report, rowErr
			}
			report.Skipped = append(report.Skipped, rowErr)
			continue
		}
		if track.Popularity < 0 || track.Popularity > 100 {
			report.OutOfRange++
		}

		track.Source = opts.Source
		track.Position = len(tracks)
		tracks = append(tracks, track)
	}

	return tracks, report, nil
}

type columns struct {
	name, date, popularity int
}

func columnIndex(header []string) (columns, error) {
	cols := columns{name: -1, date: -1, popularity: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "track_name":
			cols.name = i
		case "release_date":
			cols.date = i
		case "popularity":
			cols.popularity = i
		}
	}

	var missing []string
	if cols.name < 0 {
		missing = append(missing, "track_name")
	}
	if cols.date < 0 {
		missing = append(missing, "release_date")
	}
	if cols.popularity < 0 {
		missing = append(missing, "popularity")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return cols, nil
}

func parseRecord(record []string, cols columns) (models.Track, error) {
	field := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := field(cols.name)
	if name == "" {
		return models.Track{}, errors.New("empty track_name")
	}

	date, err := ParseReleaseDate(field(cols.date))
	if err != nil {
		return models.Track{}, err
	}

	popularity, err := strconv.ParseFloat(field(cols.popularity), 64)
	if err != nil {
		return models.Track{}, fmt.Errorf("invalid popularity %q", field(cols.popularity))
	}

	return models.Track{
		TrackName:   name,
		ReleaseDate: date,
		Popularity:  popularity,
	}, nil
}

// ParseReleaseDate accepts full dates as well as the year or year-month
// precision some catalogues export.
func ParseReleaseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty release_date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid release_date %q", s)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
