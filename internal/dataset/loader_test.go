package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chart-race/internal/config"
	"chart-race/internal/models"
	"chart-race/internal/storage"
)

type fakeCatalogue struct {
	tracks []models.Track
	err    error
}

func (f *fakeCatalogue) ArtistTracks(ctx context.Context, artistID string) ([]models.Track, error) {
	return f.tracks, f.err
}

func setupLoaderDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	d.AutoMigrate(&models.Track{})
	return d
}

func TestLoaderFromFile(t *testing.T) {
	var cfg config.Config
	cfg.Dataset.Source = "file"
	cfg.Dataset.Key = "csv/eminem.csv"

	store := storage.NewWithProvider(storage.NewLocalProvider(t.TempDir()), "datasets", "incoming/")
	store.UploadFile("csv/eminem.csv", strings.NewReader(sampleCSV), "text/csv")

	tracks, err := NewLoader(&cfg, store, nil, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(tracks) != 4 {
		t.Errorf("got %d tracks, want 4", len(tracks))
	}
}

func TestLoaderFromFileMissing(t *testing.T) {
	var cfg config.Config
	cfg.Dataset.Source = "file"
	cfg.Dataset.Key = "csv/missing.csv"

	store := storage.NewWithProvider(storage.NewLocalProvider(t.TempDir()), "datasets", "incoming/")

	_, err := NewLoader(&cfg, store, nil, nil).Load(context.Background())
	if err == nil {
		t.Fatal("a missing dataset must surface an error")
	}
	if !strings.Contains(err.Error(), "csv/missing.csv") {
		t.Errorf("error should name the dataset: %v", err)
	}
}

func TestLoaderFromDBKeepsPositionOrder(t *testing.T) {
	db := setupLoaderDB(t)
	day := time.Date(2010, 6, 18, 0, 0, 0, 0, time.UTC)

	// Insert out of order on purpose.
	db.Create(&[]models.Track{
		{TrackName: "C", ReleaseDate: day, Popularity: 10, Source: "a.csv", Position: 2},
		{TrackName: "A", ReleaseDate: day, Popularity: 30, Source: "a.csv", Position: 0},
		{TrackName: "Other", ReleaseDate: day, Popularity: 99, Source: "b.csv", Position: 0},
		{TrackName: "B", ReleaseDate: day, Popularity: 20, Source: "a.csv", Position: 1},
	})

	var cfg config.Config
	cfg.Dataset.Source = "db"
	cfg.Dataset.Key = "a.csv"

	tracks, err := NewLoader(&cfg, nil, db, nil).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var names []string
	for _, tr := range tracks {
		names = append(names, tr.TrackName)
	}
	if strings.Join(names, ",") != "A,B,C" {
		t.Errorf("got order %v, want A,B,C", names)
	}
}

func TestLoaderFromCatalogue(t *testing.T) {
	var cfg config.Config
	cfg.Dataset.Source = "spotify"
	cfg.Services.SpotifyArtistID = "7dGJo4pcD2V6oG8kP0tJRR"

	want := []models.Track{{TrackName: "Lose Yourself"}}
	tracks, err := NewLoader(&cfg, nil, nil, &fakeCatalogue{tracks: want}).Load(context.Background())
	if err != nil || len(tracks) != 1 {
		t.Fatalf("Load = %v, %v", tracks, err)
	}

	boom := errors.New("rate limited")
	_, err = NewLoader(&cfg, nil, nil, &fakeCatalogue{err: boom}).Load(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped catalogue error, got %v", err)
	}
}
