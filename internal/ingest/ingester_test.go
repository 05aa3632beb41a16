package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chart-race/internal/config"
	"chart-race/internal/models"
	"chart-race/internal/storage"
)

const goodCSV = `track_name,release_date,popularity
Lose Yourself,2002-10-28,84
Without Me,2002-05-26,83
Mockingbird,2004-11-12,80
`

func setupWorker(t *testing.T) (*Worker, *storage.Client, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Track{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// One connection, or the transaction may land on a fresh in-memory database.
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	var cfg config.Config
	cfg.Server.PollingInterval = 1
	store := storage.NewWithProvider(storage.NewLocalProvider(t.TempDir()), "datasets", "incoming/")

	w := New(&cfg, store, db)
	w.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return w, store, db
}

func trackNames(t *testing.T, db *gorm.DB, source string) []string {
	t.Helper()
	var rows []models.Track
	if err := db.Where("source = ?", source).Order("position").Find(&rows).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.TrackName
	}
	return names
}

func TestImportReplacesSource(t *testing.T) {
	w, _, db := setupWorker(t)
	ctx := context.Background()
	day := time.Date(2010, 6, 18, 0, 0, 0, 0, time.UTC)

	first := []models.Track{
		{TrackName: "Not Afraid", ReleaseDate: day, Popularity: 79},
		{TrackName: "Love The Way You Lie", ReleaseDate: day, Popularity: 85},
	}
	if n, err := w.Import(ctx, "recovery.csv", first); err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	w.Import(ctx, "other.csv", first[:1])

	second := []models.Track{
		{TrackName: "No Love", ReleaseDate: day, Popularity: 70, Position: 41},
	}
	if _, err := w.Import(ctx, "recovery.csv", second); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	if got := trackNames(t, db, "recovery.csv"); strings.Join(got, ",") != "No Love" {
		t.Errorf("recovery.csv = %v, want only the new rows", got)
	}
	if got := trackNames(t, db, "other.csv"); len(got) != 1 {
		t.Errorf("other sources must be untouched, got %v", got)
	}

	var row models.Track
	db.Where("source = ?", "recovery.csv").First(&row)
	if row.Position != 0 {
		t.Errorf("positions are renumbered, got %d", row.Position)
	}

	if _, err := w.Import(ctx, "recovery.csv", nil); err != nil {
		t.Fatalf("empty import: %v", err)
	}
	if got := trackNames(t, db, "recovery.csv"); len(got) != 0 {
		t.Errorf("empty import should clear the source, got %v", got)
	}
}

func TestProcessQueue(t *testing.T) {
	w, store, db := setupWorker(t)

	store.UploadFile("incoming/eminem.csv", strings.NewReader(goodCSV), "text/csv")
	store.UploadFile("incoming/broken.csv", strings.NewReader("name,score\nA,1\n"), "text/csv")
	store.UploadFile("incoming/notes.txt", strings.NewReader("ignored"), "text/plain")

	w.processQueue(context.Background())

	if got := trackNames(t, db, "eminem.csv"); strings.Join(got, ",") != "Lose Yourself,Without Me,Mockingbird" {
		t.Errorf("imported = %v", got)
	}
	if ok, _ := store.Exists("incoming/eminem.csv"); ok {
		t.Error("imported file should leave the queue")
	}
	if ok, _ := store.Exists("incoming/broken.csv"); ok {
		t.Error("unreadable file should leave the queue")
	}
	if ok, _ := store.Exists("failed/20260304T050607-broken.csv"); !ok {
		t.Error("unreadable file should be parked under failed/")
	}
	if ok, _ := store.Exists("incoming/notes.txt"); !ok {
		t.Error("non-csv files are not touched")
	}
}

func TestImportFileStrict(t *testing.T) {
	w, store, db := setupWorker(t)
	w.cfg.Dataset.Strict = true

	store.UploadFile("incoming/dirty.csv", strings.NewReader(goodCSV+"Bad Row,someday,50\n"), "text/csv")

	if _, err := w.ImportFile(context.Background(), "incoming/dirty.csv"); err == nil || !isUnreadable(err) {
		t.Fatalf("strict import should fail as unreadable, got %v", err)
	}
	if got := trackNames(t, db, "dirty.csv"); len(got) != 0 {
		t.Errorf("nothing should be written on a strict failure, got %v", got)
	}

	w.cfg.Dataset.Strict = false
	report, err := w.ImportFile(context.Background(), "incoming/dirty.csv")
	if err != nil {
		t.Fatalf("lenient import: %v", err)
	}
	if len(report.Skipped) != 1 || len(trackNames(t, db, "dirty.csv")) != 3 {
		t.Errorf("expected 3 rows and 1 skipped, report %+v", report)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	w, _, _ := setupWorker(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestNaming(t *testing.T) {
	if got := SourceName("incoming/2024/eminem.csv", "incoming/"); got != "2024/eminem.csv" {
		t.Errorf("SourceName = %q", got)
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := FailedKey("incoming/The Slim Shady LP.csv", at); got != "failed/20260102T030405-The_Slim_Shady_LP.csv" {
		t.Errorf("FailedKey = %q", got)
	}
}
