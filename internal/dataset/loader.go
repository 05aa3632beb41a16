package dataset

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"chart-race/internal/config"
	"chart-race/internal/models"
	"chart-race/internal/storage"
)

// Catalogue is a remote source of tracks with popularity scores.
type Catalogue interface {
	ArtistTracks(ctx context.Context, artistID string) ([]models.Track, error)
}

// Loader fetches the dataset once at startup from the configured source.
type Loader struct {
	cfg       *config.Config
	storage   *storage.Client
	db        *gorm.DB
	catalogue Catalogue
}

func NewLoader(cfg *config.Config, store *storage.Client, db *gorm.DB, catalogue Catalogue) *Loader {
	return &Loader{cfg: cfg, storage: store, db: db, catalogue: catalogue}
}

// Load returns the records in input order. Any fetch failure is returned to
// the caller; nothing is retried.
func (l *Loader) Load(ctx context.Context) ([]models.Track, error) {
	switch l.cfg.Dataset.Source {
	case "file":
		return l.FromFile(l.cfg.Dataset.Key)
	case "db":
		return l.FromDB(ctx, l.cfg.Dataset.Key)
	case "spotify":
		return l.FromCatalogue(ctx, l.cfg.Services.SpotifyArtistID)
	default:
		return nil, fmt.Errorf("unknown dataset source %q", l.cfg.Dataset.Source)
	}
}

// FromFile downloads and parses one CSV object from storage.
func (l *Loader) FromFile(key string) ([]models.Track, error) {
	if l.storage == nil {
		return nil, fmt.Errorf("dataset %s: no storage configured", key)
	}
	obj, err := l.storage.DownloadFile(key)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset %s: %w", key, err)
	}
	defer obj.Body.Close()

	tracks, report, err := Parse(obj.Body, ParseOptions{Strict: l.cfg.Dataset.Strict, Source: key})
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", key, err)
	}
	logReport(key, report)
	return tracks, nil
}

// FromDB reads previously ingested rows for a source, in their original order.
// An empty source name reads every row.
func (l *Loader) FromDB(ctx context.Context, source string) ([]models.Track, error) {
	if l.db == nil {
		return nil, fmt.Errorf("dataset: no database configured")
	}
	query := l.db.WithContext(ctx).Model(&models.Track{})
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var tracks []models.Track
	if err := query.Order("source ASC").Order("position ASC").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("load tracks from db: %w", err)
	}
	log.Printf("📚 Loaded %d tracks from database (source=%q)", len(tracks), source)
	return tracks, nil
}

// FromCatalogue pulls an artist's tracks from the remote catalogue.
func (l *Loader) FromCatalogue(ctx context.Context, artistID string) ([]models.Track, error) {
	if l.catalogue == nil {
		return nil, fmt.Errorf("dataset: no catalogue configured")
	}
	if artistID == "" {
		return nil, fmt.Errorf("dataset: catalogue source needs an artist id")
	}
	tracks, err := l.catalogue.ArtistTracks(ctx, artistID)
	if err != nil {
		return nil, fmt.Errorf("fetch catalogue for %s: %w", artistID, err)
	}
	return tracks, nil
}

func logReport(key string, report *Report) {
	log.Printf("📄 Dataset %s: %d rows, %d skipped", key, report.Rows, len(report.Skipped))
	for _, skipped := range report.Skipped {
		log.Printf("⚠️ Skipped %s: %v", key, skipped)
	}
	if report.OutOfRange > 0 {
		log.Printf("⚠️ %d rows in %s have popularity outside 0-100", report.OutOfRange, key)
	}
}
