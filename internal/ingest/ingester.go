package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"chart-race/internal/config"
	"chart-race/internal/dataset"
	"chart-race/internal/models"
	"chart-race/internal/storage"
)

const insertBatchSize = 200

var (
	jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_ingest_jobs_total",
			Help: "Total ingest jobs",
		},
		[]string{"status"},
	)
	duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "race_ingest_duration_seconds",
			Help:    "Processing time",
			Buckets: prometheus.DefBuckets,
		},
	)
	rowsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "race_ingest_rows_total",
			Help: "Track rows written to the database",
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(jobs, duration, rowsImported)
}

// Worker moves datasets into the database, either on demand (Import) or by
// watching the storage ingest prefix (Run).
type Worker struct {
	cfg     *config.Config
	storage *storage.Client
	db      *gorm.DB
	now     func() time.Time
}

func New(cfg *config.Config, store *storage.Client, db *gorm.DB) *Worker {
	return &Worker{cfg: cfg, storage: store, db: db, now: time.Now}
}

// Import replaces every row of source with tracks, in one transaction.
// Positions are renumbered from zero so the stored order is the slice order.
func (w *Worker) Import(ctx context.Context, source string, tracks []models.Track) (int, error) {
	timer := prometheus.NewTimer(duration)
	defer timer.ObserveDuration()

	rows := make([]models.Track, len(tracks))
	for i, t := range tracks {
		rows[i] = models.Track{
			TrackName:   t.TrackName,
			ReleaseDate: t.ReleaseDate.UTC(),
			Popularity:  t.Popularity,
			Source:      source,
			Position:    i,
		}
	}

	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("source = ?", source).Delete(&models.Track{}).Error; err != nil {
			return fmt.Errorf("clear %s: %w", source, err)
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		jobs.WithLabelValues("failure").Inc()
		return 0, err
	}

	jobs.WithLabelValues("success").Inc()
	rowsImported.Add(float64(len(rows)))
	return len(rows), nil
}

// ImportFile parses one stored CSV and imports it under its source name.
func (w *Worker) ImportFile(ctx context.Context, key string) (*dataset.Report, error) {
	obj, err := w.storage.DownloadFile(key)
	if err != nil {
		jobs.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer obj.Body.Close()

	source := SourceName(key, w.storage.IngestPrefix())
	tracks, report, err := dataset.Parse(obj.Body, dataset.ParseOptions{
		Strict: w.cfg.Dataset.Strict,
		Source: source,
	})
	if err != nil {
		jobs.WithLabelValues("failure").Inc()
		return report, fmt.Errorf("parse %s: %w", key, err)
	}

	if _, err := w.Import(ctx, source, tracks); err != nil {
		return report, err
	}
	return report, nil
}

// Run polls the ingest prefix until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	interval := time.Duration(w.cfg.Server.PollingInterval) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("👀 Watcher started on '%s' every %v...", w.storage.IngestPrefix(), interval)
	w.processQueue(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.processQueue(ctx)
		}
	}
}

func (w *Worker) processQueue(ctx context.Context) {
	keys, err := w.storage.ListIngestFiles()
	if err != nil {
		log.Printf("Error listing ingest queue: %v", err)
		return
	}

	if len(keys) > 0 {
		log.Printf("Found %d items in ingest queue.", len(keys))
	}

	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		if strings.HasPrefix(key, failedPrefix) {
			continue
		}

		log.Printf("Processing: %s", key)
		report, err := w.ImportFile(ctx, key)
		switch {
		case err == nil:
			log.Printf("✅ IMPORTED %s (%d rows, %d skipped)", key, report.Rows-len(report.Skipped), len(report.Skipped))
			if err := w.storage.DeleteFile(key); err != nil {
				log.Printf("⚠️ Could not remove %s from the queue: %v", key, err)
			}
		case isUnreadable(err):
			// Remove from queue so it doesn't loop.
			dst := FailedKey(key, w.now())
			log.Printf("❌ FAILED %s: %v (moved to %s)", key, err, dst)
			if err := w.storage.MoveFile(key, dst); err != nil {
				log.Printf("⚠️ Could not park %s: %v", key, err)
			}
		default:
			// Storage or database trouble: keep the file for the next poll.
			log.Printf("❌ FAILED %s: %v (will retry)", key, err)
		}
	}
}

// isUnreadable reports errors that retrying the same file cannot fix.
func isUnreadable(err error) bool {
	var rowErr dataset.RowError
	var csvErr *csv.ParseError
	return errors.Is(err, dataset.ErrMissingColumn) || errors.As(err, &rowErr) || errors.As(err, &csvErr)
}
