package engine

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	apiserver "chart-race/internal/api/server"
	"chart-race/internal/config"
	"chart-race/internal/dataset"
	database "chart-race/internal/db"
	"chart-race/internal/models"
	"chart-race/internal/race"
	"chart-race/internal/render"
	"chart-race/internal/series"
	"chart-race/internal/storage"
)

// Engine wires the dataset, the sequencer with its renderers, and the API.
type Engine struct {
	cfg     *config.Config
	storage *storage.Client
	db      *database.Client
}

func New(cfg *config.Config, store *storage.Client, db *database.Client) *Engine {
	return &Engine{cfg: cfg, storage: store, db: db}
}

func (e *Engine) FrameDelay() time.Duration {
	return time.Duration(e.cfg.Race.FrameDelayMs) * time.Millisecond
}

// LoadTracks reads the configured dataset source. The database is only
// needed for the db source. Failures are returned, the caller decides how to
// report them.
func (e *Engine) LoadTracks(ctx context.Context) ([]models.Track, error) {
	var catalogue dataset.Catalogue
	if e.cfg.Dataset.Source == "spotify" {
		sc, err := dataset.NewSpotifyCatalogue(ctx, e.cfg.Services.SpotifyID, e.cfg.Services.SpotifySecret)
		if err != nil {
			return nil, err
		}
		catalogue = sc
	}

	var db *gorm.DB
	if e.db != nil {
		db = e.db.DB
	}
	return dataset.NewLoader(e.cfg, e.storage, db, catalogue).Load(ctx)
}

// Run serves the race until ctx is cancelled or a component fails. It needs
// the database for play-through history.
func (e *Engine) Run(ctx context.Context) error {
	if e.db == nil {
		return errors.New("engine: serve needs a database")
	}

	tracks, err := e.LoadTracks(ctx)
	if err != nil {
		return err
	}

	layout, err := series.LoadLayout(e.cfg.Race.LayoutFile)
	if err != nil {
		return err
	}

	hub := render.NewHub(e.FrameDelay())
	history := render.NewHistory(e.db.DB)

	seq := race.New(tracks, render.Multi{hub, history},
		race.WithFrameDelay(e.FrameDelay()),
		race.WithTopN(e.cfg.Race.TopN),
		race.WithObserver(hub.BroadcastState),
		race.WithObserver(history.ObserveState),
	)
	hub.SetControl(seq)

	api := apiserver.New(e.cfg, apiserver.Deps{
		DB:     e.db.DB,
		Race:   seq,
		Feed:   hub,
		Series: series.Build(tracks, layout),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	go func() { errCh <- seq.Run(ctx) }()
	go func() { errCh <- api.Run(ctx, e.cfg.Server.Addr) }()
	go func() { errCh <- ServeMetrics(ctx, e.cfg.Server.MetricsPort) }()
	go history.Run(ctx)

	if e.cfg.Race.Autoplay {
		if _, err := seq.Play(ctx); err != nil {
			log.Printf("⚠️ Autoplay failed: %v", err)
		}
	}

	err = <-errCh
	cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServeMetrics exposes prometheus metrics on addr at /_metrics.
func ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/_metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	log.Printf("📊 Metrics exposed at http://localhost%s/_metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
