package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh/spinner"
	"github.com/urfave/cli/v2"

	"chart-race/internal/config"
	"chart-race/internal/dataset"
	database "chart-race/internal/db"
	"chart-race/internal/engine"
	"chart-race/internal/ingest"
	"chart-race/internal/models"
	"chart-race/internal/race"
	"chart-race/internal/render"
	"chart-race/internal/storage"
)

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func openInfra(cfg *config.Config) (*storage.Client, *database.Client, error) {
	store, err := storage.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the race with the HTTP API and the websocket feed",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "API listen address"},
			&cli.BoolFlag{Name: "no-autoplay", Usage: "wait for a play command instead of starting right away"},
		}, datasetFlags...),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("addr") {
				cfg.Server.Addr = c.String("addr")
			}
			if c.Bool("no-autoplay") {
				cfg.Race.Autoplay = false
			}

			log.Println("🚀 Starting Chart Race...")
			store, db, err := openInfra(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			race.RegisterMetrics()
			render.RegisterMetrics()

			ctx, stop := signalContext(c)
			defer stop()
			return engine.New(cfg, store, db).Run(ctx)
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Play the dataset once in the terminal",
		Flags: append([]cli.Flag{
			&cli.DurationFlag{Name: "delay", Usage: "time between years (default: race.frame_delay_ms)"},
			&cli.IntFlag{Name: "top", Usage: "bars per year (default: race.top_n)"},
		}, datasetFlags...),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			store, err := storage.New(cfg)
			if err != nil {
				return err
			}
			var db *database.Client
			if cfg.Dataset.Source == "db" {
				if db, err = database.New(cfg); err != nil {
					return err
				}
				defer db.Close()
			}

			ctx, stop := signalContext(c)
			defer stop()

			e := engine.New(cfg, store, db)
			tracks, err := e.LoadTracks(ctx)
			if err != nil {
				return err
			}

			delay := e.FrameDelay()
			if c.IsSet("delay") {
				delay = c.Duration("delay")
			}
			topN := cfg.Race.TopN
			if c.IsSet("top") {
				topN = c.Int("top")
			}

			return engine.Simulate(ctx, os.Stdout, tracks,
				race.WithFrameDelay(delay),
				race.WithTopN(topN),
			)
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Import a dataset into the database",
		ArgsUsage: "[storage key]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "artist", Usage: "import a Spotify artist catalogue instead of a file"},
			&cli.StringFlag{Name: "as", Usage: "source name to store the rows under"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			key := c.Args().First()
			artist := c.String("artist")
			if (key == "") == (artist == "") {
				return fmt.Errorf("give either a storage key or --artist")
			}

			store, db, err := openInfra(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signalContext(c)
			defer stop()

			worker := ingest.New(cfg, store, db.DB)
			var summary string

			action := func(ctx context.Context) error {
				var tracks []models.Track
				source := c.String("as")

				if artist != "" {
					catalogue, err := dataset.NewSpotifyCatalogue(ctx, cfg.Services.SpotifyID, cfg.Services.SpotifySecret)
					if err != nil {
						return err
					}
					if tracks, err = catalogue.ArtistTracks(ctx, artist); err != nil {
						return err
					}
					if source == "" {
						source = "spotify:artist:" + artist
					}
				} else {
					if tracks, err = dataset.NewLoader(cfg, store, nil, nil).FromFile(key); err != nil {
						return err
					}
					if source == "" {
						source = ingest.SourceName(key, store.IngestPrefix())
					}
				}

				n, err := worker.Import(ctx, source, tracks)
				if err != nil {
					return err
				}
				summary = fmt.Sprintf("✅ Imported %d tracks as %q", n, source)
				return nil
			}

			start := time.Now()
			if err := spinner.New().Title("Importing...").Context(ctx).ActionWithErr(action).Run(); err != nil {
				return err
			}
			fmt.Printf("%s in %v\n", summary, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll the storage ingest prefix and import every CSV that lands there",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log.Println("Starting Dataset Ingestion Worker...")

			store, db, err := openInfra(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ingest.RegisterMetrics()

			ctx, stop := signalContext(c)
			defer stop()

			go func() {
				if err := engine.ServeMetrics(ctx, cfg.Server.MetricsPort); err != nil && ctx.Err() == nil {
					log.Printf("⚠️ Metrics server error: %v", err)
				}
			}()

			if err := ingest.New(cfg, store, db.DB).Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
