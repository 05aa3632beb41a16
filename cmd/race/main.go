package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"chart-race/internal/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	app := &cli.App{
		Name:  "race",
		Usage: "Animated popularity race over a music catalogue, year by year.",
		Commands: []*cli.Command{
			serveCommand(),
			simulateCommand(),
			ingestCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("❌", err)
		os.Exit(1)
	}
}

// loadConfig reads config.yaml and the environment, then applies the flags
// every command shares.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if c.IsSet("source") {
		cfg.Dataset.Source = c.String("source")
	}
	if c.IsSet("key") {
		cfg.Dataset.Key = c.String("key")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setupSlog(cfg.Server.LogLevel)
	return cfg, nil
}

func setupSlog(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

var datasetFlags = []cli.Flag{
	&cli.StringFlag{Name: "source", Usage: "dataset source: file, db or spotify"},
	&cli.StringFlag{Name: "key", Usage: "dataset key (storage key for file, source name for db)"},
}
