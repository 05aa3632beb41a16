package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Storage struct {
		Provider     string `mapstructure:"provider"`
		LocalStorage string `mapstructure:"local_path"`
		KeyID        string `mapstructure:"key_id"`
		AppKey       string `mapstructure:"app_key"`
		Endpoint     string `mapstructure:"endpoint"`
		Region       string `mapstructure:"region"`
		Bucket       string `mapstructure:"bucket"`
		IngestPrefix string `mapstructure:"ingest_prefix"`
	} `mapstructure:"storage"`
	Server struct {
		Addr            string `mapstructure:"addr"`
		MetricsPort     string `mapstructure:"metrics_port"`
		LogLevel        string `mapstructure:"log_level"`
		JWTSecret       string `mapstructure:"jwt_secret"`
		PollingInterval int    `mapstructure:"polling_interval_seconds"`
	} `mapstructure:"server"`
	Dataset struct {
		// Source is one of: file, db, spotify
		Source string `mapstructure:"source"`
		Key    string `mapstructure:"key"`
		Strict bool   `mapstructure:"strict"`
	} `mapstructure:"dataset"`
	Race struct {
		FrameDelayMs int    `mapstructure:"frame_delay_ms"`
		TopN         int    `mapstructure:"top_n"`
		LayoutFile   string `mapstructure:"layout_file"`
		Autoplay     bool   `mapstructure:"autoplay"`
	} `mapstructure:"race"`
	Database struct {
		Driver   string `mapstructure:"driver"`
		Path     string `mapstructure:"path"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Services struct {
		SpotifyID       string `mapstructure:"spotify_id"`
		SpotifySecret   string `mapstructure:"spotify_secret"`
		SpotifyArtistID string `mapstructure:"spotify_artist_id"`
	} `mapstructure:"services"`
}

var envKeys = []string{
	"storage.provider",
	"storage.local_path",
	"storage.key_id",
	"storage.app_key",
	"storage.endpoint",
	"storage.region",
	"storage.bucket",
	"storage.ingest_prefix",

	"server.addr",
	"server.metrics_port",
	"server.log_level",
	"server.jwt_secret",
	"server.polling_interval_seconds",

	"dataset.source",
	"dataset.key",
	"dataset.strict",

	"race.frame_delay_ms",
	"race.top_n",
	"race.layout_file",
	"race.autoplay",

	"database.driver",
	"database.path",
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.name",

	"services.spotify_id",
	"services.spotify_secret",
	"services.spotify_artist_id",
}

// Load reads config.yaml (if any) and RACE_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		v.BindEnv(key)
	}

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Warning: Config error: %s", err)
		} else {
			log.Println("Info: config.yaml not found, using Environment Variables only.")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.local_path", "./data")
	v.SetDefault("storage.bucket", "datasets")
	v.SetDefault("storage.ingest_prefix", "incoming/")

	v.SetDefault("server.addr", ":8082")
	v.SetDefault("server.metrics_port", ":9091")
	v.SetDefault("server.log_level", "error")
	v.SetDefault("server.polling_interval_seconds", 10)

	v.SetDefault("dataset.source", "file")
	v.SetDefault("dataset.key", "csv/eminem-Dataset.csv")

	// Reference animation: one year every 1.5s, top 10 bars.
	v.SetDefault("race.frame_delay_ms", 1500)
	v.SetDefault("race.top_n", 10)
	v.SetDefault("race.autoplay", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "chart-race.db")
	v.SetDefault("database.port", "5432")
}

// Validate rejects combinations the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Dataset.Source {
	case "file", "db", "spotify":
	default:
		return fmt.Errorf("unknown dataset source %q (RACE_DATASET_SOURCE)", c.Dataset.Source)
	}
	if c.Storage.Provider == "s3" && c.Storage.KeyID == "" {
		return fmt.Errorf("critical: S3 key id is missing (RACE_STORAGE_KEY_ID)")
	}
	if c.Dataset.Source == "spotify" && (c.Services.SpotifyID == "" || c.Services.SpotifySecret == "") {
		return fmt.Errorf("spotify source needs RACE_SERVICES_SPOTIFY_ID and RACE_SERVICES_SPOTIFY_SECRET")
	}
	if c.Race.FrameDelayMs <= 0 {
		return fmt.Errorf("race.frame_delay_ms must be positive, got %d", c.Race.FrameDelayMs)
	}
	if c.Race.TopN <= 0 {
		return fmt.Errorf("race.top_n must be positive, got %d", c.Race.TopN)
	}
	return nil
}
