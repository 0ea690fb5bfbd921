package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvDatabaseURL overrides database.url when set.
const EnvDatabaseURL = "ANIMESCHEDULE_DATABASE_URL"

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	AniList    AniListConfig    `yaml:"anilist"`
	Sync       SyncConfig       `yaml:"sync"`
	Logging    LoggingConfig    `yaml:"logging"`
	Prediction PredictionConfig `yaml:"prediction"`
	Bingeable  BingeableConfig  `yaml:"bingeable"`
}

type ServerConfig struct {
	HTTPPort    int `yaml:"http_port"`
	MetricsPort int `yaml:"metrics_port"` // 0 disables the metrics server
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite or pgx
	Path   string `yaml:"path"`   // sqlite file
	URL    string `yaml:"url"`    // postgres DSN
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type AniListConfig struct {
	Endpoint             string `yaml:"endpoint"`
	MinRequestIntervalMs int    `yaml:"min_request_interval_ms"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	MaxPages             int    `yaml:"max_pages"`
}

type SyncConfig struct {
	Enabled           bool `yaml:"enabled"`
	SyncIntervalHours int  `yaml:"sync_interval_hours"`
	BatchSize         int  `yaml:"batch_size"`
	BatchDelayMs      int  `yaml:"batch_delay_ms"`
	IncludeNextSeason bool `yaml:"include_next_season"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty logs to stdout only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type PredictionConfig struct {
	SourceName string `yaml:"source_name"`
}

type BingeableConfig struct {
	DefaultWindowDays int `yaml:"default_window_days"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    8000,
			MetricsPort: 9090,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/animeschedule.db",
		},
		Cache: CacheConfig{
			Enabled:    true,
			Dir:        "./data/cache",
			TTLMinutes: 30,
		},
		AniList: AniListConfig{
			Endpoint:             "https://graphql.anilist.co",
			MinRequestIntervalMs: 700,
			TimeoutSeconds:       10,
			MaxPages:             5,
		},
		Sync: SyncConfig{
			Enabled:           true,
			SyncIntervalHours: 6,
			BatchSize:         100,
			BatchDelayMs:      500,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Prediction: PredictionConfig{
			SourceName: "AniList",
		},
		Bingeable: BingeableConfig{
			DefaultWindowDays: 30,
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		// Use defaults if no config file
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if url := os.Getenv(EnvDatabaseURL); url != "" {
		cfg.Database.URL = url
		cfg.Database.Driver = "pgx"
	}

	return cfg, nil
}

// EnsureDirectories creates required directories
func (c *Config) EnsureDirectories() error {
	var dirs []string
	if c.Database.Driver == "sqlite" {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
	}
	if c.Cache.Enabled && c.Cache.Dir != "" {
		dirs = append(dirs, c.Cache.Dir)
	}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.Database.Driver == "pgx" {
		return c.Database.URL
	}
	return c.Database.Path
}
