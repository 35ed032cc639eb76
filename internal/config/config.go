package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Strava   StravaConfig  `json:"strava"`
	Stats    StatsConfig   `json:"stats"`
	Export   ExportConfig  `json:"export"`
	Metrics  MetricsConfig `json:"metrics"`
	LogLevel string        `json:"log_level"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURL  string `json:"redirect_url,omitempty"`
}

// StatsConfig controls which activities and sections are shown
type StatsConfig struct {
	// CommuteSection is a pointer so an absent key keeps the default
	CommuteSection *bool `json:"commute_section,omitempty"`
	// FirstYear drops activities started before this year, 0 keeps all
	FirstYear int `json:"first_year"`
}

// ExportConfig holds export settings
type ExportConfig struct {
	Directory string `json:"directory"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	// Address such as ":9464"; empty disables the endpoint
	Address string `json:"address"`
}

// Environment overrides, also read from a .env file in the working directory
const (
	EnvClientID       = "STRAVA_CLIENT_ID"
	EnvClientSecret   = "STRAVA_CLIENT_SECRET"
	EnvMetricsAddress = "STRAVA_STATS_METRICS_ADDRESS"
	// EnvHome relocates the data directory, mostly for tests
	EnvHome = "STRAVA_STATS_HOME"
)

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// ShowCommuteSection reports whether rides are split into sport and commute
func (c *Config) ShowCommuteSection() bool {
	return c.Stats.CommuteSection == nil || *c.Stats.CommuteSection
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	commute := true
	return Config{
		Stats:    StatsConfig{CommuteSection: &commute},
		LogLevel: "info",
	}
}

// Load reads ~/.strava-stats/config.json, then applies .env and environment
// overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path and applies environment overrides
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	defaults := DefaultConfig()
	if cfg.Stats.CommuteSection == nil {
		cfg.Stats.CommuteSection = defaults.Stats.CommuteSection
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.Export.Directory == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		cfg.Export.Directory = filepath.Join(dir, "export")
	}

	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Strava.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Strava.ClientSecret = v
	}
	if v := os.Getenv(EnvMetricsAddress); v != "" {
		c.Metrics.Address = v
	}
}

// Save writes the configuration to ~/.strava-stats/config.json
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return saveTo(path, cfg)
}

func saveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample writes an example config file if none exists
func CreateExample() error {
	path, err := Path()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	return saveTo(path, &example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Stats.FirstYear < 0 {
		return fmt.Errorf("stats.first_year must be a year or 0, got %d", c.Stats.FirstYear)
	}

	return nil
}

// ParseLogLevel maps log_level to a slog level. Empty means info.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", level)
}

// Path returns the path to the config file
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Dir returns the data directory, ~/.strava-stats unless STRAVA_STATS_HOME is set
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".strava-stats"), nil
}
