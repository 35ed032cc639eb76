package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.ShowCommuteSection() {
		t.Error("commute section should be on by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}
	if cfg.Metrics.Address != "" {
		t.Errorf("Metrics.Address should be empty, got %q", cfg.Metrics.Address)
	}
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	t.Setenv(EnvHome, "/data/strava")
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
	t.Setenv(EnvMetricsAddress, "")

	path := writeConfig(t, `{"strava": {"client_id": "1", "client_secret": "s"}, "stats": {"first_year": 2020}}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if !cfg.ShowCommuteSection() {
		t.Error("absent commute_section should default to true")
	}
	if cfg.Stats.FirstYear != 2020 {
		t.Errorf("FirstYear = %d", cfg.Stats.FirstYear)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if want := filepath.Join("/data/strava", "export"); cfg.Export.Directory != want {
		t.Errorf("Export.Directory = %q, want %q", cfg.Export.Directory, want)
	}
}

func TestLoadFileKeepsExplicitFalse(t *testing.T) {
	path := writeConfig(t, `{"stats": {"commute_section": false}, "export": {"directory": "/tmp/out"}}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ShowCommuteSection() {
		t.Error("explicit false should be kept")
	}
	if cfg.Export.Directory != "/tmp/out" {
		t.Errorf("Export.Directory = %q", cfg.Export.Directory)
	}
}

func TestLoadFileEnvOverrides(t *testing.T) {
	t.Setenv(EnvClientID, "env-id")
	t.Setenv(EnvClientSecret, "env-secret")
	t.Setenv(EnvMetricsAddress, ":9464")

	path := writeConfig(t, `{"strava": {"client_id": "file-id", "client_secret": "file-secret"}}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Strava.ClientID != "env-id" || cfg.Strava.ClientSecret != "env-secret" {
		t.Errorf("Strava = %+v", cfg.Strava)
	}
	if cfg.Metrics.Address != ":9464" {
		t.Errorf("Metrics.Address = %q", cfg.Metrics.Address)
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("missing file: err = %v, want ErrNoConfig", err)
	}

	_, err = LoadFile(writeConfig(t, `{not json`))
	if err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("bad json: err = %v", err)
	}
}

func TestCreateExampleAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")

	if err := CreateExample(); err != nil {
		t.Fatalf("CreateExample: %v", err)
	}

	path, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "client_id") {
		t.Errorf("example config should fail validation on client_id, got %v", err)
	}

	// a second call must not overwrite the user's edits
	cfg.Strava.ClientID = "12345"
	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}
	if err := CreateExample(); err != nil {
		t.Fatal(err)
	}
	again, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Strava.ClientID != "12345" {
		t.Errorf("CreateExample overwrote config: %q", again.Strava.ClientID)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := StravaConfig{ClientID: "12345", ClientSecret: "abc123secret"}

	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{"valid config", Config{Strava: valid}, ""},
		{"empty client ID", Config{Strava: StravaConfig{ClientSecret: "abc"}}, "client_id"},
		{"placeholder client ID", Config{Strava: StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "abc"}}, "client_id"},
		{"empty client secret", Config{Strava: StravaConfig{ClientID: "12345"}}, "client_secret"},
		{"placeholder client secret", Config{Strava: StravaConfig{ClientID: "12345", ClientSecret: "YOUR_CLIENT_SECRET"}}, "client_secret"},
		{"bad log level", Config{Strava: valid, LogLevel: "verbose"}, "log_level"},
		{"negative first year", Config{Strava: valid, Stats: StatsConfig{FirstYear: -1}}, "first_year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
