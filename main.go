package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/oauth2"

	"strava-stats/internal/auth"
	"strava-stats/internal/config"
	"strava-stats/internal/observability"
	"strava-stats/internal/service"
	"strava-stats/internal/store"
	"strava-stats/internal/strava"
	"strava-stats/internal/tui"
)

const usage = `Usage:
  strava-stats                      sync and browse statistics
  strava-stats import <file.fit>... import activities recorded as FIT files
  strava-stats export [dir]         write statistics as CSV and Parquet
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		path, _ := config.Path()
		fmt.Printf("\nPlease edit the config file at:\n  %s\n\n", path)
		fmt.Println("You need to add your Strava API credentials.")
		fmt.Println("Get them from: https://www.strava.com/settings/api")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		path, _ := config.Path()
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s\n", path)
		return nil
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(dir, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	db, err := store.Open(ctx, filepath.Join(dir, "data.db"))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	statsSvc := service.NewStatsService(db, service.StatsOptions{
		CommuteSection: cfg.ShowCommuteSection(),
		FirstYear:      cfg.Stats.FirstYear,
	}, logger)

	if len(args) > 0 {
		return runCommand(ctx, statsSvc, cfg, args)
	}

	if cfg.Metrics.Address != "" {
		go func() {
			if err := observability.Serve(ctx, cfg.Metrics.Address, logger); err != nil {
				logger.Error("metrics endpoint stopped", "err", err)
			}
		}()
	}

	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  cfg.Strava.RedirectURL,
	})

	tokenSource, err := loadTokenSource(ctx, db, oauthCfg, logger)
	if err != nil {
		return err
	}

	stravaClient := strava.NewClient(tokenSource)
	syncSvc := service.NewSyncService(stravaClient, db, logger)

	app := tui.NewApp(syncSvc, statsSvc, cfg.Export.Directory)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func runCommand(ctx context.Context, statsSvc *service.StatsService, cfg *config.Config, args []string) error {
	switch args[0] {
	case "import":
		if len(args) < 2 {
			return errors.New("import needs at least one FIT file")
		}
		for _, path := range args[1:] {
			a, err := statsSvc.ImportFIT(ctx, path)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s: %s, %.2f km\n", path, a.Name, a.Distance/1000)
		}
		return nil

	case "export":
		dir := cfg.Export.Directory
		if len(args) > 1 {
			dir = args[1]
		}
		paths, err := statsSvc.Export(ctx, dir)
		if paths == nil {
			return fmt.Errorf("exporting: %w", err)
		}
		for _, p := range paths {
			fmt.Println("Wrote", p)
		}
		if err != nil {
			fmt.Printf("Some statistics were left out: %v\n", err)
		}
		return nil

	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}

	fmt.Print(usage)
	return fmt.Errorf("unknown command %q", args[0])
}

// newLogger writes structured logs to strava-stats.log in dir
func newLogger(dir, level string) (*slog.Logger, func(), error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "strava-stats.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: lvl}))
	return logger, func() { f.Close() }, nil
}

// loadTokenSource returns a refreshing token source, running the OAuth flow
// when no usable token is stored.
func loadTokenSource(ctx context.Context, db *store.DB, oauthCfg *oauth2.Config, logger *slog.Logger) (*auth.TokenSource, error) {
	tokenSource, err := auth.LoadTokenSource(ctx, oauthCfg, db, logger)
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No authentication found. Starting OAuth flow...")
		if err := authenticate(ctx, db, oauthCfg); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
		tokenSource, err = auth.LoadTokenSource(ctx, oauthCfg, db, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	// Test token is valid by getting a fresh one
	if _, err := tokenSource.Token(); err != nil {
		logger.Warn("stored token rejected", "err", err)
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if err := authenticate(ctx, db, oauthCfg); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
		return auth.LoadTokenSource(ctx, oauthCfg, db, logger)
	}

	return tokenSource, nil
}

func authenticate(ctx context.Context, db *store.DB, oauthCfg *oauth2.Config) error {
	result, err := auth.Authenticate(ctx, oauthCfg, os.Stdout)
	if err != nil {
		return err
	}

	if err := db.SaveAuth(ctx, result.StoreAuth()); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	fmt.Printf("Successfully authenticated as athlete %d!\n", result.AthleteID)
	return nil
}
