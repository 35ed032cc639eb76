package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"strava-stats/internal/analysis"
	"strava-stats/internal/export"
	"strava-stats/internal/fitimport"
	"strava-stats/internal/observability"
	"strava-stats/internal/statistics"
	"strava-stats/internal/store"
)

// StatsOptions controls which activities are loaded and how sections are laid out
type StatsOptions struct {
	CommuteSection bool
	// FirstYear drops activities started before this year, 0 keeps all
	FirstYear int
}

// StatsService computes statistics from the local store
type StatsService struct {
	store  *store.DB
	opts   StatsOptions
	logger *slog.Logger
}

// NewStatsService creates a stats service
func NewStatsService(db *store.DB, opts StatsOptions, logger *slog.Logger) *StatsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsService{store: db, opts: opts, logger: logger}
}

// LoadActivities returns the stored activities in start order, each with its
// decoded stream attached when one is cached. A cache that fails to decode
// is logged and leaves the activity without a stream.
func (s *StatsService) LoadActivities(ctx context.Context) ([]store.Activity, error) {
	activities, err := s.store.ListActivities(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	caches, err := s.store.ListStreamCaches(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stream caches: %w", err)
	}

	kept := activities[:0]
	for _, a := range activities {
		if s.opts.FirstYear > 0 && a.StartDateLocal.Year() < s.opts.FirstYear {
			continue
		}
		if c, ok := caches[a.ID]; ok {
			stream, err := DecodeStreamCache(c)
			if err != nil {
				s.logger.Warn("skipping unreadable stream cache", "activity_id", a.ID, "err", err)
			}
			a.Stream = stream
		}
		kept = append(kept, a)
	}
	return kept, nil
}

// Sections computes every statistics section. Statistics with an invalid
// definition are reported through the joined error and left out; the rest
// are still returned.
func (s *StatsService) Sections(ctx context.Context) ([]statistics.Section, error) {
	activities, err := s.LoadActivities(ctx)
	if err != nil {
		return nil, err
	}
	return s.ComputeSections(ctx, activities)
}

// ComputeSections lays out and computes the sections over activities
func (s *StatsService) ComputeSections(ctx context.Context, activities []store.Activity) ([]statistics.Section, error) {
	layout := statistics.Layout(statistics.Options{CommuteSection: s.opts.CommuteSection})
	sections := make([]statistics.Section, 0, len(layout))

	var errs []error
	for _, spec := range layout {
		start := time.Now()
		section, err := spec.Compute(ctx, activities)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		observability.ObserveSection(spec.Name, time.Since(start))
		if err != nil {
			s.logger.Error("invalid statistics in section", "section", spec.Name, "err", err)
			errs = append(errs, err)
		}
		sections = append(sections, section)
	}

	return sections, errors.Join(errs...)
}

// Eddington computes the Eddington number over every loaded activity
func (s *StatsService) Eddington(ctx context.Context) (analysis.EddingtonResult, error) {
	activities, err := s.LoadActivities(ctx)
	if err != nil {
		return analysis.EddingtonResult{}, err
	}
	return analysis.Eddington(activities), nil
}

// ImportFIT stores the activity and stream of a FIT file. Importing the
// same file twice replaces the earlier import.
func (s *StatsService) ImportFIT(ctx context.Context, path string) (*store.Activity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	imported, err := fitimport.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}

	payload, err := imported.Streams.Marshal()
	if err != nil {
		return nil, err
	}

	a := imported.Activity
	if err := s.store.UpsertActivity(ctx, &a); err != nil {
		return nil, fmt.Errorf("storing activity: %w", err)
	}
	if err := s.store.SaveStreamCache(ctx, &store.StreamCache{
		ActivityID: a.ID,
		Payload:    payload,
		Source:     fitimport.Source,
	}); err != nil {
		return nil, fmt.Errorf("storing stream: %w", err)
	}
	observability.RecordStreamCached(fitimport.Source)

	s.logger.Info("imported FIT file", "path", path, "activity_id", a.ID, "sport", a.SportType)
	return &a, nil
}

// Export file names written by Export
const (
	ExportStatisticsCSV     = "statistics.csv"
	ExportStatisticsParquet = "statistics.parquet"
	ExportEddingtonCSV      = "eddington.csv"
)

// Export writes the statistics sections as CSV and Parquet plus the
// Eddington counts into dir, returning the written paths. Invalid
// statistics do not stop the export; their error is returned alongside.
func (s *StatsService) Export(ctx context.Context, dir string) ([]string, error) {
	activities, err := s.LoadActivities(ctx)
	if err != nil {
		return nil, err
	}
	sections, statsErr := s.ComputeSections(ctx, activities)
	if sections == nil {
		return nil, statsErr
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}

	csvPath := filepath.Join(dir, ExportStatisticsCSV)
	if err := writeFile(csvPath, func(f *os.File) error { return export.WriteCSV(f, sections) }); err != nil {
		return nil, err
	}

	parquetPath := filepath.Join(dir, ExportStatisticsParquet)
	if err := export.WriteParquet(parquetPath, sections); err != nil {
		return nil, err
	}

	eddington := analysis.Eddington(activities)
	eddingtonPath := filepath.Join(dir, ExportEddingtonCSV)
	if err := writeFile(eddingtonPath, func(f *os.File) error { return export.WriteEddingtonCSV(f, eddington) }); err != nil {
		return nil, err
	}

	s.logger.Info("exported statistics", "dir", dir, "sections", len(sections))
	return []string{csvPath, parquetPath, eddingtonPath}, statsErr
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
