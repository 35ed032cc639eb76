package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"strava-stats/internal/observability"
	"strava-stats/internal/store"
	"strava-stats/internal/strava"
)

// StreamBatchSize bounds how many streams one sync fetches, keeping a full
// run well inside Strava's 15-minute request window.
const StreamBatchSize = 50

// StravaSource is the subset of the Strava client the sync needs
type StravaSource interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivityStreamsRaw(ctx context.Context, activityID int64) ([]byte, error)
	RateLimitStatus() (shortRemaining, dailyRemaining int)
}

// SyncService orchestrates syncing data from Strava
type SyncService struct {
	client StravaSource
	store  *store.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSyncService creates a new sync service
func NewSyncService(client StravaSource, db *store.DB, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{client: client, store: db, logger: logger, now: time.Now}
}

// Sync phases reported through SyncProgress
const (
	PhaseActivities = "activities"
	PhaseStreams    = "streams"
)

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string
	Total           int
	Completed       int
	CurrentActivity string
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesStored  int
	StreamsFetched    int
	StreamsMissing    int // activities Strava has no stream for
	Errors            []error
}

// SyncAll fetches new activity summaries, then a batch of missing streams.
// Per-activity failures are collected in the result; only failures that
// stop a phase are returned as an error. progress is closed on return.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	if err := s.syncActivities(ctx, progress, result); err != nil {
		observability.RecordSyncError(PhaseActivities)
		return result, fmt.Errorf("syncing activities: %w", err)
	}

	if err := s.syncStreams(ctx, progress, result); err != nil {
		observability.RecordSyncError(PhaseStreams)
		return result, fmt.Errorf("syncing streams: %w", err)
	}

	observability.RecordSyncCompleted(s.now())
	s.logger.Info("sync finished",
		"activities_stored", result.ActivitiesStored,
		"streams_fetched", result.StreamsFetched,
		"errors", len(result.Errors))

	return result, nil
}

// syncActivities stores every activity started after the last sync, all
// sport types included.
func (s *SyncService) syncActivities(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	after, err := s.store.GetSyncTime(ctx, store.SyncKeyLastActivitySync)
	if err != nil {
		s.logger.Warn("ignoring unreadable last sync time", "err", err)
		after = time.Time{}
	}
	startedAt := s.now()

	report(progress, SyncProgress{Phase: PhaseActivities})

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		activities, err := s.client.GetActivities(ctx, after, page, strava.MaxPerPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		result.ActivitiesFetched += len(activities)

		stored := 0
		for _, a := range activities {
			if err := s.store.UpsertActivity(ctx, convertActivity(a)); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				observability.RecordSyncError(PhaseActivities)
				continue
			}
			stored++
		}
		result.ActivitiesStored += stored
		observability.RecordActivitiesSynced(stored)

		report(progress, SyncProgress{
			Phase:     PhaseActivities,
			Total:     result.ActivitiesFetched,
			Completed: result.ActivitiesStored,
		})

		if len(activities) < strava.MaxPerPage {
			break
		}
	}

	// activities created while the sync ran are picked up next time
	return s.store.SetSyncTime(ctx, store.SyncKeyLastActivitySync, startedAt)
}

// syncStreams caches the raw stream payload of up to StreamBatchSize
// activities, most recent first.
func (s *SyncService) syncStreams(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	activities, err := s.store.GetActivitiesNeedingStreams(ctx, StreamBatchSize)
	if err != nil {
		return fmt.Errorf("getting activities needing streams: %w", err)
	}
	if len(activities) == 0 {
		return nil
	}

	for i, activity := range activities {
		if err := ctx.Err(); err != nil {
			return err
		}

		report(progress, SyncProgress{
			Phase:           PhaseStreams,
			Total:           len(activities),
			Completed:       i,
			CurrentActivity: activity.Name,
		})

		payload, err := s.fetchStreams(ctx, activity.ID)
		if errors.Is(err, strava.ErrNotFound) {
			// manual activities have no streams, cache an empty payload so
			// they are not requested again
			payload = []byte("{}")
			result.StreamsMissing++
		} else if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): %w", activity.ID, activity.Name, err))
			observability.RecordSyncError(PhaseStreams)
			continue
		}

		if err := s.store.SaveStreamCache(ctx, &store.StreamCache{
			ActivityID: activity.ID,
			Payload:    payload,
			Source:     "strava",
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving streams for %d: %w", activity.ID, err))
			observability.RecordSyncError(PhaseStreams)
			continue
		}

		result.StreamsFetched++
		observability.RecordStreamCached("strava")
	}

	report(progress, SyncProgress{
		Phase:     PhaseStreams,
		Total:     len(activities),
		Completed: len(activities),
	})

	return s.store.SetSyncTime(ctx, store.SyncKeyLastStreamSync, s.now())
}

// fetchStreams downloads a stream payload and checks it decodes before it
// is cached verbatim.
func (s *SyncService) fetchStreams(ctx context.Context, activityID int64) ([]byte, error) {
	payload, err := s.client.GetActivityStreamsRaw(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if _, err := strava.ParseStreams(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// LastSync returns when activities were last synced, zero if never
func (s *SyncService) LastSync(ctx context.Context) (time.Time, error) {
	return s.store.GetSyncTime(ctx, store.SyncKeyLastActivitySync)
}

func report(progress chan<- SyncProgress, p SyncProgress) {
	if progress != nil {
		progress <- p
	}
}

// convertActivity converts a Strava API activity to a store activity
func convertActivity(a strava.Activity) *store.Activity {
	sport := a.SportType
	if sport == "" {
		sport = a.Type
	}
	return &store.Activity{
		ID:                   a.ID,
		Name:                 a.Name,
		SportType:            sport,
		Commute:              a.Commute,
		StartDate:            a.StartDate,
		StartDateLocal:       a.StartDateLocal,
		Distance:             a.Distance,
		MovingTime:           a.MovingTime,
		ElapsedTime:          a.ElapsedTime,
		TotalElevationGain:   a.TotalElevationGain,
		MaxSpeed:             a.MaxSpeed,
		AverageWatts:         a.AverageWatts,
		WeightedAverageWatts: a.WeightedAverageWatts,
	}
}
