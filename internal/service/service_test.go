package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"strava-stats/internal/statistics"
	"strava-stats/internal/store"
	"strava-stats/internal/strava"
)

const steadyPayload = `{
	"time": {"data": [0, 20, 40, 60, 80, 100, 120], "series_type": "distance", "original_size": 7, "resolution": "high"},
	"distance": {"data": [0, 200, 400, 600, 800, 1000, 1200], "series_type": "distance", "original_size": 7, "resolution": "high"},
	"altitude": {"data": [10, 12, 14, 16, 18, 20, 22], "series_type": "distance", "original_size": 7, "resolution": "high"}
}`

type fakeStrava struct {
	activities []strava.Activity
	streams    map[int64]string
	afters     []time.Time
	streamErr  error
}

func (f *fakeStrava) GetActivities(_ context.Context, after time.Time, page, perPage int) ([]strava.Activity, error) {
	f.afters = append(f.afters, after)
	start := (page - 1) * perPage
	if start >= len(f.activities) {
		return nil, nil
	}
	end := min(start+perPage, len(f.activities))
	return f.activities[start:end], nil
}

func (f *fakeStrava) GetActivityStreamsRaw(_ context.Context, id int64) ([]byte, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	payload, ok := f.streams[id]
	if !ok {
		return nil, fmt.Errorf("/activities/%d/streams: %w", id, strava.ErrNotFound)
	}
	return []byte(payload), nil
}

func (f *fakeStrava) RateLimitStatus() (int, int) { return 100, 1000 }

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func stravaActivity(id int64, sport string, day int, meters float64) strava.Activity {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return strava.Activity{
		ID:             id,
		Name:           fmt.Sprintf("activity %d", id),
		SportType:      sport,
		StartDate:      start,
		StartDateLocal: start,
		Distance:       meters,
		MovingTime:     600,
		ElapsedTime:    700,
	}
}

func TestStreamFromCache(t *testing.T) {
	one := 1
	streams := &strava.Streams{
		Time:     strava.NewStreamData([]int{0, 1, 2}),
		Distance: strava.NewStreamData([]float64{0, 5, 10}),
		Altitude: strava.NewStreamData([]float64{1, 2}), // misaligned, dropped
		Moving:   strava.NewStreamData([]bool{true, true, false}),
		Watts:    strava.NewStreamData([]*int{nil, &one, nil}),
	}

	s := StreamFromCache(streams)
	require.NotNil(t, s)
	require.Equal(t, 3, s.Len())
	require.Nil(t, s.Altitude)
	require.Equal(t, []int{0, 1, 0}, s.Power)
	require.Equal(t, []bool{true, true, false}, s.Moving)

	streams.Distance = strava.NewStreamData([]float64{0, 5})
	require.Nil(t, StreamFromCache(streams), "misaligned distance makes the stream absent")

	require.Nil(t, StreamFromCache(&strava.Streams{}))
	require.Nil(t, StreamFromCache(nil))

	streams = &strava.Streams{
		Time:     strava.NewStreamData([]int{0, 1}),
		Distance: strava.NewStreamData([]float64{0, 5}),
		Watts:    strava.NewStreamData([]*int{nil, nil}),
	}
	require.Nil(t, StreamFromCache(streams).Power)
}

func TestSyncAll(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	commute := stravaActivity(2, store.SportRide, 1, 8000)
	commute.Commute = true
	api := &fakeStrava{
		activities: []strava.Activity{
			stravaActivity(1, store.SportRun, 0, 1200),
			commute,
			stravaActivity(3, store.SportHike, 2, 5000),
		},
		streams: map[int64]string{1: steadyPayload, 2: steadyPayload},
	}

	svc := NewSyncService(api, db, nil)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	progress := make(chan SyncProgress, 64)
	result, err := svc.SyncAll(ctx, progress)
	require.NoError(t, err)
	require.Equal(t, 3, result.ActivitiesFetched)
	require.Equal(t, 3, result.ActivitiesStored)
	require.Equal(t, 3, result.StreamsFetched)
	require.Equal(t, 1, result.StreamsMissing)
	require.Empty(t, result.Errors)

	var phases []string
	for p := range progress {
		phases = append(phases, p.Phase)
	}
	require.Equal(t, PhaseActivities, phases[0])
	require.Equal(t, PhaseStreams, phases[len(phases)-1])

	stored, err := db.GetActivity(ctx, 2)
	require.NoError(t, err)
	require.True(t, stored.Commute)
	require.True(t, stored.StreamCached)

	cache, err := db.GetStreamCache(ctx, 1)
	require.NoError(t, err)
	require.JSONEq(t, steadyPayload, string(cache.Payload))
	require.Equal(t, "strava", cache.Source)

	last, err := svc.LastSync(ctx)
	require.NoError(t, err)
	require.True(t, now.Equal(last))

	// a second run asks only for newer activities and has no streams left to fetch
	api.activities = nil
	result, err = svc.SyncAll(ctx, nil)
	require.NoError(t, err)
	require.Zero(t, result.StreamsFetched)
	require.True(t, now.Equal(api.afters[len(api.afters)-1]))
}

func TestSyncAllCollectsStreamErrors(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	api := &fakeStrava{
		activities: []strava.Activity{stravaActivity(1, store.SportRun, 0, 1200)},
		streamErr:  errors.New("connection reset"),
	}

	result, err := NewSyncService(api, db, nil).SyncAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	require.Zero(t, result.StreamsFetched)

	needing, err := db.GetActivitiesNeedingStreams(ctx, 10)
	require.NoError(t, err)
	require.Len(t, needing, 1, "failed stream fetch is retried next sync")
}

func TestSyncAllRejectsUndecodableStreams(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	api := &fakeStrava{
		activities: []strava.Activity{stravaActivity(1, store.SportRun, 0, 1200)},
		streams:    map[int64]string{1: `{"time": "oops"}`},
	}

	result, err := NewSyncService(api, db, nil).SyncAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)

	_, err = db.GetStreamCache(ctx, 1)
	require.ErrorIs(t, err, store.ErrNoStreams)
}

func seedStats(t *testing.T, db *store.DB) {
	t.Helper()
	ctx := context.Background()
	api := &fakeStrava{
		activities: []strava.Activity{
			stravaActivity(1, store.SportRun, 0, 1200),
			stravaActivity(2, store.SportRun, 1, 3000),
			stravaActivity(3, store.SportRide, 2, 40000),
		},
		streams: map[int64]string{1: steadyPayload},
	}
	_, err := NewSyncService(api, db, nil).SyncAll(ctx, nil)
	require.NoError(t, err)
}

func TestLoadActivitiesAttachesStreams(t *testing.T) {
	db := openTestDB(t)
	seedStats(t, db)

	activities, err := NewStatsService(db, StatsOptions{}, nil).LoadActivities(context.Background())
	require.NoError(t, err)
	require.Len(t, activities, 3)
	require.True(t, activities[0].HasStream())
	require.True(t, activities[0].Stream.HasAltitude())
	require.False(t, activities[1].HasStream(), "manual activity has an empty cache")
	require.Nil(t, activities[2].Stream)
}

func TestLoadActivitiesFirstYear(t *testing.T) {
	db := openTestDB(t)
	seedStats(t, db)

	activities, err := NewStatsService(db, StatsOptions{FirstYear: 2025}, nil).LoadActivities(context.Background())
	require.NoError(t, err)
	require.Empty(t, activities)
}

func TestSections(t *testing.T) {
	db := openTestDB(t)
	seedStats(t, db)

	sections, err := NewStatsService(db, StatsOptions{CommuteSection: true}, nil).Sections(context.Background())
	require.NoError(t, err)
	require.Len(t, sections, 6)

	find := func(section, name string) statistics.Statistic {
		for _, s := range sections {
			if s.Name != section {
				continue
			}
			for _, stat := range s.Statistics {
				if stat.Name == name {
					return stat
				}
			}
		}
		t.Fatalf("statistic %s/%s not found", section, name)
		return statistics.Statistic{}
	}

	require.Equal(t, "3", find("Global", "Nb activities").Value)
	require.Equal(t, "3", find("Global", "Max streak").Value)

	best := find("Run", "Best 1000 m")
	require.Equal(t, "01m 40s => 36.00 km/h", best.Value)
	require.Equal(t, int64(1), best.Activity.ID)

	// samples every 200 m, so the shortest 250 m window spans 400 m and 4 m of climb
	require.Equal(t, "1.60 %", find("Run", "Max gradient for 250 m").Value)
	require.Equal(t, statistics.NotAvailable, find("Ride", "Best 1000 m").Value)
	require.Equal(t, "0", find("Commute", "Nb activities").Value)
}

func TestEddington(t *testing.T) {
	db := openTestDB(t)
	seedStats(t, db)

	result, err := NewStatsService(db, StatsOptions{}, nil).Eddington(context.Background())
	require.NoError(t, err)
	// daily km: 1, 3, 40
	require.Equal(t, 2, result.Number)
	require.Len(t, result.Counts, 40)
	require.Equal(t, 3, result.Counts[0])
}

func TestExport(t *testing.T) {
	db := openTestDB(t)
	seedStats(t, db)

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := NewStatsService(db, StatsOptions{CommuteSection: true}, nil).Export(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		require.FileExists(t, p)
	}

	f, err := os.Open(filepath.Join(dir, ExportStatisticsCSV))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"section", "name", "value", "activity_id", "activity_name", "date"}, records[0])

	var found bool
	for _, r := range records[1:] {
		if r[0] == "Run" && r[1] == "Best 1000 m" {
			found = true
			require.Equal(t, "1", r[3])
			require.Equal(t, "2024-03-01", r[5])
		}
	}
	require.True(t, found)
}

func TestImportFITMissingFile(t *testing.T) {
	db := openTestDB(t)
	_, err := NewStatsService(db, StatsOptions{}, nil).ImportFIT(context.Background(), filepath.Join(t.TempDir(), "nope.fit"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestImportFITInvalidFile(t *testing.T) {
	db := openTestDB(t)
	path := filepath.Join(t.TempDir(), "bad.fit")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))

	_, err := NewStatsService(db, StatsOptions{}, nil).ImportFIT(context.Background(), path)
	require.Error(t, err)

	n, err := db.CountActivities(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
