package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const activityColumns = `id, name, sport_type, commute, start_date, start_date_local,
	distance, moving_time, elapsed_time, total_elevation_gain, max_speed,
	average_watts, weighted_average_watts, stream_cached`

// UpsertActivity inserts or updates an activity summary.
// The stream_cached flag is owned by SaveStreamCache and is left untouched on update.
func (db *DB) UpsertActivity(ctx context.Context, a *Activity) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO activities (
			id, name, sport_type, commute, start_date, start_date_local,
			distance, moving_time, elapsed_time, total_elevation_gain, max_speed,
			average_watts, weighted_average_watts, stream_cached, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sport_type = excluded.sport_type,
			commute = excluded.commute,
			start_date = excluded.start_date,
			start_date_local = excluded.start_date_local,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			total_elevation_gain = excluded.total_elevation_gain,
			max_speed = excluded.max_speed,
			average_watts = excluded.average_watts,
			weighted_average_watts = excluded.weighted_average_watts,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.Name, a.SportType, boolToInt(a.Commute),
		a.StartDate.UTC().Format(time.RFC3339), a.StartDateLocal.Format(localLayout),
		a.Distance, a.MovingTime, a.ElapsedTime, a.TotalElevationGain, a.MaxSpeed,
		a.AverageWatts, a.WeightedAverageWatts,
	)
	return err
}

// GetActivity retrieves an activity summary by ID
func (db *DB) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	row := db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	return a, err
}

// ListActivities returns every activity summary ordered by local start date,
// oldest first. Streams are not attached.
func (db *DB) ListActivities(ctx context.Context) ([]Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		ORDER BY start_date_local, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// GetActivitiesNeedingStreams returns the most recent activities without a stream cache
func (db *DB) GetActivitiesNeedingStreams(ctx context.Context, limit int) ([]Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE stream_cached = 0 AND id > 0
		ORDER BY start_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// CountActivities returns the total number of activities
func (db *DB) CountActivities(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities").Scan(&count)
	return count, err
}

// DeleteActivity removes an activity and, through the foreign key, its stream cache
func (db *DB) DeleteActivity(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM activities WHERE id = ?", id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// localLayout keeps the civil start time without pretending it has a zone
const localLayout = "2006-01-02T15:04:05"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var startDate, startDateLocal string
	var commute, streamCached int

	err := row.Scan(
		&a.ID, &a.Name, &a.SportType, &commute, &startDate, &startDateLocal,
		&a.Distance, &a.MovingTime, &a.ElapsedTime, &a.TotalElevationGain, &a.MaxSpeed,
		&a.AverageWatts, &a.WeightedAverageWatts, &streamCached,
	)
	if err != nil {
		return nil, err
	}

	var parseErr error
	a.StartDate, parseErr = time.Parse(time.RFC3339, startDate)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, parseErr)
	}
	a.StartDateLocal, parseErr = time.Parse(localLayout, startDateLocal)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing start_date_local %q: %w", startDateLocal, parseErr)
	}
	a.Commute = commute == 1
	a.StreamCached = streamCached == 1

	return &a, nil
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
