package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveStreamCache stores the raw stream payload for an activity, replacing
// any previous one, and flags the activity as cached.
func (db *DB) SaveStreamCache(ctx context.Context, cache *StreamCache) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO stream_cache (activity_id, payload, source, cached_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			payload = excluded.payload,
			source = excluded.source,
			cached_at = CURRENT_TIMESTAMP
	`, cache.ActivityID, cache.Payload, cache.Source); err != nil {
		return fmt.Errorf("writing stream cache: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE activities
		SET stream_cached = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, cache.ActivityID)
	if err != nil {
		return fmt.Errorf("flagging activity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetStreamCache retrieves the stream payload for an activity
func (db *DB) GetStreamCache(ctx context.Context, activityID int64) (*StreamCache, error) {
	var c StreamCache
	var cachedAt string
	err := db.QueryRowContext(ctx, `
		SELECT activity_id, payload, source, cached_at
		FROM stream_cache
		WHERE activity_id = ?
	`, activityID).Scan(&c.ActivityID, &c.Payload, &c.Source, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoStreams
	}
	if err != nil {
		return nil, err
	}
	c.CachedAt = parseSQLiteTime(cachedAt)
	return &c, nil
}

// ListStreamCaches returns every cached stream payload keyed by activity ID
func (db *DB) ListStreamCaches(ctx context.Context) (map[int64]*StreamCache, error) {
	rows, err := db.QueryContext(ctx, `SELECT activity_id, payload, source, cached_at FROM stream_cache`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	caches := make(map[int64]*StreamCache)
	for rows.Next() {
		var c StreamCache
		var cachedAt string
		if err := rows.Scan(&c.ActivityID, &c.Payload, &c.Source, &cachedAt); err != nil {
			return nil, err
		}
		c.CachedAt = parseSQLiteTime(cachedAt)
		caches[c.ActivityID] = &c
	}
	return caches, rows.Err()
}

// DeleteStreamCache drops the cached payload so the next sync fetches it again
func (db *DB) DeleteStreamCache(ctx context.Context, activityID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stream_cache WHERE activity_id = ?", activityID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE activities SET stream_cached = 0 WHERE id = ?", activityID); err != nil {
		return err
	}
	return tx.Commit()
}

// parseSQLiteTime parses CURRENT_TIMESTAMP output, returning the zero time on failure
func parseSQLiteTime(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
