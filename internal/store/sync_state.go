package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Sync state keys
const (
	SyncKeyLastActivitySync = "last_activity_sync"
	SyncKeyLastStreamSync   = "last_stream_sync"
)

// GetSyncState retrieves a sync state value by key.
// Returns empty string if key doesn't exist.
func (db *DB) GetSyncState(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a sync state value
func (db *DB) SetSyncState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// GetSyncTime parses a timestamp stored under key. The zero time is
// returned when nothing has been recorded yet.
func (db *DB) GetSyncTime(ctx context.Context, key string) (time.Time, error) {
	value, err := db.GetSyncState(ctx, key)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetSyncTime stores t under key in RFC 3339 form
func (db *DB) SetSyncTime(ctx context.Context, key string, t time.Time) error {
	return db.SetSyncState(ctx, key, t.UTC().Format(time.RFC3339))
}
