package store

import (
	"context"
	"database/sql"
)

// migrate runs all database migrations
func migrate(ctx context.Context, db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activity summaries, every sport type
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			sport_type TEXT NOT NULL,
			commute INTEGER NOT NULL DEFAULT 0,
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			distance REAL NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			total_elevation_gain REAL NOT NULL DEFAULT 0,
			max_speed REAL NOT NULL DEFAULT 0,
			average_watts REAL NOT NULL DEFAULT 0,
			weighted_average_watts INTEGER NOT NULL DEFAULT 0,
			stream_cached INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date_local)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_sport ON activities(sport_type, commute)`,

		// Vendor stream JSON, stored verbatim
		`CREATE TABLE IF NOT EXISTS stream_cache (
			activity_id INTEGER PRIMARY KEY,
			payload BLOB NOT NULL,
			source TEXT NOT NULL,
			cached_at TEXT DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Key-value store for sync tracking
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}

	return nil
}
