package store

import (
	"database/sql"
	"fmt"
)

// schema is applied in order on every open; each statement is idempotent.
var schema = []string{
	// Threshold profiles; thresholds are stored as JSON in the config file schema
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		thresholds TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// Actions table - plugin actions to run when a gesture fires
	`CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		gesture TEXT NOT NULL,
		plugin_name TEXT NOT NULL,
		action_name TEXT NOT NULL,
		config TEXT NOT NULL DEFAULT '{}',
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,

	// Settings table - application settings as key-value pairs
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	// Sessions - one per WebSocket client, camera run, or replay
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL CHECK(source IN ('websocket', 'camera', 'replay')),
		profile_id TEXT REFERENCES profiles(id) ON DELETE SET NULL,
		recorded INTEGER NOT NULL DEFAULT 0,
		frames INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	)`,

	// Emitted gesture events
	`CREATE TABLE IF NOT EXISTS gesture_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		gesture TEXT NOT NULL,
		occurred_at DATETIME NOT NULL
	)`,

	// Per-frame features for replay; NULL features mark face-absent frames,
	// reset = 1 marks a classifier reset between frames
	`CREATE TABLE IF NOT EXISTS feature_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		captured_at_ns INTEGER NOT NULL,
		left_ear REAL,
		right_ear REAL,
		mouth_ar REAL,
		eyebrow_position REAL,
		head_tilt REAL,
		reset INTEGER NOT NULL DEFAULT 0
	)`,

	// Indexes for better query performance
	`CREATE INDEX IF NOT EXISTS idx_actions_gesture ON actions(gesture)`,
	`CREATE INDEX IF NOT EXISTS idx_gesture_events_session_id ON gesture_events(session_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_feature_samples_session_seq ON feature_samples(session_id, seq)`,
}

// columns lists columns added after their table first shipped. They are
// created on databases that predate them.
var columns = []struct{ table, name, def string }{
	{"feature_samples", "reset", "INTEGER NOT NULL DEFAULT 0"},
}

func migrate(tx *sql.Tx) error {
	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	for _, c := range columns {
		var n int
		err := tx.QueryRow(
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.name,
		).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := tx.Exec(`ALTER TABLE ` + c.table + ` ADD COLUMN ` + c.name + ` ` + c.def); err != nil {
			return fmt.Errorf("add %s.%s: %w", c.table, c.name, err)
		}
	}
	return nil
}
