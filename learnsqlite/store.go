// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens (creating if needed) the on-device SQLite database.
// The caller owns the handle and passes it to NewClient, which initializes
// the schema.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// initializeDatabase creates the offline metadata tables (private function)
func initializeDatabase(db *sql.DB) error {
	// Enable WAL mode and foreign keys
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []string{
		// Trusted-time tracking (one row per signed-in user)
		`CREATE TABLE IF NOT EXISTS time_sync (
			user_email                TEXT NOT NULL,
			last_server_time          INTEGER NOT NULL,       -- unix seconds, server clock
			last_device_time_at_sync  INTEGER NOT NULL,       -- unix seconds, device clock
			last_observed_device_time INTEGER NOT NULL,       -- monotonically non-decreasing unless tampered
			forward_drift_consumed    INTEGER NOT NULL DEFAULT 0,  -- seconds debited from the budget
			is_blocked                INTEGER NOT NULL DEFAULT 0,
			blocked_at                INTEGER,
			offline_warned_at         INTEGER,
			PRIMARY KEY (user_email)
		)`,

		// Assignment file uploads queued offline
		`CREATE TABLE IF NOT EXISTS pending_submissions (
			id                TEXT NOT NULL,
			assessment_id     TEXT NOT NULL,
			user_email        TEXT NOT NULL,
			file_uri          TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			submitted_at      INTEGER NOT NULL,
			attempts          INTEGER NOT NULL DEFAULT 0,
			next_retry_at     INTEGER,
			last_error        TEXT,
			skip_reason       TEXT,
			synced_at         INTEGER,
			queued_at         TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (id)
		)`,

		// Offline-completed quiz/exam attempts
		`CREATE TABLE IF NOT EXISTS pending_quiz_attempts (
			id            TEXT NOT NULL,
			assessment_id TEXT NOT NULL,
			user_email    TEXT NOT NULL,
			answers       TEXT NOT NULL,  -- ordered JSON array of question/answer pairs
			start_time    INTEGER,
			end_time      INTEGER,
			attempts      INTEGER NOT NULL DEFAULT 0,
			next_retry_at INTEGER,
			last_error    TEXT,
			skip_reason   TEXT,
			synced_at     INTEGER,
			queued_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (id)
		)`,

		// Course/material/assessment snapshots
		`CREATE TABLE IF NOT EXISTS cached_content (
			id             TEXT NOT NULL,
			user_email     TEXT NOT NULL,
			kind           TEXT NOT NULL,
			payload        TEXT NOT NULL,
			available_at   INTEGER,
			unavailable_at INTEGER,
			cached_at      INTEGER NOT NULL,
			PRIMARY KEY (id, user_email, kind)
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create offline table: %w", err)
		}
	}

	return nil
}

// getTimeSync loads the time-tracking row for the user, or nil when the user
// has never completed an online sync on this device.
func (c *Client) getTimeSync(ctx context.Context, userEmail string) (*TimeSyncRecord, error) {
	row := c.DB.QueryRowContext(ctx, `
		SELECT user_email, last_server_time, last_device_time_at_sync, last_observed_device_time,
		       forward_drift_consumed, is_blocked, blocked_at, offline_warned_at
		FROM time_sync WHERE user_email = ?
	`, userEmail)

	rec := &TimeSyncRecord{}
	var serverTime, deviceTime, observed int64
	var blocked int
	var blockedAt, warnedAt sql.NullInt64
	err := row.Scan(&rec.UserEmail, &serverTime, &deviceTime, &observed,
		&rec.ForwardDriftConsumed, &blocked, &blockedAt, &warnedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query time sync record: %w", err)
	}

	rec.LastServerTime = time.Unix(serverTime, 0).UTC()
	rec.LastDeviceTimeAtSync = time.Unix(deviceTime, 0).UTC()
	rec.LastObservedDeviceTime = time.Unix(observed, 0).UTC()
	rec.IsBlocked = blocked != 0
	rec.BlockedAt = unixPtr(blockedAt)
	rec.OfflineWarnedAt = unixPtr(warnedAt)
	return rec, nil
}

func unixPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
