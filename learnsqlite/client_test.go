// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/shann2345/go-learnsync/learnsync"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(code int, body any) *http.Response {
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: code,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(data)),
	}
}

// openTestDB opens an in-memory SQLite database limited to a single
// connection, so every statement sees the same database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() *Config {
	cfg := DefaultConfig()
	// Single attempt keeps failure-path tests from sleeping through backoff.
	cfg.Retry = learnsync.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}
	return cfg
}

// newTestClient builds an engine over db with a fixed bearer token and a
// discarded logger. The device clock starts at base; tests move it by
// reassigning c.now.
func newTestClient(t *testing.T, db *sql.DB, base time.Time) *Client {
	t.Helper()
	tok := func(ctx context.Context) (string, error) { return "test-token", nil }
	c, err := NewClient(db, "http://lms.example", "student@school.edu", tok, testConfig())
	require.NoError(t, err)
	c.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return base }
	return c
}

func TestInitializeDatabase(t *testing.T) {
	db := openTestDB(t)

	err := initializeDatabase(db)
	require.NoError(t, err)

	expectedTables := []string{"time_sync", "pending_submissions", "pending_quiz_attempts", "cached_content"}
	for _, table := range expectedTables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, "Table %s should exist", table)
	}

	// In-memory databases report "memory" instead of "wal"
	var journalMode string
	err = db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	require.Contains(t, []string{"wal", "memory"}, journalMode)

	var foreignKeys int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	require.NoError(t, err)
	require.Equal(t, 1, foreignKeys)

	// Running initialization twice must be harmless
	require.NoError(t, initializeDatabase(db))
}

func TestNewClient(t *testing.T) {
	db := openTestDB(t)

	tok := func(ctx context.Context) (string, error) { return "test-token", nil }
	client, err := NewClient(db, "http://localhost:8080", "student@school.edu", tok, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, client)
	require.Equal(t, db, client.DB)
	require.Equal(t, "http://localhost:8080", client.BaseURL)
	require.Equal(t, "student@school.edu", client.UserEmail)
	require.NotNil(t, client.Token)
	require.NotNil(t, client.HTTP)

	token, err := client.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "test-token", token)

	// NewClient creates the schema
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='time_sync'").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNewClientValidation(t *testing.T) {
	db := openTestDB(t)
	tok := func(ctx context.Context) (string, error) { return "t", nil }

	_, err := NewClient(db, "http://localhost", "student@school.edu", tok, nil)
	require.Error(t, err)

	_, err = NewClient(db, "http://localhost", "", tok, DefaultConfig())
	require.Error(t, err)

	bad := DefaultConfig()
	bad.TotalAllowanceHours = 0
	_, err = NewClient(db, "http://localhost", "student@school.edu", tok, bad)
	require.Error(t, err)

	bad = DefaultConfig()
	bad.ForwardJumpSeconds = -1
	_, err = NewClient(db, "http://localhost", "student@school.edu", tok, bad)
	require.Error(t, err)
}

func TestReachabilityDefaultsToOnline(t *testing.T) {
	db := openTestDB(t)
	c := newTestClient(t, db, time.Now())

	require.True(t, c.reachability().Online())

	offline := false
	c.Reach = func() Reachability {
		return Reachability{IsConnected: true, IsInternetReachable: &offline}
	}
	require.False(t, c.reachability().Online())
}
