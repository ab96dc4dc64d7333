// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

// Package learnsqlite implements the offline time-integrity and
// data-synchronization engine of the mobile learning client on top of a
// local SQLite database.
//
// The engine reconstructs a trustworthy "now" from the last known-good
// server timestamp, detects device-clock tampering, enforces a rolling
// offline-access budget, and reconciles locally recorded quiz attempts and
// file submissions with the server exactly once when connectivity returns.
package learnsqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// TokenFunc supplies a signed bearer token for outbound requests.
type TokenFunc func(context.Context) (string, error)

// Client manages the local offline store and reconciliation against the LMS
// server for a single signed-in user.
type Client struct {
	DB        *sql.DB
	BaseURL   string
	Token     TokenFunc
	UserEmail string
	HTTP      *http.Client

	// Reach is the host-app reachability signal. When nil the engine
	// assumes connectivity and lets request failures speak for themselves.
	Reach func() Reachability

	config  *Config
	logger  *slog.Logger
	writeMu sync.Mutex // Serialize write operations against the SQLite store
	now     func() time.Time

	flushMu       sync.Mutex
	flushInFlight map[string]bool // in-flight flush guard keyed by user email

	// Monotonic reference for the forward-jump detector, valid only within
	// this process. Guarded by writeMu.
	lastCheckMono time.Time
	haveCheckMono bool
}

// NewClient creates a new offline engine bound to the given database and
// user, initializing the offline schema if needed.
func NewClient(db *sql.DB, baseURL, userEmail string, tok TokenFunc, config *Config) (*Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if userEmail == "" {
		return nil, fmt.Errorf("userEmail must be provided")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	if err := initializeDatabase(db); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client := &Client{
		DB:            db,
		BaseURL:       baseURL,
		Token:         tok,
		UserEmail:     userEmail,
		HTTP:          &http.Client{Timeout: config.RequestTimeout},
		config:        config,
		logger:        slog.Default(),
		now:           time.Now,
		flushInFlight: make(map[string]bool),
	}

	return client, nil
}

// SetLogger replaces the default slog logger.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// Close releases the underlying database handle.
func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) reachability() Reachability {
	if c.Reach != nil {
		return c.Reach()
	}
	reachable := true
	return Reachability{IsConnected: true, IsInternetReachable: &reachable}
}
