// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic offline check while the app is foregrounded:
// every tick re-evaluates the tamper/budget state and, when the device is
// reachable, refreshes server time and flushes pending work.
type Scheduler struct {
	client  *Client
	cron    *cron.Cron
	spec    string
	logger  *slog.Logger
	entryID cron.EntryID
	running int32
}

// NewScheduler creates a scheduler for the client. An empty spec falls back
// to the client's configured check interval.
func NewScheduler(client *Client, spec string) *Scheduler {
	if spec == "" {
		spec = client.config.CheckInterval
	}
	return &Scheduler{
		client: client,
		cron:   cron.New(),
		spec:   spec,
		logger: client.logger,
	}
}

// Start begins the periodic checks.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.spec, s.tick)
	if err != nil {
		return err
	}
	s.entryID = id
	s.cron.Start()
	s.logger.Info("offline check scheduler started", "interval", s.spec)
	return nil
}

// Stop halts the periodic checks. A tick already in flight finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("offline check scheduler stopped")
}

func (s *Scheduler) tick() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		s.logger.Info("previous offline check still running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	status, err := s.client.HandleNetworkChange(ctx, s.client.reachability())
	if err != nil {
		s.logger.Error("scheduled offline check failed", "error", err)
		return
	}
	if !status.AccessPermitted() {
		s.logger.Warn("offline access no longer permitted",
			"remaining_hours", status.RemainingHours, "blocked", status.IsBlocked)
	}
}
