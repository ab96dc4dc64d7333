// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRejectsBadSpec(t *testing.T) {
	db := openTestDB(t)
	c := newTestClient(t, db, time.Now())

	s := NewScheduler(c, "not a cron spec")
	require.Error(t, s.Start())
}

func TestSchedulerDefaultsToConfiguredInterval(t *testing.T) {
	db := openTestDB(t)
	c := newTestClient(t, db, time.Now())

	s := NewScheduler(c, "")
	require.Equal(t, c.config.CheckInterval, s.spec)
}

func TestSchedulerTickSyncsWhenReachable(t *testing.T) {
	_, url := startLMS(t)
	db := openTestDB(t)
	base := time.Now().UTC()
	c := newFlowClient(t, db, url, base)

	s := NewScheduler(c, "@every 50ms")
	require.NoError(t, s.Start())
	defer s.Stop()

	// A tick while reachable records fresh server time
	deadline := time.After(3 * time.Second)
	for {
		rec, err := c.getTimeSync(context.Background(), c.UserEmail)
		require.NoError(t, err)
		if rec != nil {
			require.WithinDuration(t, time.Now(), rec.LastServerTime, 10*time.Second)
			return
		}
		select {
		case <-deadline:
			t.Fatal("scheduler never recorded server time")
		case <-time.After(20 * time.Millisecond):
		}
	}
}
