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

func TestRecordServerTimeCreatesRecord(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	serverTime := base.Add(45 * time.Minute) // server clock ahead of device
	require.NoError(t, c.RecordServerTime(ctx, serverTime))

	rec, err := c.getTimeSync(ctx, c.UserEmail)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, serverTime.Unix(), rec.LastServerTime.Unix())
	require.Equal(t, base.Unix(), rec.LastDeviceTimeAtSync.Unix())
	require.Equal(t, base.Unix(), rec.LastObservedDeviceTime.Unix())
	require.Equal(t, int64(0), rec.ForwardDriftConsumed)
	require.False(t, rec.IsBlocked)
	require.Nil(t, rec.BlockedAt)
}

func TestRecordServerTimeReplacesPreviousSync(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	require.NoError(t, c.RecordServerTime(ctx, base))

	// Second sync two hours later replaces the anchor rather than adding a row
	later := base.Add(2 * time.Hour)
	c.now = func() time.Time { return later }
	require.NoError(t, c.RecordServerTime(ctx, later.Add(45*time.Minute)))

	var rows int
	err := db.QueryRow("SELECT COUNT(*) FROM time_sync WHERE user_email = ?", c.UserEmail).Scan(&rows)
	require.NoError(t, err)
	require.Equal(t, 1, rows)

	rec, err := c.getTimeSync(ctx, c.UserEmail)
	require.NoError(t, err)
	require.Equal(t, later.Unix(), rec.LastDeviceTimeAtSync.Unix())
}

func TestRecordServerTimeClearsTamperBlock(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	require.NoError(t, c.RecordServerTime(ctx, base))

	// Backward movement past tolerance locks the engine
	res, err := c.CheckForTamper(ctx, base.Add(-10*time.Minute))
	require.NoError(t, err)
	require.Equal(t, TamperBackward, res.Status)

	rec, err := c.getTimeSync(ctx, c.UserEmail)
	require.NoError(t, err)
	require.True(t, rec.IsBlocked)
	require.NotNil(t, rec.BlockedAt)

	// An online resync is the only path out of the lockout
	require.NoError(t, c.RecordServerTime(ctx, base.Add(time.Hour)))

	rec, err = c.getTimeSync(ctx, c.UserEmail)
	require.NoError(t, err)
	require.False(t, rec.IsBlocked)
	require.Nil(t, rec.BlockedAt)
	require.Equal(t, int64(0), rec.ForwardDriftConsumed)
}

func TestTrustedTimeReconstructsFromServerAnchor(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	// Device clock runs 45 minutes behind the server
	serverT0 := base.Add(45 * time.Minute)
	require.NoError(t, c.RecordServerTime(ctx, serverT0))

	// Three device-hours later the trusted clock reads server anchor + 3h
	c.now = func() time.Time { return base.Add(3 * time.Hour) }
	trusted, ok, err := c.TrustedTime(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, serverT0.Add(3*time.Hour).Unix(), trusted.Unix())
}

func TestTrustedTimeWithoutRecordFallsBack(t *testing.T) {
	db := openTestDB(t)
	c := newTestClient(t, db, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	_, ok, err := c.TrustedTime(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}
