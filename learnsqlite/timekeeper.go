// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"fmt"
	"time"
)

// RecordServerTime persists a freshly fetched server timestamp together with
// the device clock reading captured at the same moment. Called only while
// online. A successful call zeroes the forward-drift counter and clears any
// tamper block; it is the sole path out of a lockout.
func (c *Client) RecordServerTime(ctx context.Context, serverTime time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deviceNow := c.now()
	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO time_sync (user_email, last_server_time, last_device_time_at_sync,
			last_observed_device_time, forward_drift_consumed, is_blocked, blocked_at)
		VALUES (?, ?, ?, ?, 0, 0, NULL)
		ON CONFLICT(user_email) DO UPDATE SET
			last_server_time          = excluded.last_server_time,
			last_device_time_at_sync  = excluded.last_device_time_at_sync,
			last_observed_device_time = excluded.last_observed_device_time,
			forward_drift_consumed    = 0,
			is_blocked                = 0,
			blocked_at                = NULL
	`, c.UserEmail, serverTime.Unix(), deviceNow.Unix(), deviceNow.Unix())
	if err != nil {
		return fmt.Errorf("failed to record server time: %w", err)
	}

	c.logger.Info("recorded server time",
		"user", c.UserEmail,
		"server_time", serverTime.UTC().Format(time.RFC3339),
		"device_time", deviceNow.UTC().Format(time.RFC3339))
	return nil
}

// TrustedTime reconstructs the current time as the last known-good server
// timestamp plus the device time elapsed since it was captured. ok is false
// when no sync record exists yet; callers then fall back to raw device time.
//
// Every call also feeds the current device clock reading into the tamper
// detector, so merely asking for the time keeps the tamper state current.
func (c *Client) TrustedTime(ctx context.Context) (trusted time.Time, ok bool, err error) {
	rec, err := c.getTimeSync(ctx, c.UserEmail)
	if err != nil {
		return time.Time{}, false, err
	}

	deviceNow := c.now()
	if rec == nil {
		c.logger.Debug("no time sync record, device time fallback in effect", "user", c.UserEmail)
		return time.Time{}, false, nil
	}

	if _, err := c.CheckForTamper(ctx, deviceNow); err != nil {
		return time.Time{}, false, fmt.Errorf("tamper check failed: %w", err)
	}

	trusted = rec.LastServerTime.Add(deviceNow.Sub(rec.LastDeviceTimeAtSync))
	return trusted, true, nil
}
