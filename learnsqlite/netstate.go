// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"fmt"
)

// Reachability mirrors the host app's network signal. IsInternetReachable
// is authoritative when known; IsConnected is advisory only, since a device
// can hold a link-local connection with no internet behind it.
type Reachability struct {
	IsConnected         bool
	IsInternetReachable *bool
}

// Online reports whether the engine should treat the device as connected.
func (r Reachability) Online() bool {
	if r.IsInternetReachable != nil {
		return *r.IsInternetReachable
	}
	return r.IsConnected
}

// HandleNetworkChange is the single entry point for reachability and
// app-lifecycle triggers: tamper check first, then, when online, a
// server-time refresh followed by a flush of pending work, so a tamper
// detected this cycle suppresses uploads this cycle and a successful
// resync clears any block before the flush runs.
//
// The returned status reflects the post-transition offline budget.
func (c *Client) HandleNetworkChange(ctx context.Context, reach Reachability) (*OfflineStatus, error) {
	if _, err := c.CheckForTamper(ctx, c.now()); err != nil {
		return nil, err
	}

	if !reach.Online() {
		warn, err := c.OfflineNotice(ctx)
		if err != nil {
			return nil, err
		}
		if warn {
			c.logger.Info("device went offline, offline budget in effect", "user", c.UserEmail)
		}
		return c.GetOfflineStatus(ctx)
	}

	serverTime, err := c.fetchServerTime(ctx)
	if err != nil {
		// Reported reachable but the server is not answering; keep running
		// on trusted time and try again on the next trigger.
		c.logger.Warn("server time fetch failed, staying on trusted time",
			"user", c.UserEmail, "error", err)
		return c.GetOfflineStatus(ctx)
	}

	if err := c.RecordServerTime(ctx, serverTime); err != nil {
		return nil, err
	}

	if _, err := c.FlushPendingWork(ctx, WithReachability(reach)); err != nil {
		// Flush problems are soft here; pending rows survive for the next
		// trigger.
		c.logger.Warn("flush after reconnect failed", "user", c.UserEmail, "error", err)
	}

	return c.GetOfflineStatus(ctx)
}

// OfflineNotice reports whether the one-time "you are offline" explanatory
// warning should be shown now, and latches the cooldown when it should.
func (c *Client) OfflineNotice(ctx context.Context) (bool, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	rec, err := c.getTimeSync(ctx, c.UserEmail)
	if err != nil {
		return false, err
	}
	if rec == nil {
		// Nothing to latch against before the first sync; warn every time.
		return true, nil
	}

	now := c.now()
	if rec.OfflineWarnedAt != nil && now.Sub(*rec.OfflineWarnedAt) < c.config.WarningCooldown {
		return false, nil
	}

	if _, err := c.DB.ExecContext(ctx, `
		UPDATE time_sync SET offline_warned_at = ? WHERE user_email = ?
	`, now.Unix(), c.UserEmail); err != nil {
		return false, fmt.Errorf("failed to latch offline warning: %w", err)
	}
	return true, nil
}
