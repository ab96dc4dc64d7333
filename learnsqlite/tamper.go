// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"fmt"
	"time"
)

// TamperStatus classifies an observed device-clock movement.
type TamperStatus string

const (
	TamperOK       TamperStatus = "ok"
	TamperForward  TamperStatus = "forward"
	TamperBackward TamperStatus = "backward"
)

// TamperResult is the outcome of a single clock check. For a forward jump,
// DeltaSeconds carries the excess beyond the expected elapse, which is the
// amount the budget manager debits. For ok and backward it is the raw delta.
type TamperResult struct {
	Status       TamperStatus
	DeltaSeconds int64
}

// CheckForTamper compares a newly observed device time against the expected
// progression of the clock.
//
// A backward movement beyond the tolerance sets the block flag and
// deliberately retains the stale last-observed value, so a later
// "correction" of the clock cannot mask the original tamper event. The
// block persists until RecordServerTime succeeds during an online resync.
//
// A forward jump is a wall-clock advance exceeding the elapse actually
// measured by the process monotonic clock (plus threshold) since the
// previous check. It is not blocking: the excess seconds are debited from
// the offline budget instead, so an egregious jump simply drains the whole
// budget. The first check of a process has no monotonic reference and only
// establishes the baseline; wall-clock passage across restarts is already
// charged through hours-since-sync.
func (c *Client) CheckForTamper(ctx context.Context, observed time.Time) (*TamperResult, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	monoNow := time.Now()
	expected := int64(0)
	haveBaseline := c.haveCheckMono
	if haveBaseline {
		expected = int64(monoNow.Sub(c.lastCheckMono).Seconds())
		if expected < 0 {
			expected = 0
		}
	}
	c.lastCheckMono = monoNow
	c.haveCheckMono = true

	rec, err := c.getTimeSync(ctx, c.UserEmail)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// No record means no prior observation to compare against. The
		// record is only ever created by an online sync.
		return &TamperResult{Status: TamperOK}, nil
	}

	delta := observed.Unix() - rec.LastObservedDeviceTime.Unix()

	if rec.IsBlocked {
		// Sticky until an online resync clears it.
		return &TamperResult{Status: TamperBackward, DeltaSeconds: delta}, nil
	}

	if delta < -c.config.ToleranceSeconds {
		_, err := c.DB.ExecContext(ctx, `
			UPDATE time_sync SET is_blocked = 1, blocked_at = ? WHERE user_email = ?
		`, c.now().Unix(), c.UserEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to persist tamper block: %w", err)
		}
		c.logger.Warn("backward clock jump detected, offline access blocked",
			"user", c.UserEmail, "delta_seconds", delta)
		return &TamperResult{Status: TamperBackward, DeltaSeconds: delta}, nil
	}

	if haveBaseline && delta > expected+c.config.ForwardJumpSeconds {
		excess := delta - expected - c.config.ForwardJumpSeconds
		_, err := c.DB.ExecContext(ctx, `
			UPDATE time_sync
			SET forward_drift_consumed = forward_drift_consumed + ?,
			    last_observed_device_time = ?
			WHERE user_email = ?
		`, excess, observed.Unix(), c.UserEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to debit forward drift: %w", err)
		}
		c.logger.Warn("forward clock jump detected, debiting offline budget",
			"user", c.UserEmail, "excess_seconds", excess)
		return &TamperResult{Status: TamperForward, DeltaSeconds: excess}, nil
	}

	if delta > 0 {
		_, err := c.DB.ExecContext(ctx, `
			UPDATE time_sync SET last_observed_device_time = ? WHERE user_email = ?
		`, observed.Unix(), c.UserEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to advance observed device time: %w", err)
		}
	}
	// Small negative drift within tolerance keeps the previous observation,
	// preserving the monotonic invariant on last_observed_device_time.
	return &TamperResult{Status: TamperOK, DeltaSeconds: delta}, nil
}
