// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
)

// GetOfflineStatus derives the rolling offline-access budget from the
// current TimeSyncRecord.
//
// A missing record fails open with the full allowance: no record means the
// user just signed in online and has had no opportunity to tamper. Reaching
// zero remaining hours denies gated actions regardless of tamper state;
// cached content without a time gate stays readable in degraded mode.
func (c *Client) GetOfflineStatus(ctx context.Context) (*OfflineStatus, error) {
	total := c.config.TotalAllowanceHours

	rec, err := c.getTimeSync(ctx, c.UserEmail)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &OfflineStatus{RemainingHours: total, TotalHours: total, IsBlocked: false}, nil
	}

	hoursSinceSync := c.now().Sub(rec.LastDeviceTimeAtSync).Hours()
	if hoursSinceSync < 0 {
		hoursSinceSync = 0
	}

	remaining := total - hoursSinceSync - float64(rec.ForwardDriftConsumed)/3600
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}

	return &OfflineStatus{
		RemainingHours: remaining,
		TotalHours:     total,
		IsBlocked:      rec.IsBlocked,
	}, nil
}
