// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"time"
)

// Available reports whether a time-gated window is open at the effective
// instant. The lower bound is inclusive, the upper bound exclusive; an
// absent bound does not constrain. Pure function, safe to call on every
// render.
func Available(availableAt, unavailableAt *time.Time, effective time.Time) bool {
	if availableAt != nil && effective.Before(*availableAt) {
		return false
	}
	if unavailableAt != nil && !effective.Before(*unavailableAt) {
		return false
	}
	return true
}

// IsContentAvailable decides whether a cached item may be shown right now.
// A tamper lockout overrides everything else. With no trusted time yet,
// raw device time is used permissively so a brand-new offline user is not
// needlessly locked out of content with no timing sensitivity.
func (c *Client) IsContentAvailable(ctx context.Context, item *CachedContentItem) (bool, error) {
	trusted, ok, err := c.TrustedTime(ctx)
	if err != nil {
		return false, err
	}

	// The TrustedTime call above fed the tamper detector, so the block
	// state read here reflects this very check.
	rec, err := c.getTimeSync(ctx, c.UserEmail)
	if err != nil {
		return false, err
	}
	if rec != nil && rec.IsBlocked {
		return false, nil
	}

	effective := trusted
	if !ok {
		effective = c.now()
	}
	return Available(item.AvailableAt, item.UnavailableAt, effective), nil
}
