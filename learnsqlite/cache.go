// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertCachedContent stores or replaces a content snapshot after a
// successful online fetch. Cached rows are never expired; staleness is
// tolerated in favor of availability.
func (c *Client) UpsertCachedContent(ctx context.Context, item *CachedContentItem) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if item.UserEmail == "" {
		item.UserEmail = c.UserEmail
	}
	if item.CachedAt.IsZero() {
		item.CachedAt = c.now()
	}

	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO cached_content (id, user_email, kind, payload, available_at, unavailable_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, user_email, kind) DO UPDATE SET
			payload        = excluded.payload,
			available_at   = excluded.available_at,
			unavailable_at = excluded.unavailable_at,
			cached_at      = excluded.cached_at
	`, item.ID, item.UserEmail, item.Kind, string(item.Payload),
		nullableUnix(item.AvailableAt), nullableUnix(item.UnavailableAt), item.CachedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert cached content: %w", err)
	}
	return nil
}

// GetCachedContent returns the cached snapshot for kind/id, or nil when the
// item has never been fetched on this device.
func (c *Client) GetCachedContent(ctx context.Context, kind, id string) (*CachedContentItem, error) {
	row := c.DB.QueryRowContext(ctx, `
		SELECT id, user_email, kind, payload, available_at, unavailable_at, cached_at
		FROM cached_content WHERE id = ? AND user_email = ? AND kind = ?
	`, id, c.UserEmail, kind)

	item := &CachedContentItem{}
	var payload string
	var availableAt, unavailableAt sql.NullInt64
	var cachedAt int64
	err := row.Scan(&item.ID, &item.UserEmail, &item.Kind, &payload,
		&availableAt, &unavailableAt, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cached content: %w", err)
	}

	item.Payload = []byte(payload)
	item.AvailableAt = unixPtr(availableAt)
	item.UnavailableAt = unixPtr(unavailableAt)
	item.CachedAt = time.Unix(cachedAt, 0).UTC()
	return item, nil
}

// ListCachedContent returns all cached items of one kind for the user,
// newest first.
func (c *Client) ListCachedContent(ctx context.Context, kind string) ([]*CachedContentItem, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT id, user_email, kind, payload, available_at, unavailable_at, cached_at
		FROM cached_content WHERE user_email = ? AND kind = ?
		ORDER BY cached_at DESC
	`, c.UserEmail, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached content: %w", err)
	}
	defer rows.Close()

	var result []*CachedContentItem
	for rows.Next() {
		item := &CachedContentItem{}
		var payload string
		var availableAt, unavailableAt sql.NullInt64
		var cachedAt int64
		if err := rows.Scan(&item.ID, &item.UserEmail, &item.Kind, &payload,
			&availableAt, &unavailableAt, &cachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached content: %w", err)
		}
		item.Payload = []byte(payload)
		item.AvailableAt = unixPtr(availableAt)
		item.UnavailableAt = unixPtr(unavailableAt)
		item.CachedAt = time.Unix(cachedAt, 0).UTC()
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
