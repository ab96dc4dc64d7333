// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/shann2345/go-learnsync/learnsync"
)

// ErrContentUnavailable is returned when no configured source could provide
// a content item.
var ErrContentUnavailable = errors.New("content unavailable from any source")

var errOffline = errors.New("device is offline")

// contentSource is one rung of the fetch precedence ladder.
type contentSource interface {
	name() string
	fetch(ctx context.Context, kind, id string) (*CachedContentItem, error)
}

// networkSource fetches from the LMS server and refreshes the local cache
// on the way through.
type networkSource struct{ c *Client }

func (s *networkSource) name() string { return "network" }

func (s *networkSource) fetch(ctx context.Context, kind, id string) (*CachedContentItem, error) {
	if !s.c.reachability().Online() {
		return nil, errOffline
	}

	resp, err := s.c.fetchContent(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	item := &CachedContentItem{
		ID:            resp.ID,
		UserEmail:     s.c.UserEmail,
		Kind:          kind,
		Payload:       resp.Payload,
		AvailableAt:   resp.AvailableAt,
		UnavailableAt: resp.UnavailableAt,
	}
	if err := s.c.UpsertCachedContent(ctx, item); err != nil {
		// The fetch itself succeeded; a cache refresh failure should not
		// deprive the caller of the content.
		s.c.logger.Warn("failed to refresh content cache", "kind", kind, "id", id, "error", err)
	}
	return item, nil
}

// cacheSource reads the local snapshot taken on an earlier online fetch.
type cacheSource struct{ c *Client }

func (s *cacheSource) name() string { return "cache" }

func (s *cacheSource) fetch(ctx context.Context, kind, id string) (*CachedContentItem, error) {
	item, err := s.c.GetCachedContent(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%s/%s never cached on this device", kind, id)
	}
	return item, nil
}

// ResolveContent fetches a course, material or assessment through the
// declared source precedence: the live server first, then the local cache.
// This is the one place the online→cache→error chain lives.
func (c *Client) ResolveContent(ctx context.Context, kind, id string) (*CachedContentItem, error) {
	switch kind {
	case learnsync.KindCourse, learnsync.KindMaterial, learnsync.KindAssessment:
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}

	sources := []contentSource{&networkSource{c}, &cacheSource{c}}

	var errs []error
	for _, src := range sources {
		item, err := src.fetch(ctx, kind, id)
		if err == nil {
			return item, nil
		}
		c.logger.Debug("content source miss", "source", src.name(), "kind", kind, "id", id, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", src.name(), err))
	}

	return nil, errors.Join(ErrContentUnavailable, errors.Join(errs...))
}
