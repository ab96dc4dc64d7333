// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/shann2345/go-learnsync/learnsync"
)

func TestResolveContentPrefersNetworkAndRefreshesCache(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	openAt := base.Add(time.Hour)
	c.HTTP = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/assessments/quiz-1", r.URL.Path)
		return jsonResponse(http.StatusOK, learnsync.ContentResponse{
			ID:          "quiz-1",
			Kind:        learnsync.KindAssessment,
			Payload:     json.RawMessage(`{"title":"Algebra final"}`),
			AvailableAt: &openAt,
		}), nil
	})}

	item, err := c.ResolveContent(ctx, learnsync.KindAssessment, "quiz-1")
	require.NoError(t, err)
	require.Equal(t, "quiz-1", item.ID)
	require.JSONEq(t, `{"title":"Algebra final"}`, string(item.Payload))
	require.Equal(t, openAt.Unix(), item.AvailableAt.Unix())

	// The fetch refreshed the local snapshot on the way through
	cached, err := c.GetCachedContent(ctx, learnsync.KindAssessment, "quiz-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.JSONEq(t, `{"title":"Algebra final"}`, string(cached.Payload))
}

func TestResolveContentFallsBackToCacheWhenOffline(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	require.NoError(t, c.UpsertCachedContent(ctx, &CachedContentItem{
		ID:      "course-1",
		Kind:    learnsync.KindCourse,
		Payload: json.RawMessage(`{"name":"Calculus"}`),
	}))

	c.Reach = func() Reachability {
		return Reachability{IsConnected: false, IsInternetReachable: boolPtr(false)}
	}
	c.HTTP = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request while offline: %s", r.URL)
		return nil, nil
	})}

	item, err := c.ResolveContent(ctx, learnsync.KindCourse, "course-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Calculus"}`, string(item.Payload))
}

func TestResolveContentFallsBackToCacheWhenServerErrors(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	require.NoError(t, c.UpsertCachedContent(ctx, &CachedContentItem{
		ID:      "notes-1",
		Kind:    learnsync.KindMaterial,
		Payload: json.RawMessage(`{"body":"chapter 3"}`),
	}))

	c.HTTP = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, learnsync.ErrorResponse{Error: "boom"}), nil
	})}

	item, err := c.ResolveContent(ctx, learnsync.KindMaterial, "notes-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"body":"chapter 3"}`, string(item.Payload))
}

func TestResolveContentMissEverywhere(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	c.Reach = func() Reachability {
		return Reachability{IsConnected: false, IsInternetReachable: boolPtr(false)}
	}

	_, err := c.ResolveContent(ctx, learnsync.KindCourse, "never-seen")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrContentUnavailable)
}

func TestResolveContentRejectsUnknownKind(t *testing.T) {
	db := openTestDB(t)
	c := newTestClient(t, db, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := c.ResolveContent(context.Background(), "homework", "hw-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown content kind")
}

func TestCachedContentUpsertReplaces(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	c := newTestClient(t, db, base)
	ctx := context.Background()

	openAt := base.Add(time.Hour)
	require.NoError(t, c.UpsertCachedContent(ctx, &CachedContentItem{
		ID: "quiz-1", Kind: learnsync.KindAssessment,
		Payload: json.RawMessage(`{"v":1}`), AvailableAt: &openAt,
	}))
	require.NoError(t, c.UpsertCachedContent(ctx, &CachedContentItem{
		ID: "quiz-1", Kind: learnsync.KindAssessment,
		Payload: json.RawMessage(`{"v":2}`),
	}))

	item, err := c.GetCachedContent(ctx, learnsync.KindAssessment, "quiz-1")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(item.Payload))
	require.Nil(t, item.AvailableAt)

	var rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM cached_content").Scan(&rows))
	require.Equal(t, 1, rows)
}
