// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"encoding/json"
	"time"

	"github.com/shann2345/go-learnsync/learnsync"
)

// TimeSyncRecord maps the last known-good server timestamp to the device
// clock reading captured at the same moment. One row per signed-in user.
type TimeSyncRecord struct {
	UserEmail              string
	LastServerTime         time.Time
	LastDeviceTimeAtSync   time.Time
	LastObservedDeviceTime time.Time
	ForwardDriftConsumed   int64 // seconds debited from the offline budget
	IsBlocked              bool
	BlockedAt              *time.Time
	OfflineWarnedAt        *time.Time
}

// PendingSubmission is an assignment file upload queued while offline or
// after a failed upload. Deleted only once the server acknowledges it.
type PendingSubmission struct {
	ID               string
	AssessmentID     string
	UserEmail        string
	FileURI          string
	OriginalFilename string
	SubmittedAt      time.Time
	Attempts         int
	NextRetryAt      *time.Time
	LastError        string
	SkipReason       string
	SyncedAt         *time.Time
}

// PendingQuizAttempt is an offline-completed quiz or exam. An attempt must
// carry both StartTime and EndTime before it is eligible for upload.
type PendingQuizAttempt struct {
	ID           string
	AssessmentID string
	UserEmail    string
	Answers      []learnsync.QuizAnswer
	StartTime    *time.Time
	EndTime      *time.Time
	Attempts     int
	NextRetryAt  *time.Time
	LastError    string
	SkipReason   string
	SyncedAt     *time.Time
}

// CachedContentItem is a course/material/assessment snapshot taken on a
// successful online fetch. Staleness is tolerated in favor of availability;
// rows are only ever replaced by a newer fetch, never expired.
type CachedContentItem struct {
	ID            string
	UserEmail     string
	Kind          string
	Payload       json.RawMessage
	AvailableAt   *time.Time
	UnavailableAt *time.Time
	CachedAt      time.Time
}

// OfflineStatus is the rolling offline-access budget derived from the
// TimeSyncRecord at query time.
type OfflineStatus struct {
	RemainingHours float64 `json:"remaining_hours"`
	TotalHours     float64 `json:"total_hours"`
	IsBlocked      bool    `json:"is_blocked"`
}

// AccessPermitted reports whether gated actions (starting attempts,
// submitting work) are still allowed. Non-gated cached reads stay available
// even when this returns false.
func (s *OfflineStatus) AccessPermitted() bool {
	return !s.IsBlocked && s.RemainingHours > 0
}

// FlushReport aggregates the outcome of one reconciliation pass. Partial
// failure is expected and is not an error.
type FlushReport struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
