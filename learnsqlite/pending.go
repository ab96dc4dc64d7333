// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueueSubmission stores an assignment file upload for later reconciliation.
// Called when the student submits while offline, or when a live upload
// failed and the work must not be lost. A missing ID or timestamp is filled
// in here.
func (c *Client) QueueSubmission(ctx context.Context, sub *PendingSubmission) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.UserEmail == "" {
		sub.UserEmail = c.UserEmail
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = c.now()
	}

	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO pending_submissions (id, assessment_id, user_email, file_uri, original_filename, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sub.ID, sub.AssessmentID, sub.UserEmail, sub.FileURI, sub.OriginalFilename, sub.SubmittedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to queue submission: %w", err)
	}

	c.logger.Info("queued offline submission",
		"id", sub.ID, "assessment", sub.AssessmentID, "filename", sub.OriginalFilename)
	return nil
}

// QueueQuizAttempt stores an offline-completed quiz attempt for later
// reconciliation. Answers keep their original order.
func (c *Client) QueueQuizAttempt(ctx context.Context, att *PendingQuizAttempt) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	if att.UserEmail == "" {
		att.UserEmail = c.UserEmail
	}

	answers, err := json.Marshal(att.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	_, err = c.DB.ExecContext(ctx, `
		INSERT INTO pending_quiz_attempts (id, assessment_id, user_email, answers, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?)
	`, att.ID, att.AssessmentID, att.UserEmail, string(answers),
		nullableUnix(att.StartTime), nullableUnix(att.EndTime))
	if err != nil {
		return fmt.Errorf("failed to queue quiz attempt: %w", err)
	}

	c.logger.Info("queued offline quiz attempt", "id", att.ID, "assessment", att.AssessmentID)
	return nil
}

// ListPendingSubmissions returns unsynced, non-skipped submissions for the
// user in queue order.
func (c *Client) ListPendingSubmissions(ctx context.Context) ([]*PendingSubmission, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT id, assessment_id, user_email, file_uri, original_filename, submitted_at,
		       attempts, next_retry_at, last_error
		FROM pending_submissions
		WHERE user_email = ? AND synced_at IS NULL AND skip_reason IS NULL
		ORDER BY queued_at
	`, c.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending submissions: %w", err)
	}
	defer rows.Close()

	var result []*PendingSubmission
	for rows.Next() {
		sub := &PendingSubmission{}
		var submittedAt int64
		var nextRetry sql.NullInt64
		var lastError sql.NullString
		if err := rows.Scan(&sub.ID, &sub.AssessmentID, &sub.UserEmail, &sub.FileURI,
			&sub.OriginalFilename, &submittedAt, &sub.Attempts, &nextRetry, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan pending submission: %w", err)
		}
		sub.SubmittedAt = time.Unix(submittedAt, 0).UTC()
		sub.NextRetryAt = unixPtr(nextRetry)
		sub.LastError = lastError.String
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListPendingQuizAttempts returns unsynced, non-skipped quiz attempts for
// the user in queue order.
func (c *Client) ListPendingQuizAttempts(ctx context.Context) ([]*PendingQuizAttempt, error) {
	rows, err := c.DB.QueryContext(ctx, `
		SELECT id, assessment_id, user_email, answers, start_time, end_time,
		       attempts, next_retry_at, last_error
		FROM pending_quiz_attempts
		WHERE user_email = ? AND synced_at IS NULL AND skip_reason IS NULL
		ORDER BY queued_at
	`, c.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending quiz attempts: %w", err)
	}
	defer rows.Close()

	var result []*PendingQuizAttempt
	for rows.Next() {
		att := &PendingQuizAttempt{}
		var answers string
		var startTime, endTime, nextRetry sql.NullInt64
		var lastError sql.NullString
		if err := rows.Scan(&att.ID, &att.AssessmentID, &att.UserEmail, &answers,
			&startTime, &endTime, &att.Attempts, &nextRetry, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan pending quiz attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(answers), &att.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers for attempt %s: %w", att.ID, err)
		}
		att.StartTime = unixPtr(startTime)
		att.EndTime = unixPtr(endTime)
		att.NextRetryAt = unixPtr(nextRetry)
		att.LastError = lastError.String
		result = append(result, att)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// PendingCount returns how many items still await reconciliation for the
// user (excluding permanently skipped rows). Useful for UI badges.
func (c *Client) PendingCount(ctx context.Context) (int, error) {
	var subs, atts int
	err := c.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pending_submissions
		WHERE user_email = ? AND synced_at IS NULL AND skip_reason IS NULL
	`, c.UserEmail).Scan(&subs)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending submissions: %w", err)
	}
	err = c.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pending_quiz_attempts
		WHERE user_email = ? AND synced_at IS NULL AND skip_reason IS NULL
	`, c.UserEmail).Scan(&atts)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending quiz attempts: %w", err)
	}
	return subs + atts, nil
}

func (c *Client) deletePending(ctx context.Context, table, id string) error {
	_, err := c.DB.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete acknowledged row from %s: %w", table, err)
	}
	return nil
}

func (c *Client) markPendingFailed(ctx context.Context, table, id string, attempts int, nextRetry time.Time, cause string) error {
	_, err := c.DB.ExecContext(ctx, `
		UPDATE `+table+` SET attempts = ?, next_retry_at = ?, last_error = ? WHERE id = ?
	`, attempts, nextRetry.Unix(), cause, id)
	if err != nil {
		return fmt.Errorf("failed to mark pending row failed in %s: %w", table, err)
	}
	return nil
}

func (c *Client) markPendingSkipped(ctx context.Context, table, id, reason string) error {
	_, err := c.DB.ExecContext(ctx, `
		UPDATE `+table+` SET skip_reason = ? WHERE id = ?
	`, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark pending row skipped in %s: %w", table, err)
	}
	return nil
}
