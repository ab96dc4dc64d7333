// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shann2345/go-learnsync/learnsync"
)

// Flush phases reported through FlushProgress.
const (
	PhaseSubmissions  = "submissions"
	PhaseQuizAttempts = "quiz_attempts"
)

// FlushProgress is a structured progress event emitted while a flush walks
// its pending items.
type FlushProgress struct {
	Phase   string
	Current int
	Total   int
}

type flushOptions struct {
	progress chan<- FlushProgress
	reach    *Reachability
}

// FlushOption customizes a single FlushPendingWork call.
type FlushOption func(*flushOptions)

// WithProgress streams per-item progress events to ch. Events are dropped
// rather than blocking when the receiver lags.
func WithProgress(ch chan<- FlushProgress) FlushOption {
	return func(o *flushOptions) { o.progress = ch }
}

// WithReachability overrides the engine's reachability signal for this call.
func WithReachability(reach Reachability) FlushOption {
	return func(o *flushOptions) { o.reach = &reach }
}

// FlushPendingWork uploads all locally recorded quiz attempts and file
// submissions that the server has not yet acknowledged.
//
// Per item: a confirmed 2xx acknowledgment deletes the local row; any
// failure leaves the row intact with a backoff stamp so the next trigger
// (reconnect, timer, pull-to-refresh) retries it. One item's failure never
// blocks the rest, and partial failure is not an error. Malformed rows are
// logged and permanently skipped, never deleted. Re-invoking while a flush
// for the same user is in progress no-ops instead of duplicating uploads.
func (c *Client) FlushPendingWork(ctx context.Context, opts ...FlushOption) (*FlushReport, error) {
	o := flushOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	reach := c.reachability()
	if o.reach != nil {
		reach = *o.reach
	}

	c.flushMu.Lock()
	if c.flushInFlight[c.UserEmail] {
		c.flushMu.Unlock()
		n, err := c.PendingCount(ctx)
		if err != nil {
			return nil, err
		}
		c.logger.Info("flush already in progress, skipping", "user", c.UserEmail, "pending", n)
		return &FlushReport{Skipped: n}, nil
	}
	c.flushInFlight[c.UserEmail] = true
	c.flushMu.Unlock()
	defer func() {
		c.flushMu.Lock()
		delete(c.flushInFlight, c.UserEmail)
		c.flushMu.Unlock()
	}()

	if !reach.Online() {
		n, err := c.PendingCount(ctx)
		if err != nil {
			return nil, err
		}
		c.logger.Info("flush skipped, offline", "user", c.UserEmail, "pending", n)
		return &FlushReport{Skipped: n}, nil
	}

	// A tamper detected this cycle suppresses uploads this cycle; the block
	// clears once an online resync records fresh server time.
	tamper, err := c.CheckForTamper(ctx, c.now())
	if err != nil {
		return nil, err
	}
	if tamper.Status == TamperBackward {
		n, err := c.PendingCount(ctx)
		if err != nil {
			return nil, err
		}
		c.logger.Warn("flush suppressed by tamper block", "user", c.UserEmail, "pending", n)
		return &FlushReport{Skipped: n}, nil
	}

	report := &FlushReport{}
	if err := c.flushSubmissions(ctx, &o, report); err != nil {
		return nil, err
	}
	if err := c.flushQuizAttempts(ctx, &o, report); err != nil {
		return nil, err
	}

	c.logger.Info("flush complete", "user", c.UserEmail,
		"succeeded", report.Succeeded, "failed", report.Failed, "skipped", report.Skipped)
	return report, nil
}

func (c *Client) flushSubmissions(ctx context.Context, o *flushOptions, report *FlushReport) error {
	subs, err := c.ListPendingSubmissions(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	for i, sub := range subs {
		emitProgress(o.progress, FlushProgress{Phase: PhaseSubmissions, Current: i + 1, Total: len(subs)})

		if sub.NextRetryAt != nil && sub.NextRetryAt.After(now) {
			report.Skipped++
			continue
		}

		upload, skipReason, err := c.buildSubmissionUpload(sub)
		if skipReason != "" {
			c.logger.Warn("skipping malformed pending submission",
				"id", sub.ID, "reason", skipReason, "error", err)
			if err := c.markPendingSkipped(ctx, "pending_submissions", sub.ID, skipReason); err != nil {
				return err
			}
			report.Skipped++
			continue
		}

		itemCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		ack, err := c.sendSubmission(itemCtx, upload)
		cancel()
		if err != nil || !ack.Accepted {
			cause := "rejected by server"
			if err != nil {
				cause = err.Error()
			}
			c.logger.Warn("submission upload failed, will retry on next trigger",
				"id", sub.ID, "cause", cause)
			retryAt := now.Add(c.retryDelay(sub.Attempts + 1))
			if err := c.markPendingFailed(ctx, "pending_submissions", sub.ID, sub.Attempts+1, retryAt, cause); err != nil {
				return err
			}
			report.Failed++
			continue
		}

		if err := c.deletePending(ctx, "pending_submissions", sub.ID); err != nil {
			return err
		}
		c.logger.Info("submission acknowledged", "id", sub.ID, "duplicate", ack.Duplicate)
		report.Succeeded++
	}
	return nil
}

func (c *Client) flushQuizAttempts(ctx context.Context, o *flushOptions, report *FlushReport) error {
	atts, err := c.ListPendingQuizAttempts(ctx)
	if err != nil {
		return err
	}

	now := c.now()
	for i, att := range atts {
		emitProgress(o.progress, FlushProgress{Phase: PhaseQuizAttempts, Current: i + 1, Total: len(atts)})

		if att.NextRetryAt != nil && att.NextRetryAt.After(now) {
			report.Skipped++
			continue
		}

		// An attempt is only eligible once it carries both start and end
		// times; anything else is kept but excluded from reconciliation.
		if att.StartTime == nil || att.EndTime == nil {
			c.logger.Warn("skipping quiz attempt without both start and end times", "id", att.ID)
			if err := c.markPendingSkipped(ctx, "pending_quiz_attempts", att.ID, learnsync.SkipMissingTimes); err != nil {
				return err
			}
			report.Skipped++
			continue
		}

		upload := &learnsync.QuizAttemptUpload{
			AttemptID:    att.ID,
			AssessmentID: att.AssessmentID,
			UserEmail:    att.UserEmail,
			Answers:      att.Answers,
			StartTime:    *att.StartTime,
			EndTime:      *att.EndTime,
		}

		itemCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
		ack, err := c.sendQuizAttempt(itemCtx, upload)
		cancel()
		if err != nil || !ack.Accepted {
			cause := "rejected by server"
			if err != nil {
				cause = err.Error()
			}
			c.logger.Warn("quiz attempt upload failed, will retry on next trigger",
				"id", att.ID, "cause", cause)
			retryAt := now.Add(c.retryDelay(att.Attempts + 1))
			if err := c.markPendingFailed(ctx, "pending_quiz_attempts", att.ID, att.Attempts+1, retryAt, cause); err != nil {
				return err
			}
			report.Failed++
			continue
		}

		if err := c.deletePending(ctx, "pending_quiz_attempts", att.ID); err != nil {
			return err
		}
		c.logger.Info("quiz attempt acknowledged", "id", att.ID, "duplicate", ack.Duplicate)
		report.Succeeded++
	}
	return nil
}

// buildSubmissionUpload reads the submitted file from disk. A row missing
// its file or filename can never succeed and is reported as a skip reason.
func (c *Client) buildSubmissionUpload(sub *PendingSubmission) (*learnsync.SubmissionUpload, string, error) {
	if sub.FileURI == "" || sub.OriginalFilename == "" {
		return nil, learnsync.SkipBadPayload, fmt.Errorf("submission %s missing file metadata", sub.ID)
	}
	content, err := os.ReadFile(sub.FileURI)
	if err != nil {
		return nil, learnsync.SkipMissingFile, fmt.Errorf("failed to read submission file: %w", err)
	}
	return &learnsync.SubmissionUpload{
		SubmissionID:     sub.ID,
		AssessmentID:     sub.AssessmentID,
		UserEmail:        sub.UserEmail,
		OriginalFilename: sub.OriginalFilename,
		Content:          content,
		SubmittedAt:      sub.SubmittedAt,
	}, "", nil
}

// retryDelay doubles from BackoffMin per recorded attempt, capped at
// BackoffMax.
func (c *Client) retryDelay(attempts int) time.Duration {
	delay := c.config.BackoffMin
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= c.config.BackoffMax {
			return c.config.BackoffMax
		}
	}
	if delay > c.config.BackoffMax {
		delay = c.config.BackoffMax
	}
	return delay
}

func emitProgress(ch chan<- FlushProgress, p FlushProgress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}
