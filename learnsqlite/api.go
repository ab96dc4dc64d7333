// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shann2345/go-learnsync/learnsync"
)

// fetchServerTime asks the server for its current clock, retrying transient
// failures per the configured policy. This is the only source of trusted
// time; everything offline is reconstructed from its result.
func (c *Client) fetchServerTime(ctx context.Context) (time.Time, error) {
	var out learnsync.ServerTimeResponse
	err := c.config.Retry.Do(ctx, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/server-time", nil)
		if err != nil {
			return fmt.Errorf("failed to create HTTP request: %w", err)
		}
		if err := c.authorize(ctx, httpReq); err != nil {
			return err
		}

		resp, err := c.HTTP.Do(httpReq)
		if err != nil {
			return learnsync.Transient(fmt.Errorf("failed to send HTTP request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode >= http.StatusInternalServerError {
				return learnsync.Transient(err)
			}
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode server time response: %w", err)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return out.Timestamp, nil
}

// sendQuizAttempt uploads one offline-completed attempt. The server is
// idempotent per attempt_id, so replaying a previously delivered attempt
// yields a duplicate ack rather than a second submission.
func (c *Client) sendQuizAttempt(ctx context.Context, up *learnsync.QuizAttemptUpload) (*learnsync.SubmissionAck, error) {
	return c.postForAck(ctx, "/quiz-submissions", up)
}

// sendSubmission uploads one assignment file with the same idempotency
// contract, keyed by submission_id.
func (c *Client) sendSubmission(ctx context.Context, up *learnsync.SubmissionUpload) (*learnsync.SubmissionAck, error) {
	return c.postForAck(ctx, "/assignment-submissions", up)
}

func (c *Client) postForAck(ctx context.Context, path string, payload any) (*learnsync.SubmissionAck, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, httpReq); err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var ack learnsync.SubmissionAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("failed to decode acknowledgment: %w", err)
	}
	return &ack, nil
}

// fetchContent retrieves one content item for cache refill, retrying
// transient failures.
func (c *Client) fetchContent(ctx context.Context, kind, id string) (*learnsync.ContentResponse, error) {
	url := fmt.Sprintf("%s/%ss/%s", c.BaseURL, kind, id)

	var out learnsync.ContentResponse
	err := c.config.Retry.Do(ctx, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create HTTP request: %w", err)
		}
		if err := c.authorize(ctx, httpReq); err != nil {
			return err
		}

		resp, err := c.HTTP.Do(httpReq)
		if err != nil {
			return learnsync.Transient(fmt.Errorf("failed to send HTTP request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode >= http.StatusInternalServerError {
				return learnsync.Transient(err)
			}
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode content response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
