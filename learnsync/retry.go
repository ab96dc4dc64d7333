// Copyright 2025 shann2345
// SPDX-License-Identifier: Apache-2.0

package learnsync

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy is the single retry-with-backoff combinator used for outbound
// requests. Call sites declare attempt count and delays here instead of
// inlining their own loops.
type RetryPolicy struct {
	MaxAttempts uint64        // total attempts including the first one
	BaseDelay   time.Duration // initial backoff delay
	MaxDelay    time.Duration // cap for the exponential backoff
	Jitter      time.Duration // random jitter added to each delay
}

// DefaultRetryPolicy suits short foreground requests such as the
// server-time fetch: three attempts over a few seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Jitter:      100 * time.Millisecond,
	}
}

// Do runs fn with exponential backoff per the policy. fn signals a retryable
// failure by returning Transient(err); any other error aborts immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	if p.Jitter > 0 {
		b = retry.WithJitter(p.Jitter, b)
	}
	if p.MaxAttempts > 0 {
		b = retry.WithMaxRetries(p.MaxAttempts-1, b)
	}
	return retry.Do(ctx, b, fn)
}

// Transient marks err as retryable for RetryPolicy.Do.
func Transient(err error) error {
	return retry.RetryableError(err)
}
