// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts is the total number of attempts, including the first.
	DefaultMaxAttempts = 3

	// DefaultDelay is the fixed wait between attempts.
	DefaultDelay = 1 * time.Second
)

// Policy configures Do.
type Policy struct {
	// MaxAttempts is the total number of attempts (must be > 0).
	MaxAttempts int

	// Delay is the fixed interval between attempts.
	Delay time.Duration

	// Retryable classifies an error as transient. Only transient errors are
	// retried. A nil Retryable treats every error as transient.
	Retryable func(error) bool

	// Logger receives retry notifications. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultPolicy returns the standard policy: 3 attempts, fixed 1s delay,
// retrying only errors accepted by retryable.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Retryable:   retryable,
	}
}

// Do runs op until it succeeds, fails with a non-transient error, or the
// attempt budget is exhausted. The error of the last attempt is returned
// unchanged so callers can classify it with errors.Is/As.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if policy.MaxAttempts <= 0 {
		return zero, ErrInvalidMaxAttempts
	}

	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = func(error) bool { return true }
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Delay), uint64(policy.MaxAttempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return zero, backoff.Permanent(err)
		}

		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return result, nil
		}
		if !retryable(err) {
			return zero, backoff.Permanent(err)
		}
		return zero, err
	}

	notify := func(err error, delay time.Duration) {
		logger.Warn("transient failure, will retry",
			"attempt", attempt,
			"maxAttempts", policy.MaxAttempts,
			"delay", delay,
			"err", err)
	}

	return backoff.RetryNotifyWithData(operation, b, notify)
}

// DoErr is Do for operations that produce no value.
func DoErr(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
