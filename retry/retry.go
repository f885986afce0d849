/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/suparena/storeflow/errors"
)

// Option configures one retried call.
type Option func(*settings)

type settings struct {
	delay     time.Duration
	permanent func(error) bool
	onAttempt func(attempt int)
	onRetry   func(attempt int, err error, next time.Duration)
}

// WithBackoff waits d between attempts. The default is no wait.
func WithBackoff(d time.Duration) Option {
	return func(s *settings) {
		s.delay = d
	}
}

// WithPermanent overrides which errors stop retrying immediately. By
// default configuration and usage errors are permanent.
func WithPermanent(fn func(error) bool) Option {
	return func(s *settings) {
		s.permanent = fn
	}
}

// OnAttempt is called before every attempt with its 1-based number.
func OnAttempt(fn func(attempt int)) Option {
	return func(s *settings) {
		s.onAttempt = fn
	}
}

// OnRetry is called after a failed attempt that will be retried.
func OnRetry(fn func(attempt int, err error, next time.Duration)) Option {
	return func(s *settings) {
		s.onRetry = fn
	}
}

// Do runs op up to attempts times, sequentially, until it succeeds. Fewer
// than one attempt is treated as one. Retrying stops early on a permanent
// error or when ctx ends; the last error is returned.
func Do(ctx context.Context, attempts int, op func(ctx context.Context) error, opts ...Option) error {
	_, err := Value(ctx, attempts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// Value is Do for operations that produce a value.
func Value[T any](ctx context.Context, attempts int, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	s := settings{permanent: errors.IsPermanent}
	for _, opt := range opts {
		opt(&s)
	}
	attempts = max(attempts, 1)

	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if s.delay > 0 {
		b = backoff.NewConstantBackOff(s.delay)
	}
	b = backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	var (
		out     T
		attempt int
	)
	operation := func() error {
		attempt++
		if s.onAttempt != nil {
			s.onAttempt(attempt)
		}
		v, err := op(ctx)
		if err == nil {
			out = v
			return nil
		}
		if s.permanent != nil && s.permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		if s.onRetry != nil {
			s.onRetry(attempt, err, next)
		}
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
