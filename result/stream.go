/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package result

import (
	"context"

	sferrors "github.com/suparena/storeflow/errors"
)

// Just returns a closed stream holding r.
func Just[T any](r Result[T]) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	ch <- r
	close(ch)
	return ch
}

// Fail returns a closed stream holding a failure.
func Fail[T any](err error) <-chan Result[T] {
	return Just(Failure[T](err))
}

// Await blocks for the first value on in. A stream closed without a value
// yields ErrNoResult; a cancelled ctx yields its error.
func Await[T any](ctx context.Context, in <-chan Result[T]) Result[T] {
	if in == nil {
		return Failure[T](sferrors.ErrNoResult)
	}
	select {
	case r, ok := <-in:
		if !ok {
			return Failure[T](sferrors.ErrNoResult)
		}
		return r
	case <-ctx.Done():
		return Failure[T](ctx.Err())
	}
}

// Then feeds the terminal value of in through proc.
func Then[V, R any](ctx context.Context, in <-chan Result[V], proc Processor[V, R]) <-chan Result[R] {
	out := make(chan Result[R], 1)
	go func() {
		defer close(out)
		prev, ok := receive(ctx, in)
		if !ok {
			return
		}
		r, ok := receive(ctx, ProcessResult(ctx, prev, proc))
		if ok {
			out <- r
		}
	}()
	return out
}

// receive waits for the first value on in and drains the rest in the
// background so the producer never blocks. ok is false only when ctx ended
// first.
func receive[T any](ctx context.Context, in <-chan Result[T]) (Result[T], bool) {
	if in == nil {
		return Failure[T](sferrors.ErrNoResult), true
	}
	select {
	case r, open := <-in:
		if !open {
			return Failure[T](sferrors.ErrNoResult), true
		}
		go drain(ctx, in)
		return r, true
	case <-ctx.Done():
		go drain(ctx, in)
		return Result[T]{}, false
	}
}

// drain discards what is left on in until the producer closes it or ctx
// ends, whichever comes first.
func drain[T any](ctx context.Context, in <-chan Result[T]) {
	for {
		select {
		case _, open := <-in:
			if !open {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
