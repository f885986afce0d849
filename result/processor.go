/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package result

import (
	"context"
	"fmt"

	sferrors "github.com/suparena/storeflow/errors"
)

// Processor transforms a value into a stream of results. The producer must
// close the stream once its value is sent; a stream left open is drained
// only until ctx ends.
type Processor[V, R any] func(ctx context.Context, v V) (<-chan Result[R], error)

// EqProcessor passes its input through unchanged.
func EqProcessor[V any]() Processor[V, V] {
	return func(_ context.Context, v V) (<-chan Result[V], error) {
		return Just(Success(v)), nil
	}
}

// Lift turns a synchronous transform into a Processor.
func Lift[V, R any](fn func(context.Context, V) (R, error)) Processor[V, R] {
	return func(ctx context.Context, v V) (<-chan Result[R], error) {
		return Just(Of(fn(ctx, v))), nil
	}
}

// ProcessResult threads prev through proc. A failed prev short-circuits
// without calling proc. Errors returned or panics raised by proc, and a
// stream that ends without a value, become failures; the returned stream
// always carries exactly one value unless ctx ends first.
func ProcessResult[V, R any](ctx context.Context, prev Result[V], proc Processor[V, R]) <-chan Result[R] {
	v, err := prev.Get()
	if err != nil {
		return Fail[R](err)
	}
	if proc == nil {
		return Fail[R](sferrors.NewProcessorError(fmt.Errorf("nil processor")))
	}

	in, err := invoke(ctx, proc, v)
	if err != nil {
		return Fail[R](sferrors.NewProcessorError(err))
	}
	if in == nil {
		return Fail[R](sferrors.NewProcessorError(sferrors.ErrNoResult))
	}

	out := make(chan Result[R], 1)
	go func() {
		defer close(out)
		select {
		case r, open := <-in:
			if !open {
				r = Failure[R](sferrors.NewProcessorError(sferrors.ErrNoResult))
			} else {
				go drain(ctx, in)
			}
			out <- r
		case <-ctx.Done():
			go drain(ctx, in)
		}
	}()
	return out
}

func invoke[V, R any](ctx context.Context, proc Processor[V, R], v V) (ch <-chan Result[R], err error) {
	defer func() {
		if p := recover(); p != nil {
			ch, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return proc(ctx, v)
}
