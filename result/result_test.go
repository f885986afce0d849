/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package result

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sferrors "github.com/suparena/storeflow/errors"
)

func TestResult(t *testing.T) {
	ok := Success(3)
	assert.True(t, ok.IsSuccess())
	assert.NoError(t, ok.Err())
	assert.Empty(t, ok.Cause())
	v, err := ok.Get()
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	bad := Failure[int](errors.New("disk full"))
	assert.True(t, bad.IsFailure())
	assert.Equal(t, "disk full", bad.Cause())
	_, err = bad.Get()
	assert.EqualError(t, err, "disk full")

	assert.ErrorIs(t, Failure[int](nil).Err(), ErrUnknown, "a nil cause is still a failure")

	var zero Result[int]
	assert.True(t, zero.IsFailure(), "the zero Result is never neither")
	assert.ErrorIs(t, zero.Err(), sferrors.ErrNoResult)
}

func TestMap(t *testing.T) {
	r := Map(Success("12"), func(s string) (int, error) { return strconv.Atoi(s) })
	v, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	r = Map(Success("x"), func(s string) (int, error) { return strconv.Atoi(s) })
	assert.True(t, r.IsFailure())

	called := false
	r = Map(Failure[string](errors.New("first")), func(s string) (int, error) {
		called = true
		return 0, nil
	})
	assert.False(t, called)
	assert.Equal(t, "first", r.Cause())

	assert.True(t, Void(Success(1)).IsSuccess())

	half := func(n int) Result[int] {
		if n%2 != 0 {
			return Failure[int](errors.New("odd"))
		}
		return Success(n / 2)
	}
	assert.Equal(t, "success(2)", FlatMap(Success(4), half).String())
	assert.Equal(t, "odd", FlatMap(Success(3), half).Cause())
	assert.Equal(t, "first", FlatMap(Failure[int](errors.New("first")), half).Cause())
}

func TestAwait(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, 1, mustGet(t, Await(ctx, Just(Success(1)))))

	closed := make(chan Result[int])
	close(closed)
	assert.ErrorIs(t, Await(ctx, closed).Err(), sferrors.ErrNoResult)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, Await(cctx, make(chan Result[int])).Err(), context.Canceled)
}

func TestProcessResult(t *testing.T) {
	ctx := context.Background()

	t.Run("identity", func(t *testing.T) {
		r := Await(ctx, ProcessResult(ctx, Success("a"), EqProcessor[string]()))
		assert.Equal(t, "a", mustGet(t, r))
	})

	t.Run("failure short-circuits", func(t *testing.T) {
		called := false
		proc := Processor[int, int](func(context.Context, int) (<-chan Result[int], error) {
			called = true
			return Just(Success(1)), nil
		})
		r := Await(ctx, ProcessResult(ctx, Failure[int](errors.New("upstream")), proc))
		assert.False(t, called)
		assert.Equal(t, "upstream", r.Cause())
		assert.False(t, sferrors.IsProcessor(r.Err()))
	})

	t.Run("synchronous error", func(t *testing.T) {
		proc := Processor[int, int](func(context.Context, int) (<-chan Result[int], error) {
			return nil, errors.New("bad input")
		})
		r := Await(ctx, ProcessResult(ctx, Success(1), proc))
		assert.True(t, sferrors.IsProcessor(r.Err()))
	})

	t.Run("panic", func(t *testing.T) {
		proc := Processor[int, int](func(context.Context, int) (<-chan Result[int], error) {
			panic("boom")
		})
		r := Await(ctx, ProcessResult(ctx, Success(1), proc))
		assert.True(t, sferrors.IsProcessor(r.Err()))
		assert.Contains(t, r.Cause(), "boom")
	})

	t.Run("empty stream", func(t *testing.T) {
		proc := Processor[int, int](func(context.Context, int) (<-chan Result[int], error) {
			ch := make(chan Result[int])
			close(ch)
			return ch, nil
		})
		r := Await(ctx, ProcessResult(ctx, Success(1), proc))
		assert.True(t, sferrors.IsProcessor(r.Err()))
		assert.ErrorIs(t, r.Err(), sferrors.ErrNoResult)
	})

	t.Run("asynchronous failure value", func(t *testing.T) {
		proc := Processor[int, int](func(context.Context, int) (<-chan Result[int], error) {
			ch := make(chan Result[int])
			go func() {
				time.Sleep(5 * time.Millisecond)
				ch <- Failure[int](errors.New("late"))
				ch <- Success(2) // ignored, must not block the producer forever
				close(ch)
			}()
			return ch, nil
		})
		r := Await(ctx, ProcessResult(ctx, Success(1), proc))
		assert.Equal(t, "late", r.Cause())
	})
}

func TestThen(t *testing.T) {
	ctx := context.Background()
	double := Lift(func(_ context.Context, n int) (int, error) { return n * 2, nil })

	out := Then(ctx, Then(ctx, Just(Success(2)), double), double)
	assert.Equal(t, 8, mustGet(t, Await(ctx, out)))

	out = Then(ctx, Fail[int](errors.New("first")), double)
	assert.Equal(t, "first", Await(ctx, out).Cause())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	out = Then(cctx, make(chan Result[int]), double)
	_, open := <-out
	assert.False(t, open, "a cancelled caller gets no value")
}

func mustGet[T any](t *testing.T, r Result[T]) T {
	t.Helper()
	v, err := r.Get()
	require.NoError(t, err)
	return v
}

func TestDrainStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	open := make(chan Result[int], 1)
	open <- Success(1)

	done := make(chan struct{})
	go func() {
		drain(ctx, open)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain kept waiting on a stream that is never closed")
	}
}

func TestProcessResultWithUnclosedStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaky := func(_ context.Context, v int) (<-chan Result[int], error) {
		ch := make(chan Result[int], 1)
		ch <- Success(v * 2)
		return ch, nil
	}
	v, err := Await(ctx, ProcessResult(ctx, Success(21), leaky)).Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
