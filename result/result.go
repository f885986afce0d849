/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package result

import (
	"errors"
	"fmt"

	sferrors "github.com/suparena/storeflow/errors"
)

// ErrUnknown is the cause recorded when a failure is built from a nil error.
var ErrUnknown = errors.New("unknown failure")

// Result holds exactly one of a success value or a failure cause. The zero
// Result is a failure carrying errors.ErrNoResult.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Success wraps v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Failure wraps err. A nil err still produces a failure.
func Failure[T any](err error) Result[T] {
	if err == nil {
		err = ErrUnknown
	}
	return Result[T]{err: err}
}

// Of builds a success when err is nil and a failure otherwise.
func Of[T any](v T, err error) Result[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

func (r Result[T]) IsSuccess() bool { return r.ok }
func (r Result[T]) IsFailure() bool { return !r.ok }

// Value returns the success value and whether there was one.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// Err returns the failure cause, or nil for a success.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	if r.err == nil {
		return sferrors.ErrNoResult
	}
	return r.err
}

// Get returns the value or the failure cause. This is where a failure turns
// back into an ordinary Go error.
func (r Result[T]) Get() (T, error) {
	if !r.ok {
		var zero T
		return zero, r.Err()
	}
	return r.value, nil
}

// Cause is the human-readable failure cause, empty for a success.
func (r Result[T]) Cause() string {
	if r.ok {
		return ""
	}
	return r.Err().Error()
}

func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("success(%v)", r.value)
	}
	return fmt.Sprintf("failure(%s)", r.Cause())
}

// Map transforms a success value. Failures pass through untouched.
func Map[T, R any](r Result[T], fn func(T) (R, error)) Result[R] {
	v, err := r.Get()
	if err != nil {
		return Failure[R](err)
	}
	return Of(fn(v))
}

// Void discards the success value.
func Void[T any](r Result[T]) Result[struct{}] {
	return Map(r, func(T) (struct{}, error) { return struct{}{}, nil })
}

// FlatMap chains a step that itself may fail.
func FlatMap[T, R any](r Result[T], fn func(T) Result[R]) Result[R] {
	v, err := r.Get()
	if err != nil {
		return Failure[R](err)
	}
	return fn(v)
}
