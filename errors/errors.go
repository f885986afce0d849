/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when registering something twice
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned when store validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoIndexMap is returned when no index map is registered for an entity
	ErrNoIndexMap = errors.New("no index map found for entity")

	// ErrConfiguration is returned when a request lacks a field its operation needs
	ErrConfiguration = errors.New("request misconfigured")

	// ErrUsage is returned when an entry point is called with the wrong kind of request
	ErrUsage = errors.New("invalid usage")

	// ErrStore is returned when the underlying store fails a blocking call
	ErrStore = errors.New("store failure")

	// ErrProcessor is returned when a caller-supplied result processor fails
	ErrProcessor = errors.New("result processor failed")

	// ErrMiddleware is returned when a request middleware fails
	ErrMiddleware = errors.New("middleware failed")

	// ErrNoResult is returned when a stream completes without a value
	ErrNoResult = errors.New("stream completed without a result")
)

// NotFoundError represents an error when a record is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when a name is already taken
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents a store validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConfigurationError reports a request field that is required by the
// declared operation but was never set.
type ConfigurationError struct {
	Operation string
	Field     string
}

func (e *ConfigurationError) Error() string {
	if e.Operation == "" {
		return fmt.Sprintf("request misconfigured: missing %s", e.Field)
	}
	return fmt.Sprintf("request misconfigured: %s requires %s", e.Operation, e.Field)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UsageError reports a request dispatched through the wrong entry point.
type UsageError struct {
	Entry     string
	Operation string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid usage: %s does not accept %s requests", e.Entry, e.Operation)
}

func (e *UsageError) Is(target error) bool {
	return target == ErrUsage
}

// StoreError wraps a failure raised by the store during a blocking call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ProcessorError wraps a failure raised by a result processor.
type ProcessorError struct {
	Err error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("result processor failed: %v", e.Err)
}

func (e *ProcessorError) Is(target error) bool {
	return target == ErrProcessor
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// MiddlewareError wraps a failure raised by a named request middleware.
type MiddlewareError struct {
	Name string
	Err  error
}

func (e *MiddlewareError) Error() string {
	return fmt.Sprintf("middleware %q failed: %v", e.Name, e.Err)
}

func (e *MiddlewareError) Is(target error) bool {
	return target == ErrMiddleware
}

func (e *MiddlewareError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(operation, field string) error {
	return &ConfigurationError{Operation: operation, Field: field}
}

// NewUsageError creates a new UsageError
func NewUsageError(entry, operation string) error {
	return &UsageError{Entry: entry, Operation: operation}
}

// NewStoreError wraps err as a StoreError. A nil err stays nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// NewProcessorError wraps err as a ProcessorError unless it already is one.
func NewProcessorError(err error) error {
	if err == nil || errors.Is(err, ErrProcessor) {
		return err
	}
	return &ProcessorError{Err: err}
}

// NewMiddlewareError creates a new MiddlewareError
func NewMiddlewareError(name string, err error) error {
	return &MiddlewareError{Name: name, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfiguration checks if an error is a request configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsUsage checks if an error is a usage error
func IsUsage(err error) bool {
	return errors.Is(err, ErrUsage)
}

// IsStore checks if an error came from the store
func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}

// IsProcessor checks if an error came from a result processor
func IsProcessor(err error) bool {
	return errors.Is(err, ErrProcessor)
}

// IsPermanent reports whether retrying err can never succeed.
// Configuration and usage errors are decided before the store is touched.
func IsPermanent(err error) bool {
	return IsConfiguration(err) || IsUsage(err)
}
