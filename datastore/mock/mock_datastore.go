/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides a datastore.Store wrapper that injects failures for testing
package mock

import (
	"context"
	"sync"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/storagemodels"
)

// Op names a Store method
type Op string

const (
	OpFetch   Op = "fetch"
	OpInsert  Op = "insert"
	OpDelete  Op = "delete"
	OpSave    Op = "save"
	OpPersist Op = "persist"
	OpReset   Op = "reset"
	OpAttach  Op = "attach"
)

// Store wraps a real store. Each call is counted, and queued failures are
// returned instead of calling the wrapped store until they run out.
type Store struct {
	inner datastore.Store

	mu        sync.Mutex
	failures  map[Op][]error
	calls     map[Op]int
	fetchFunc func(ctx context.Context, oc datastore.Context, q datastore.QueryDescriptor) ([]*storagemodels.Record, error)
}

var _ datastore.Store = (*Store)(nil)

// New wraps inner
func New(inner datastore.Store) *Store {
	return &Store{
		inner:    inner,
		failures: make(map[Op][]error),
		calls:    make(map[Op]int),
	}
}

// WithFailures makes the next n calls of op return err
func (m *Store) WithFailures(op Op, n int, err error) *Store {
	m.FailNext(op, n, err)
	return m
}

// WithFetchFunc replaces Fetch once no failure is queued
func (m *Store) WithFetchFunc(f func(ctx context.Context, oc datastore.Context, q datastore.QueryDescriptor) ([]*storagemodels.Record, error)) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchFunc = f
	return m
}

// FailNext queues n failures for op
func (m *Store) FailNext(op Op, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.failures[op] = append(m.failures[op], err)
	}
}

// Calls returns how many times op was called, failed calls included
func (m *Store) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// ResetCalls clears the call counters and any queued failures
func (m *Store) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[Op]int)
	m.failures = make(map[Op][]error)
}

// Inner returns the wrapped store
func (m *Store) Inner() datastore.Store { return m.inner }

func (m *Store) enter(op Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	queued := m.failures[op]
	if len(queued) == 0 {
		return nil
	}
	m.failures[op] = queued[1:]
	return queued[0]
}

func (m *Store) MainContext() datastore.Context { return m.inner.MainContext() }

func (m *Store) NewDisposableContext() datastore.Context { return m.inner.NewDisposableContext() }

func (m *Store) Fetch(ctx context.Context, oc datastore.Context, q datastore.QueryDescriptor) ([]*storagemodels.Record, error) {
	if err := m.enter(OpFetch); err != nil {
		return nil, err
	}
	m.mu.Lock()
	f := m.fetchFunc
	m.mu.Unlock()
	if f != nil {
		return f(ctx, oc, q)
	}
	return m.inner.Fetch(ctx, oc, q)
}

func (m *Store) InsertRecords(ctx context.Context, oc datastore.Context, values []storagemodels.PureValue) ([]*storagemodels.Record, error) {
	if err := m.enter(OpInsert); err != nil {
		return nil, err
	}
	return m.inner.InsertRecords(ctx, oc, values)
}

func (m *Store) DeleteRecords(ctx context.Context, oc datastore.Context, entity string, records []*storagemodels.Record) error {
	if err := m.enter(OpDelete); err != nil {
		return err
	}
	return m.inner.DeleteRecords(ctx, oc, entity, records)
}

func (m *Store) SaveContext(ctx context.Context, oc datastore.Context) error {
	if err := m.enter(OpSave); err != nil {
		return err
	}
	return m.inner.SaveContext(ctx, oc)
}

func (m *Store) PersistToDisk(ctx context.Context) error {
	if err := m.enter(OpPersist); err != nil {
		return err
	}
	return m.inner.PersistToDisk(ctx)
}

func (m *Store) Reset(ctx context.Context) error {
	if err := m.enter(OpReset); err != nil {
		return err
	}
	return m.inner.Reset(ctx)
}

func (m *Store) AttachQueryController(q datastore.QueryDescriptor, sectionField string) (datastore.QueryController, error) {
	if err := m.enter(OpAttach); err != nil {
		return nil, err
	}
	return m.inner.AttachQueryController(q, sectionField)
}
