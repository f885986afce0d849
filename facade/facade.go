/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package facade

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// DefaultWorkers bounds how many store calls run at once.
const DefaultWorkers = 8

// Facade runs the store's blocking primitives off the caller's goroutine
// and reports each outcome as a one-value stream.
type Facade struct {
	store     datastore.Store
	workers   *semaphore.Weighted
	chunkSize int
	logger    *zap.SugaredLogger
}

// Option configures a Facade.
type Option func(*Facade)

// WithWorkers bounds concurrent store calls to n.
func WithWorkers(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.workers = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithChunkSize sets the widest In clause built for identity predicates.
func WithChunkSize(n int) Option {
	return func(f *Facade) {
		if n > 0 {
			f.chunkSize = n
		}
	}
}

// WithLogger sets the facade logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(f *Facade) {
		if l != nil {
			f.logger = l
		}
	}
}

// New wraps store.
func New(store datastore.Store, opts ...Option) (*Facade, error) {
	if store == nil {
		return nil, fmt.Errorf("facade: nil store")
	}
	f := &Facade{
		store:     store,
		workers:   semaphore.NewWeighted(DefaultWorkers),
		chunkSize: predicate.DefaultChunkSize,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Facade) Store() datastore.Store { return f.store }
func (f *Facade) ChunkSize() int         { return f.chunkSize }

// MainContext returns the store's main context.
func (f *Facade) MainContext() datastore.Context { return f.store.MainContext() }

// NewDisposableContext returns a fresh child of the main context.
func (f *Facade) NewDisposableContext() datastore.Context { return f.store.NewDisposableContext() }

// Run executes call on a worker and delivers its outcome. Once a worker has
// picked the call up it runs to completion even if ctx is cancelled; a
// cancelled caller only loses the notification. Errors are reported as
// store errors tagged with op.
func Run[T any](ctx context.Context, f *Facade, op string, call func(ctx context.Context) (T, error)) <-chan result.Result[T] {
	out := make(chan result.Result[T], 1)
	go func() {
		defer close(out)
		if err := f.workers.Acquire(ctx, 1); err != nil {
			return
		}
		v, err := call(context.WithoutCancel(ctx))
		f.workers.Release(1)

		if err != nil {
			f.logger.Debugw("store call failed", "op", op, "error", err)
			err = errors.NewStoreError(op, err)
		}
		if ctx.Err() != nil {
			return
		}
		out <- result.Of(v, err)
	}()
	return out
}

// Fetch runs q in oc.
func (f *Facade) Fetch(ctx context.Context, oc datastore.Context, q datastore.QueryDescriptor) <-chan result.Result[[]*storagemodels.Record] {
	return Run(ctx, f, "fetch", func(ctx context.Context) ([]*storagemodels.Record, error) {
		return f.store.Fetch(ctx, oc, q)
	})
}

// FetchIdentifiables returns the records of entity in oc whose identity
// matches one of ids. No query is issued for an empty ids slice.
func FetchIdentifiables[I storagemodels.Identifiable](ctx context.Context, f *Facade, oc datastore.Context, entity string, ids []I) <-chan result.Result[[]*storagemodels.Record] {
	if len(ids) == 0 {
		return result.Just(result.Success([]*storagemodels.Record{}))
	}
	return f.Fetch(ctx, oc, datastore.QueryDescriptor{
		Entity:    entity,
		Predicate: predicate.ForIdentifiables(ids, f.chunkSize),
	})
}

// Insert materializes values as records in oc.
func (f *Facade) Insert(ctx context.Context, oc datastore.Context, values []storagemodels.PureValue) <-chan result.Result[[]*storagemodels.Record] {
	return Run(ctx, f, "insert", func(ctx context.Context) ([]*storagemodels.Record, error) {
		return f.store.InsertRecords(ctx, oc, values)
	})
}

// Delete deletes records of entity from oc.
func (f *Facade) Delete(ctx context.Context, oc datastore.Context, entity string, records []*storagemodels.Record) <-chan result.Result[struct{}] {
	return Run(ctx, f, "delete", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.store.DeleteRecords(ctx, oc, entity, records)
	})
}

// DeleteIdentifiables resolves ids against the records of entity visible in
// source and deletes the matches from target. Ids with no match are
// ignored.
func DeleteIdentifiables[I storagemodels.Identifiable](ctx context.Context, f *Facade, source, target datastore.Context, entity string, ids []I) <-chan result.Result[struct{}] {
	if len(ids) == 0 {
		return result.Just(result.Success(struct{}{}))
	}
	p := predicate.ForIdentifiables(ids, f.chunkSize)
	return Run(ctx, f, "delete", func(ctx context.Context) (struct{}, error) {
		matches, err := f.store.Fetch(ctx, source, datastore.QueryDescriptor{Entity: entity, Predicate: p})
		if err != nil {
			return struct{}{}, err
		}
		if len(matches) == 0 {
			return struct{}{}, nil
		}
		return struct{}{}, f.store.DeleteRecords(ctx, target, entity, matches)
	})
}

// Save commits oc into its parent.
func (f *Facade) Save(ctx context.Context, oc datastore.Context) <-chan result.Result[struct{}] {
	return Run(ctx, f, "save", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.store.SaveContext(ctx, oc)
	})
}

// Persist flushes committed changes to disk.
func (f *Facade) Persist(ctx context.Context) <-chan result.Result[struct{}] {
	return Run(ctx, f, "persist", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.store.PersistToDisk(ctx)
	})
}

// Reset drops every record in memory and on disk.
func (f *Facade) Reset(ctx context.Context) <-chan result.Result[struct{}] {
	return Run(ctx, f, "reset", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.store.Reset(ctx)
	})
}
