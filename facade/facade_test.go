/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package facade

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/datastore/memstore"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

func dummy(id string) storagemodels.Value {
	return storagemodels.NewValue("Dummy", "id", map[string]any{"id": id})
}

// gatedStore blocks saves until release is closed.
type gatedStore struct {
	*memstore.Store
	release chan struct{}
	started chan struct{}
	saves   atomic.Int32
}

func (g *gatedStore) SaveContext(ctx context.Context, oc datastore.Context) error {
	close(g.started)
	<-g.release
	g.saves.Add(1)
	return g.Store.SaveContext(ctx, oc)
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestFacadeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	f, err := New(s, WithWorkers(2), WithChunkSize(2))
	require.NoError(t, err)
	assert.Equal(t, 2, f.ChunkSize())

	oc := f.NewDisposableContext()
	inserted, err := result.Await(ctx, f.Insert(ctx, oc, []storagemodels.PureValue{dummy("a"), dummy("b"), dummy("c")})).Get()
	require.NoError(t, err)
	assert.Len(t, inserted, 3)

	_, err = result.Await(ctx, f.Save(ctx, oc)).Get()
	require.NoError(t, err)

	all, err := result.Await(ctx, f.Fetch(ctx, f.MainContext(), datastore.QueryDescriptor{
		Entity:    "Dummy",
		Predicate: predicate.MatchAll(),
	})).Get()
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := result.Await(ctx, FetchIdentifiables(ctx, f, f.MainContext(), "Dummy",
		[]storagemodels.Value{dummy("a"), dummy("c"), dummy("zzz")})).Get()
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = result.Await(ctx, DeleteIdentifiables(ctx, f, f.MainContext(), f.MainContext(), "Dummy",
		[]storagemodels.Value{dummy("a"), dummy("nope")})).Get()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count("Dummy"))

	_, err = result.Await(ctx, f.Persist(ctx)).Get()
	require.NoError(t, err)
	_, err = result.Await(ctx, f.Reset(ctx)).Get()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count("Dummy"))
}

func TestFetchIdentifiablesEmptyIssuesNoQuery(t *testing.T) {
	ctx := context.Background()
	f, err := New(memstore.New())
	require.NoError(t, err)

	// a foreign context would fail if a query were issued
	foreign := memstore.New().MainContext()
	got, err := result.Await(ctx, FetchIdentifiables(ctx, f, foreign, "Dummy", []storagemodels.Value{})).Get()
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	f, err := New(memstore.New())
	require.NoError(t, err)

	r := result.Await(ctx, f.Fetch(ctx, memstore.New().MainContext(), datastore.QueryDescriptor{
		Entity:    "Dummy",
		Predicate: predicate.MatchAll(),
	}))
	assert.True(t, errors.IsStore(r.Err()))
	assert.Contains(t, r.Cause(), "fetch")
}

func TestCancelledCallerLosesOnlyTheNotification(t *testing.T) {
	g := &gatedStore{Store: memstore.New(), release: make(chan struct{}), started: make(chan struct{})}
	f, err := New(g)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	oc := f.NewDisposableContext()
	_, err = g.InsertRecords(ctx, oc, []storagemodels.PureValue{dummy("a")})
	require.NoError(t, err)

	out := f.Save(ctx, oc)
	<-g.started
	cancel()
	close(g.release)

	select {
	case _, ok := <-out:
		assert.False(t, ok, "no value is delivered to a cancelled caller")
	case <-time.After(time.Second):
		t.Fatal("stream was never closed")
	}
	assert.Equal(t, int32(1), g.saves.Load())
	assert.Equal(t, 1, g.Count("Dummy"), "the dispatched save ran to completion")
}

func TestWorkerBudget(t *testing.T) {
	ctx := context.Background()
	f, err := New(memstore.New(), WithWorkers(1))
	require.NoError(t, err)

	var running, peak atomic.Int32
	streams := make([]<-chan result.Result[int], 0, 5)
	for range 5 {
		streams = append(streams, Run(ctx, f, "probe", func(context.Context) (int, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return int(n), nil
		}))
	}
	for _, s := range streams {
		require.True(t, result.Await(ctx, s).IsSuccess())
	}
	assert.Equal(t, int32(1), peak.Load())
}
