/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/storagemodels"
)

// recorder is a delegate that logs every callback as a string.
type recorder struct {
	mu     sync.Mutex
	events []string
	// objects seen by will-change, to check the snapshot is still the old one
	willSaw []int
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) WillChangeContent(c datastore.QueryController) {
	r.mu.Lock()
	r.willSaw = append(r.willSaw, len(c.FetchedObjects()))
	r.mu.Unlock()
	r.add("will")
}

func (r *recorder) DidChangeContent(datastore.QueryController) { r.add("did") }

func (r *recorder) DidChangeObject(_ datastore.QueryController, rec *storagemodels.Record, ct storagemodels.ChangeType, _, _ *storagemodels.IndexPath) {
	r.add(fmt.Sprintf("%s:%s", ct, rec.Text("id")))
}

func (r *recorder) DidChangeSection(_ datastore.QueryController, s storagemodels.Section[*storagemodels.Record], _ int, ct storagemodels.ChangeType) {
	r.add(fmt.Sprintf("section-%s:%s", ct, s.Name))
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

func attach(t *testing.T, s *Store, sectionField string) (datastore.QueryController, *recorder) {
	t.Helper()
	ctrl, err := s.AttachQueryController(datastore.QueryDescriptor{
		Entity:    "Dummy",
		Predicate: predicate.MatchAll(),
		Sorts:     []storagemodels.SortDescriptor{storagemodels.Asc("id")},
	}, sectionField)
	require.NoError(t, err)
	rec := &recorder{}
	require.NoError(t, ctrl.SetDelegate(rec))
	return ctrl, rec
}

func TestControllerCycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	ctrl, rec := attach(t, s, "")

	// no callbacks before the initial fetch
	_, err := s.InsertRecords(ctx, s.MainContext(), []storagemodels.PureValue{dummy("b", 1)})
	require.NoError(t, err)
	assert.Empty(t, rec.take())

	require.NoError(t, ctrl.PerformFetch(ctx))
	assert.Len(t, ctrl.FetchedObjects(), 1)
	assert.Empty(t, rec.take(), "the initial fetch is silent")

	oc := s.NewDisposableContext()
	_, err = s.InsertRecords(ctx, oc, []storagemodels.PureValue{dummy("a", 1), dummy("c", 1)})
	require.NoError(t, err)
	assert.Empty(t, rec.take(), "unsaved disposable changes are invisible to main")

	require.NoError(t, s.SaveContext(ctx, oc))
	assert.Equal(t, []string{"will", "insert:a", "insert:c", "did"}, rec.take())
	assert.Equal(t, []int{1}, rec.willSaw, "will-change sees the previous snapshot")
	assert.Len(t, ctrl.FetchedObjects(), 3)

	// persisting does not change what main sees
	require.NoError(t, s.PersistToDisk(ctx))
	assert.Empty(t, rec.take())

	require.NoError(t, s.DeleteRecords(ctx, s.MainContext(), "Dummy", ctrl.FetchedObjects()[:1]))
	assert.Equal(t, []string{"will", "delete:a", "did"}, rec.take())
}

func TestControllerReplacementIsDeleteThenInsert(t *testing.T) {
	ctx := context.Background()
	s := New()
	ctrl, err := s.AttachQueryController(datastore.QueryDescriptor{
		Entity:    "Dummy",
		Predicate: predicate.MatchAll(),
		Sorts:     []storagemodels.SortDescriptor{storagemodels.Asc("int64"), storagemodels.Asc("id")},
	}, "")
	require.NoError(t, err)
	rec := &recorder{}
	require.NoError(t, ctrl.SetDelegate(rec))

	_, err = s.InsertRecords(ctx, s.MainContext(), []storagemodels.PureValue{dummy("a", 1), dummy("b", 2), dummy("c", 3)})
	require.NoError(t, err)
	require.NoError(t, ctrl.PerformFetch(ctx))

	// records are immutable: replacing b is a delete plus an insert, and
	// the survivors keep their relative order
	old := ctrl.FetchedObjects()[1]
	oc := s.MainContext()
	require.NoError(t, s.DeleteRecords(ctx, oc, "Dummy", []*storagemodels.Record{old}))
	assert.Equal(t, []string{"will", "delete:b", "did"}, rec.take())
	_, err = s.InsertRecords(ctx, oc, []storagemodels.PureValue{dummy("b", 0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"will", "insert:b", "did"}, rec.take())
}

func TestControllerSections(t *testing.T) {
	ctx := context.Background()
	s := New()
	ctrl, rec := attach(t, s, "group")
	require.NoError(t, ctrl.PerformFetch(ctx))

	v := func(id, group string) storagemodels.PureValue {
		return storagemodels.NewValue("Dummy", "id", map[string]any{"id": id, "group": group})
	}
	_, err := s.InsertRecords(ctx, s.MainContext(), []storagemodels.PureValue{v("a", "x"), v("b", "y")})
	require.NoError(t, err)
	assert.Equal(t, []string{"will", "section-insert:x", "section-insert:y", "insert:a", "insert:b", "did"}, rec.take())

	sections := ctrl.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, "x", sections[0].Name)
	assert.Equal(t, "x", sections[0].IndexTitle)
	assert.Equal(t, 1, sections[0].NumberOfObjects)

	require.NoError(t, s.DeleteRecords(ctx, s.MainContext(), "Dummy", sections[0].Objects))
	assert.Equal(t, []string{"will", "section-delete:x", "delete:a", "did"}, rec.take())
}

func TestControllerDelegateAndClose(t *testing.T) {
	ctx := context.Background()
	s := New()
	ctrl, rec := attach(t, s, "")
	assert.Error(t, ctrl.SetDelegate(&recorder{}), "only one delegate per controller")

	require.NoError(t, ctrl.PerformFetch(ctx))
	require.NoError(t, ctrl.Close())

	_, err := s.InsertRecords(ctx, s.MainContext(), []storagemodels.PureValue{dummy("a", 1)})
	require.NoError(t, err)
	assert.Empty(t, rec.take())
	assert.Error(t, ctrl.PerformFetch(ctx))
}

func TestControllerCyclesAreOrderedUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := New()
	ctrl, rec := attach(t, s, "")
	require.NoError(t, ctrl.PerformFetch(ctx))

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			oc := s.NewDisposableContext()
			_, _ = s.InsertRecords(ctx, oc, []storagemodels.PureValue{dummy(fmt.Sprintf("d-%02d", i), 0)})
			_ = s.SaveContext(ctx, oc)
		}()
	}
	wg.Wait()

	events := rec.take()
	require.Len(t, events, 20*3)
	for i := 0; i < len(events); i += 3 {
		assert.Equal(t, "will", events[i])
		assert.Contains(t, events[i+1], "insert:")
		assert.Equal(t, "did", events[i+2])
	}
	assert.Len(t, ctrl.FetchedObjects(), 20)
}
