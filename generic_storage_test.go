/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storeflow

import (
	"context"
	"testing"
	"time"

	"github.com/suparena/storeflow/config"
	"github.com/suparena/storeflow/datastore/testmodels"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

type rs = testmodels.RatingSystem

// unbound is decodable but never registered.
type unbound struct{}

func (*unbound) FromRecord(*storagemodels.Record) error { return nil }

func openTypedStack(t *testing.T) *Stack {
	t.Helper()
	s, err := Open(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("Failed to open stack: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := RegisterType[rs](s, testmodels.IndexMap); err != nil {
		t.Fatalf("Failed to register type: %v", err)
	}
	return s
}

func ids(values []rs) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = testmodels.ID(v)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTypeBindings(t *testing.T) {
	s := openTypedStack(t)

	t.Run("EntityOf", func(t *testing.T) {
		entity, err := EntityOf[rs](s)
		if err != nil {
			t.Fatalf("EntityOf failed: %v", err)
		}
		if entity != testmodels.Entity {
			t.Fatalf("Expected %s, got %s", testmodels.Entity, entity)
		}
		if _, ok := s.Registry().Lookup(testmodels.Entity); !ok {
			t.Fatal("Expected the entity to be registered")
		}
	})

	t.Run("DuplicateRegistration", func(t *testing.T) {
		err := RegisterType[rs](s, nil)
		if !errors.IsAlreadyExists(err) {
			t.Fatalf("Expected already exists error, got %v", err)
		}
	})

	t.Run("UnboundType", func(t *testing.T) {
		_, err := EntityOf[unbound](s)
		if !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got %v", err)
		}
		err = result.Await(context.Background(), FetchAll[unbound](context.Background(), s)).Err()
		if !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error from FetchAll, got %v", err)
		}
	})
}

func TestTypedOperations(t *testing.T) {
	ctx := context.Background()
	s := openTypedStack(t)

	if err := result.Await(ctx, Upsert(ctx, s, testmodels.Generate(5))).Err(); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	t.Run("Fetch", func(t *testing.T) {
		top, err := result.Await(ctx, Fetch[rs](ctx, s,
			predicate.Cmp("Score", predicate.OpGe, 3),
			storagemodels.Desc("Score"),
		)).Get()
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if got := ids(top); !equalStrings(got, []string{"rs-4", "rs-3"}) {
			t.Fatalf("Expected [rs-4 rs-3], got %v", got)
		}
	})

	t.Run("Get", func(t *testing.T) {
		keys := []storagemodels.Key{{Field: "Id", Value: "rs-1"}, {Field: "Id", Value: "rs-9"}}
		got, err := result.Await(ctx, Get[rs](ctx, s, keys)).Get()
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got) != 1 || testmodels.ID(got[0]) != "rs-1" {
			t.Fatalf("Expected only rs-1, got %v", ids(got))
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		changed := testmodels.New("rs-2", "renamed", 200)
		if err := result.Await(ctx, Upsert(ctx, s, []rs{changed})).Err(); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if n := s.Count(testmodels.Entity); n != 5 {
			t.Fatalf("Expected 5 records, got %d", n)
		}
		all, err := result.Await(ctx, FetchAll[rs](ctx, s, request.WithDescriptionTransform("all"))).Get()
		if err != nil {
			t.Fatalf("FetchAll failed: %v", err)
		}
		for _, v := range all {
			if testmodels.ID(v) == "rs-2" && (v.Score != 200 || *v.Name != "renamed") {
				t.Fatalf("Expected rs-2 to be replaced, got %+v", v)
			}
		}
	})

	t.Run("Delete", func(t *testing.T) {
		keys := []storagemodels.Key{{Field: "Id", Value: "rs-0"}, {Field: "Id", Value: "absent"}}
		if err := result.Await(ctx, Delete[rs](ctx, s, keys)).Err(); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if n := s.Count(testmodels.Entity); n != 4 {
			t.Fatalf("Expected 4 records, got %d", n)
		}
	})
}

func TestTypedWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s := openTypedStack(t)

	events, err := Watch[rs](ctx, s, "systems")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	next := func() storagemodels.ChangeEvent[rs] {
		t.Helper()
		select {
		case r, ok := <-events:
			if !ok {
				t.Fatal("Stream closed early")
			}
			e, err := r.Get()
			if err != nil {
				t.Fatalf("Event failed: %v", err)
			}
			return e
		case <-ctx.Done():
			t.Fatal("Timed out waiting for an event")
		}
		return storagemodels.ChangeEvent[rs]{}
	}

	if e := next(); e.Kind != storagemodels.EventInitial {
		t.Fatalf("Expected initial event, got %s", e.Kind)
	}

	if err := result.Await(ctx, Upsert(ctx, s, testmodels.Generate(2))).Err(); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	for {
		if e := next(); e.Kind == storagemodels.EventDidChange {
			if len(e.Objects) != 2 {
				t.Fatalf("Expected 2 objects after the change, got %d", len(e.Objects))
			}
			break
		}
	}

	current, err := Current[rs](s, "systems")
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(current) != 2 {
		t.Fatalf("Expected 2 current objects, got %d", len(current))
	}

	if _, err := Watch[rs](ctx, s, "systems"); !errors.IsAlreadyExists(err) {
		t.Fatalf("Expected already exists error, got %v", err)
	}

	if err := s.Bridges().Remove("systems"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	for range events {
	}
	if _, err := Current[rs](s, "systems"); !errors.IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
}
