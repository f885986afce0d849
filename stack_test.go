/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storeflow

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/suparena/storeflow/bridge"
	"github.com/suparena/storeflow/config"
	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/datastore/mock"
	"github.com/suparena/storeflow/datastore/testmodels"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// recordingPersister keeps flushed records in memory.
type recordingPersister struct {
	mu      sync.Mutex
	records map[string]*storagemodels.Record
	flushes int
	closed  bool
}

func newRecordingPersister() *recordingPersister {
	return &recordingPersister{records: map[string]*storagemodels.Record{}}
}

func (p *recordingPersister) Load(context.Context) ([]*storagemodels.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*storagemodels.Record, 0, len(p.records))
	for _, r := range p.records {
		out = append(out, r)
	}
	return out, nil
}

func (p *recordingPersister) Flush(_ context.Context, cs datastore.ChangeSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	for _, r := range cs.Deleted {
		delete(p.records, r.ObjectID())
	}
	for _, r := range cs.Inserted {
		p.records[r.ObjectID()] = r
	}
	return nil
}

func (p *recordingPersister) Clear(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = map[string]*storagemodels.Record{}
	return nil
}

func (p *recordingPersister) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("MemoryDefaults", func(t *testing.T) {
		s, err := Open(ctx, config.Default(), WithLogger(zaptest.NewLogger(t)))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()
		if s.Processor() == nil || s.Facade() == nil || s.Store() == nil || s.Metrics() == nil {
			t.Fatal("Expected a fully wired stack")
		}
		if got := s.Facade().ChunkSize(); got != 500 {
			t.Fatalf("Expected chunk size 500, got %d", got)
		}
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Backend = "postgres"
		if _, err := Open(ctx, cfg); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		p := newRecordingPersister()
		s, err := Open(ctx, config.Default(), WithPersister(p))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Second close failed: %v", err)
		}
		if !p.closed {
			t.Fatal("Expected the persister to be closed")
		}
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("CustomPersister", func(t *testing.T) {
		p := newRecordingPersister()
		s, err := Open(ctx, config.Default(), WithPersister(p))
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()
		if err := RegisterType[rs](s, nil); err != nil {
			t.Fatalf("RegisterType failed: %v", err)
		}
		if err := result.Await(ctx, Upsert(ctx, s, testmodels.Generate(3))).Err(); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if len(p.records) != 3 || p.flushes != 1 {
			t.Fatalf("Expected 3 records in one flush, got %d in %d", len(p.records), p.flushes)
		}

		reset := request.NewBuilder().WithOperation(request.OpResetStack).Build()
		if err := result.Await(ctx, s.Processor().Execute(ctx, reset)).Err(); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
		if len(p.records) != 0 || s.Count(testmodels.Entity) != 0 {
			t.Fatal("Expected reset to clear memory and disk")
		}
	})

	t.Run("SQLiteSurvivesReopen", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Backend = config.BackendSQLite
		cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "stack.db")

		s, err := Open(ctx, cfg)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if err := RegisterType[rs](s, nil); err != nil {
			t.Fatalf("RegisterType failed: %v", err)
		}
		if err := result.Await(ctx, Upsert(ctx, s, testmodels.Generate(4))).Err(); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		reopened, err := Open(ctx, cfg)
		if err != nil {
			t.Fatalf("Reopen failed: %v", err)
		}
		defer reopened.Close()
		if err := RegisterType[rs](reopened, nil); err != nil {
			t.Fatalf("RegisterType failed: %v", err)
		}
		all, err := result.Await(ctx, FetchAll[rs](ctx, reopened)).Get()
		if err != nil {
			t.Fatalf("FetchAll failed: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("Expected 4 persisted values, got %d", len(all))
		}
	})
}

func TestStrictEntities(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.Default(), WithStrictEntities())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	values := []storagemodels.Value{storagemodels.NewValue("Note", "id", map[string]any{"id": "n1"})}
	err = result.Await(ctx, Upsert(ctx, s, values)).Err()
	if !errors.IsValidationError(err) {
		t.Fatalf("Expected validation error for an unregistered entity, got %v", err)
	}

	if err := RegisterType[rs](s, nil); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}
	if err := result.Await(ctx, Upsert(ctx, s, testmodels.Generate(1))).Err(); err != nil {
		t.Fatalf("Upsert of a registered entity failed: %v", err)
	}
}

func TestExpressionWidth(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store.MaxExpressionWidth = 100

	if _, err := Open(ctx, cfg); !errors.IsValidationError(err) {
		t.Fatalf("Expected validation error for a chunk size above the width, got %v", err)
	}

	cfg.Processor.PredicateChunkSize = 100
	s, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	if err := RegisterType[rs](s, nil); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}
	values := testmodels.Generate(101)
	for i := 0; i < 2; i++ {
		if err := result.Await(ctx, Upsert(ctx, s, values)).Err(); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
	}
	if n := s.Count(testmodels.Entity); n != 101 {
		t.Fatalf("Expected 101 records, got %d", n)
	}
}

func TestConfiguredRetries(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Processor.DefaultRetries = 3

	var m *mock.Store
	s, err := Open(ctx, cfg, WithStoreWrapper(func(inner datastore.Store) datastore.Store {
		m = mock.New(inner)
		return m
	}))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	m.FailNext(mock.OpPersist, 2, stderrors.New("disk busy"))
	persist := request.NewBuilder().WithOperation(request.OpPersistToDisk).Build()
	if err := result.Await(ctx, s.Processor().Execute(ctx, persist)).Err(); err != nil {
		t.Fatalf("Expected the third attempt to succeed, got %v", err)
	}
	if got := m.Calls(mock.OpPersist); got != 3 {
		t.Fatalf("Expected 3 attempts, got %d", got)
	}
}

func TestBridgeRegistry(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.Default())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	reg := s.Bridges()

	watch := func(name string) *bridge.Bridge {
		t.Helper()
		b, err := s.Watch(ctx, name, testmodels.Entity, "")
		if err != nil {
			t.Fatalf("Watch %s failed: %v", name, err)
		}
		return b
	}

	t.Run("BasicOperations", func(t *testing.T) {
		b := watch("b")
		watch("a")

		got, err := reg.Get("b")
		if err != nil || got != b {
			t.Fatalf("Expected the registered bridge, got %v, %v", got, err)
		}
		if names := reg.List(); !equalStrings(names, []string{"a", "b"}) {
			t.Fatalf("Expected [a b], got %v", names)
		}
		if b.State() != bridge.StateActive {
			t.Fatalf("Expected an active bridge, got %s", b.State())
		}

		if err := reg.Remove("b"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if b.State() != bridge.StateClosed {
			t.Fatalf("Expected a closed bridge, got %s", b.State())
		}
		if err := reg.Remove("b"); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got %v", err)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		if err := reg.Register("", nil); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if _, err := reg.Get("missing"); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got %v", err)
		}
	})

	t.Run("CloseAll", func(t *testing.T) {
		c := watch("c")
		if err := reg.CloseAll(); err != nil {
			t.Fatalf("CloseAll failed: %v", err)
		}
		if len(reg.List()) != 0 || c.State() != bridge.StateClosed {
			t.Fatal("Expected every bridge closed and forgotten")
		}
	})
}
