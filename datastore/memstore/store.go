/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/registry"
	"github.com/suparena/storeflow/storagemodels"
)

// Store is an in-memory object graph implementing datastore.Store. Contexts
// chain disposable -> main -> writer; the writer holds what has been
// persisted.
type Store struct {
	mu     sync.Mutex
	writer *objectContext
	main   *objectContext

	controllers []*controller

	// notifyMu serializes controller callbacks so that cycles are delivered
	// in the order their mutations happened.
	notifyMu sync.Mutex

	persister datastore.Persister
	registry  *registry.Registry
	maxWidth  int
	logger    *zap.SugaredLogger
}

var _ datastore.Store = (*Store)(nil)

// New creates an empty store. Use Open to load persisted records.
func New(opts ...Option) *Store {
	s := &Store{logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(s)
	}
	s.writer = newObjectContext(s, "writer", nil)
	s.writer.base = newRecordSet()
	s.main = newObjectContext(s, "main", s.writer)
	return s
}

// Open creates a store and loads every record from its persister.
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	s := New(opts...)
	if s.persister == nil {
		return s, nil
	}
	records, err := s.persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted records: %w", err)
	}
	s.mu.Lock()
	for _, r := range records {
		s.writer.base.add(r)
	}
	s.mu.Unlock()
	s.logger.Debugw("store opened", "records", len(records))
	return s, nil
}

func (s *Store) MainContext() datastore.Context { return s.main }

func (s *Store) NewDisposableContext() datastore.Context {
	return newObjectContext(s, "disposable", s.main)
}

func (s *Store) own(oc datastore.Context) (*objectContext, error) {
	c, ok := oc.(*objectContext)
	if !ok || c == nil || c.store != s {
		return nil, fmt.Errorf("context %v does not belong to this store", oc)
	}
	return c, nil
}

// Fetch returns the records of q.Entity visible in oc that match q.
func (s *Store) Fetch(_ context.Context, oc datastore.Context, q datastore.QueryDescriptor) ([]*storagemodels.Record, error) {
	c, err := s.own(oc)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuery(q); err != nil {
		return nil, err
	}

	s.mu.Lock()
	visible := c.visible()
	s.mu.Unlock()

	return evaluate(visible, q)
}

func (s *Store) checkQuery(q datastore.QueryDescriptor) error {
	if q.Entity == "" {
		return errors.NewValidationError("entity", "query has no entity")
	}
	if q.Predicate == nil {
		return errors.NewValidationError("predicate", fmt.Sprintf("query for %s has no predicate", q.Entity))
	}
	if w := predicate.Width(q.Predicate); s.maxWidth > 0 && w > s.maxWidth {
		return errors.NewValidationError("predicate",
			fmt.Sprintf("expression width %d exceeds limit %d", w, s.maxWidth))
	}
	return nil
}

// evaluate filters, sorts and limits records against q.
func evaluate(records []*storagemodels.Record, q datastore.QueryDescriptor) ([]*storagemodels.Record, error) {
	out := make([]*storagemodels.Record, 0)
	for _, r := range records {
		if r.EntityName() != q.Entity {
			continue
		}
		ok, err := predicate.Match(q.Predicate, r)
		if err != nil {
			return nil, fmt.Errorf("query for %s: %w", q.Entity, err)
		}
		if ok {
			out = append(out, r)
		}
	}
	sortRecords(out, q.Sorts)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) InsertRecords(_ context.Context, oc datastore.Context, values []storagemodels.PureValue) ([]*storagemodels.Record, error) {
	c, err := s.own(oc)
	if err != nil {
		return nil, err
	}
	records := make([]*storagemodels.Record, 0, len(values))
	for _, v := range values {
		if v == nil {
			return nil, fmt.Errorf("insert: nil value")
		}
		records = append(records, storagemodels.FromPureValue(v))
	}

	s.mutate(func() {
		for _, r := range records {
			c.inserted.add(r)
		}
	})
	return records, nil
}

func (s *Store) DeleteRecords(_ context.Context, oc datastore.Context, entity string, records []*storagemodels.Record) error {
	c, err := s.own(oc)
	if err != nil {
		return err
	}
	s.mutate(func() {
		for _, r := range records {
			if r == nil || r.EntityName() != entity || !c.sees(r.ObjectID()) {
				continue
			}
			if !c.inserted.remove(r.ObjectID()) {
				c.deleted.add(r)
			}
		}
	})
	return nil
}

// SaveContext validates oc's pending inserts and merges its changes into
// its parent. Saving the writer context is the same as PersistToDisk.
func (s *Store) SaveContext(ctx context.Context, oc datastore.Context) error {
	c, err := s.own(oc)
	if err != nil {
		return err
	}
	if c.parent == nil {
		return s.PersistToDisk(ctx)
	}

	var saveErr error
	s.mutate(func() {
		if saveErr = s.validate(c); saveErr != nil {
			return
		}
		c.mergeInto(c.parent)
	})
	return saveErr
}

func (s *Store) validate(c *objectContext) error {
	if s.registry == nil {
		return nil
	}
	for _, r := range c.inserted.list() {
		if err := s.registry.Validate(r); err != nil {
			return err
		}
	}
	return nil
}

// PersistToDisk saves the main context into the writer, flushes the writer's
// pending changes to the persister and only then folds them into the
// persisted set. A failed flush leaves the changes pending in the writer.
func (s *Store) PersistToDisk(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(s.main); err != nil {
		return err
	}
	s.main.mergeInto(s.writer)

	cs := s.writer.changeSet()
	if cs.Empty() {
		return nil
	}
	if s.persister != nil {
		if err := s.persister.Flush(ctx, cs); err != nil {
			return fmt.Errorf("flush: %w", err)
		}
	}
	s.writer.commit()
	s.logger.Debugw("persisted", "inserted", len(cs.Inserted), "deleted", len(cs.Deleted))
	return nil
}

// Reset clears the persister and drops every record from the writer and
// main contexts. Disposable contexts keep their own pending changes.
func (s *Store) Reset(ctx context.Context) error {
	if s.persister != nil {
		if err := s.persister.Clear(ctx); err != nil {
			return fmt.Errorf("clear persister: %w", err)
		}
	}
	s.mutate(func() {
		s.writer.base.clear()
		s.writer.inserted.clear()
		s.writer.deleted.clear()
		s.main.inserted.clear()
		s.main.deleted.clear()
	})
	s.logger.Debug("store reset")
	return nil
}

// Count returns how many records of entity the main context sees.
func (s *Store) Count(entity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.main.visible() {
		if r.EntityName() == entity {
			n++
		}
	}
	return n
}

// mutate applies fn under the store lock, then delivers the resulting
// controller change cycles in order.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	cycles := s.refreshControllers()
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, cy := range cycles {
		cy.deliver()
	}
}

// refreshControllers recomputes every active controller's results against
// the main context. Callers hold the store lock.
func (s *Store) refreshControllers() []*cycle {
	if len(s.controllers) == 0 {
		return nil
	}
	visible := s.main.visible()
	var cycles []*cycle
	for _, ctrl := range s.controllers {
		if cy := ctrl.refresh(visible); cy != nil {
			cycles = append(cycles, cy)
		}
	}
	return cycles
}

func (s *Store) AttachQueryController(q datastore.QueryDescriptor, sectionField string) (datastore.QueryController, error) {
	if err := s.checkQuery(q); err != nil {
		return nil, err
	}
	q.Sorts = slices.Clone(q.Sorts)
	return &controller{store: s, query: q, sectionField: sectionField}, nil
}

func (s *Store) activate(c *controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := c.load(s.main.visible()); err != nil {
		return err
	}
	if !slices.Contains(s.controllers, c) {
		s.controllers = append(s.controllers, c)
	}
	return nil
}

func (s *Store) deactivate(c *controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.active = false
	s.controllers = slices.DeleteFunc(s.controllers, func(x *controller) bool { return x == c })
}
