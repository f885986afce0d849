/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import (
	"github.com/google/uuid"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/storagemodels"
)

// objectContext holds the pending changes of one unit of work. Its visible
// record set is its parent's minus deleted plus inserted. The writer context
// has no parent and additionally holds the persisted base set.
type objectContext struct {
	id     string
	name   string
	store  *Store
	parent *objectContext

	base     *recordSet // writer only
	inserted *recordSet
	deleted  *recordSet
}

func newObjectContext(s *Store, name string, parent *objectContext) *objectContext {
	return &objectContext{
		id:       uuid.NewString(),
		name:     name,
		store:    s,
		parent:   parent,
		inserted: newRecordSet(),
		deleted:  newRecordSet(),
	}
}

func (c *objectContext) ID() string   { return c.id }
func (c *objectContext) Name() string { return c.name }

func (c *objectContext) Parent() datastore.Context {
	if c.parent == nil {
		return nil
	}
	return c.parent
}

func (c *objectContext) InsertedRecords() []*storagemodels.Record {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.inserted.list()
}

func (c *objectContext) DeletedRecords() []*storagemodels.Record {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.deleted.list()
}

func (c *objectContext) HasChanges() bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.inserted.len() > 0 || c.deleted.len() > 0
}

// visible returns the records this context can see, parents first.
// Callers hold the store lock.
func (c *objectContext) visible() []*storagemodels.Record {
	var inherited []*storagemodels.Record
	if c.parent != nil {
		inherited = c.parent.visible()
	} else {
		inherited = c.base.list()
	}
	out := make([]*storagemodels.Record, 0, len(inherited)+c.inserted.len())
	for _, r := range inherited {
		if !c.deleted.has(r.ObjectID()) {
			out = append(out, r)
		}
	}
	return append(out, c.inserted.list()...)
}

func (c *objectContext) sees(id string) bool {
	if c.inserted.has(id) {
		return true
	}
	if c.deleted.has(id) {
		return false
	}
	if c.parent != nil {
		return c.parent.sees(id)
	}
	return c.base.has(id)
}

// mergeInto pushes c's pending changes into its parent and clears c.
func (c *objectContext) mergeInto(p *objectContext) {
	for _, r := range c.deleted.list() {
		if !p.inserted.remove(r.ObjectID()) {
			p.deleted.add(r)
		}
	}
	for _, r := range c.inserted.list() {
		p.inserted.add(r)
	}
	c.inserted.clear()
	c.deleted.clear()
}

// commit folds the writer's pending changes into its base set.
func (c *objectContext) commit() {
	for _, r := range c.deleted.list() {
		c.base.remove(r.ObjectID())
	}
	for _, r := range c.inserted.list() {
		c.base.add(r)
	}
	c.inserted.clear()
	c.deleted.clear()
}

func (c *objectContext) changeSet() datastore.ChangeSet {
	return datastore.ChangeSet{
		Inserted: c.inserted.list(),
		Deleted:  c.deleted.list(),
	}
}
