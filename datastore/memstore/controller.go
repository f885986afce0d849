/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/storagemodels"
)

type sectionList = []storagemodels.Section[*storagemodels.Record]

// controller is a live query over the main context.
type controller struct {
	store        *Store
	query        datastore.QueryDescriptor
	sectionField string

	// guarded by store.mu; what the next refresh diffs against
	tracked         []*storagemodels.Record
	trackedSections sectionList
	active          bool

	mu       sync.RWMutex
	delegate datastore.ControllerDelegate
	closed   bool
	objects  []*storagemodels.Record
	sections sectionList
}

var _ datastore.QueryController = (*controller)(nil)

func (c *controller) Query() datastore.QueryDescriptor { return c.query }

func (c *controller) SetDelegate(d datastore.ControllerDelegate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delegate != nil {
		return fmt.Errorf("query controller for %s already has a delegate", c.query.Entity)
	}
	c.delegate = d
	return nil
}

// PerformFetch runs the initial fetch and starts change tracking. The
// initial fetch itself produces no callbacks.
func (c *controller) PerformFetch(_ context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return fmt.Errorf("query controller for %s is closed", c.query.Entity)
	}
	return c.store.activate(c)
}

func (c *controller) FetchedObjects() []*storagemodels.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*storagemodels.Record(nil), c.objects...)
}

func (c *controller) Sections() []storagemodels.Section[*storagemodels.Record] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(sectionList, len(c.sections))
	copy(out, c.sections)
	return out
}

func (c *controller) Close() error {
	c.store.deactivate(c)
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// load replaces both snapshots. Callers hold the store lock.
func (c *controller) load(visible []*storagemodels.Record) error {
	objects, err := evaluate(visible, c.query)
	if err != nil {
		return err
	}
	sections := groupSections(objects, c.sectionField)
	c.tracked, c.trackedSections = objects, sections
	c.active = true
	c.publish(objects, sections)
	return nil
}

// refresh evaluates the query against visible and returns the change cycle
// to deliver, or nil when nothing changed. Callers hold the store lock.
func (c *controller) refresh(visible []*storagemodels.Record) *cycle {
	if !c.active {
		return nil
	}
	objects, err := evaluate(visible, c.query)
	if err != nil {
		c.store.logger.Warnw("live query evaluation failed", "query", c.query.String(), "error", err)
		return nil
	}
	sections := groupSections(objects, c.sectionField)
	changes := diff(c.tracked, c.trackedSections, objects, sections)
	if changes.empty() {
		return nil
	}
	c.tracked, c.trackedSections = objects, sections
	return &cycle{ctrl: c, objects: objects, sections: sections, changes: changes}
}

func (c *controller) publish(objects []*storagemodels.Record, sections sectionList) {
	c.mu.Lock()
	c.objects, c.sections = objects, sections
	c.mu.Unlock()
}

// cycle is one will-change, deltas, did-change notification.
type cycle struct {
	ctrl     *controller
	objects  []*storagemodels.Record
	sections sectionList
	changes  changes
}

// deliver runs the delegate callbacks. Will-change still sees the previous
// snapshot; the new one is published before the first delta.
func (cy *cycle) deliver() {
	c := cy.ctrl
	c.mu.RLock()
	d, closed := c.delegate, c.closed
	c.mu.RUnlock()

	if d == nil || closed {
		c.publish(cy.objects, cy.sections)
		return
	}

	d.WillChangeContent(c)
	c.publish(cy.objects, cy.sections)
	for _, sc := range cy.changes.sections {
		d.DidChangeSection(c, sc.section, sc.index, sc.change)
	}
	for _, oc := range cy.changes.objects {
		d.DidChangeObject(c, oc.record, oc.change, oc.from, oc.to)
	}
	d.DidChangeContent(c)
}
