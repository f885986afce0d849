/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"fmt"

	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/storagemodels"
)

// QueryDescriptor is the entity, predicate and sort order of one fetch.
type QueryDescriptor struct {
	Entity    string
	Predicate predicate.Predicate
	Sorts     []storagemodels.SortDescriptor
	// Limit caps the number of records returned; 0 means no limit.
	Limit int
}

func (q QueryDescriptor) String() string {
	p := "<nil>"
	if q.Predicate != nil {
		p = q.Predicate.String()
	}
	return fmt.Sprintf("%s where %s", q.Entity, p)
}

// Context is a unit-of-work handle scoping pending, uncommitted mutations.
// Contexts form a chain: saving a context pushes its changes into its
// parent. A context must not be written from two goroutines at once.
type Context interface {
	ID() string
	Name() string
	Parent() Context
	// InsertedRecords returns the records inserted in this context and not
	// yet saved, in insertion order.
	InsertedRecords() []*storagemodels.Record
	// DeletedRecords returns the records deleted in this context and not
	// yet saved.
	DeletedRecords() []*storagemodels.Record
	HasChanges() bool
}

// Store is the embedded object-graph store this module orchestrates. All
// methods block.
type Store interface {
	// MainContext returns the long-lived context reads and identity
	// resolution run against.
	MainContext() Context
	// NewDisposableContext returns a fresh child of the main context.
	NewDisposableContext() Context

	Fetch(ctx context.Context, oc Context, q QueryDescriptor) ([]*storagemodels.Record, error)
	InsertRecords(ctx context.Context, oc Context, values []storagemodels.PureValue) ([]*storagemodels.Record, error)
	// DeleteRecords deletes records of entity from oc. Records that are not
	// visible in oc are ignored.
	DeleteRecords(ctx context.Context, oc Context, entity string, records []*storagemodels.Record) error
	// SaveContext commits oc into its parent, propagating validation errors.
	SaveContext(ctx context.Context, oc Context) error
	// PersistToDisk flushes every change committed to the main context.
	PersistToDisk(ctx context.Context) error
	// Reset drops every record, in memory and on disk.
	Reset(ctx context.Context) error

	// AttachQueryController creates a live query over the main context.
	// sectionField groups results into sections; empty means one section.
	AttachQueryController(q QueryDescriptor, sectionField string) (QueryController, error)
}

// QueryController is a live query. It reports changes to its delegate after
// PerformFetch has run, once per write cycle, in the order will-change,
// section deltas, object deltas, did-change.
type QueryController interface {
	Query() QueryDescriptor
	// SetDelegate installs d as the sole callback target. A controller
	// accepts exactly one delegate.
	SetDelegate(d ControllerDelegate) error
	PerformFetch(ctx context.Context) error
	FetchedObjects() []*storagemodels.Record
	Sections() []storagemodels.Section[*storagemodels.Record]
	Close() error
}

// ControllerDelegate receives query controller callbacks. Callbacks for one
// controller are never delivered concurrently.
type ControllerDelegate interface {
	WillChangeContent(c QueryController)
	DidChangeContent(c QueryController)
	DidChangeObject(c QueryController, rec *storagemodels.Record, change storagemodels.ChangeType, from, to *storagemodels.IndexPath)
	DidChangeSection(c QueryController, section storagemodels.Section[*storagemodels.Record], index int, change storagemodels.ChangeType)
}

// ChangeSet is what one persist cycle writes to disk.
type ChangeSet struct {
	Inserted []*storagemodels.Record
	Deleted  []*storagemodels.Record
}

func (c ChangeSet) Empty() bool { return len(c.Inserted) == 0 && len(c.Deleted) == 0 }

// Persister is the on-disk side of a store.
type Persister interface {
	// Load returns every persisted record.
	Load(ctx context.Context) ([]*storagemodels.Record, error)
	// Flush applies cs atomically where the backend allows it.
	Flush(ctx context.Context, cs ChangeSet) error
	// Clear removes every persisted record.
	Clear(ctx context.Context) error
	Close() error
}
