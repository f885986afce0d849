/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package request

import (
	"fmt"
	"slices"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/storagemodels"
)

// Request describes one store operation. It is immutable once built; use
// ToBuilder to derive a modified copy.
type Request struct {
	operation        Operation
	entity           string
	predicate        predicate.Predicate
	sorts            []storagemodels.SortDescriptor
	limit            int
	retries          int
	retriesSet       bool
	filters          []MiddlewareFilter
	applyMiddlewares bool
	saveContext      datastore.Context
	dataToDelete     []storagemodels.Identifiable
	description      string
}

// Operation returns the requested operation or a configuration error when
// none was set.
func (r Request) Operation() (Operation, error) {
	if r.operation == OpUnset {
		return OpUnset, errors.NewConfigurationError("", "operation")
	}
	return r.operation, nil
}

// EntityName returns the target entity.
func (r Request) EntityName() (string, error) {
	if r.entity == "" {
		return "", errors.NewConfigurationError(r.operation.String(), "entity name")
	}
	return r.entity, nil
}

// Predicate returns the query predicate. MatchAll is a valid predicate;
// a missing one is an error.
func (r Request) Predicate() (predicate.Predicate, error) {
	if r.predicate == nil {
		return nil, errors.NewConfigurationError(r.operation.String(), "predicate")
	}
	return r.predicate, nil
}

// SortDescriptors returns a copy of the sort order.
func (r Request) SortDescriptors() []storagemodels.SortDescriptor {
	return slices.Clone(r.sorts)
}

// FetchLimit caps fetched records; 0 means no limit.
func (r Request) FetchLimit() int { return r.limit }

// Retries is the number of attempts, never less than one.
func (r Request) Retries() int { return max(r.retries, 1) }

// HasRetries reports whether WithRetries was called, with any count.
func (r Request) HasRetries() bool { return r.retriesSet }

// MiddlewareFilters returns a copy of the middleware filters.
func (r Request) MiddlewareFilters() []MiddlewareFilter {
	return slices.Clone(r.filters)
}

// ApplyMiddlewares reports whether middlewares may transform this request.
func (r Request) ApplyMiddlewares() bool { return r.applyMiddlewares }

// SaveContext returns the context a save or upsert request operates on.
func (r Request) SaveContext() (datastore.Context, error) {
	if r.saveContext == nil {
		return nil, errors.NewConfigurationError(r.operation.String(), "context")
	}
	return r.saveContext, nil
}

// DataToDelete returns the identities a delete request targets.
func (r Request) DataToDelete() ([]storagemodels.Identifiable, error) {
	if r.dataToDelete == nil {
		return nil, errors.NewConfigurationError(r.operation.String(), "data to delete")
	}
	return slices.Clone(r.dataToDelete), nil
}

// Description is a free-form label for logs.
func (r Request) Description() string { return r.description }

// QueryDescriptor assembles the fetch descriptor of this request.
func (r Request) QueryDescriptor() (datastore.QueryDescriptor, error) {
	entity, err := r.EntityName()
	if err != nil {
		return datastore.QueryDescriptor{}, err
	}
	p, err := r.Predicate()
	if err != nil {
		return datastore.QueryDescriptor{}, err
	}
	return datastore.QueryDescriptor{
		Entity:    entity,
		Predicate: p,
		Sorts:     r.SortDescriptors(),
		Limit:     r.limit,
	}, nil
}

func (r Request) String() string {
	if r.description != "" {
		return fmt.Sprintf("%s %s (%s)", r.operation, r.entity, r.description)
	}
	return fmt.Sprintf("%s %s", r.operation, r.entity)
}

// ToBuilder returns a builder seeded with a copy of r.
func (r Request) ToBuilder() *Builder {
	return &Builder{req: r.clone()}
}

func (r Request) clone() Request {
	r.sorts = slices.Clone(r.sorts)
	r.filters = slices.Clone(r.filters)
	r.dataToDelete = slices.Clone(r.dataToDelete)
	return r
}

// Builder accumulates request fields. It is not safe for concurrent use.
type Builder struct {
	req Request
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) WithOperation(op Operation) *Builder {
	b.req.operation = op
	return b
}

func (b *Builder) WithEntityName(name string) *Builder {
	b.req.entity = name
	return b
}

func (b *Builder) WithPredicate(p predicate.Predicate) *Builder {
	b.req.predicate = p
	return b
}

func (b *Builder) WithSortDescriptors(sorts ...storagemodels.SortDescriptor) *Builder {
	b.req.sorts = slices.Clone(sorts)
	return b
}

func (b *Builder) AddSortDescriptor(sd storagemodels.SortDescriptor) *Builder {
	b.req.sorts = append(b.req.sorts, sd)
	return b
}

func (b *Builder) WithFetchLimit(n int) *Builder {
	b.req.limit = max(n, 0)
	return b
}

func (b *Builder) WithRetries(n int) *Builder {
	b.req.retries = n
	b.req.retriesSet = true
	return b
}

func (b *Builder) WithMiddlewareFilters(filters ...MiddlewareFilter) *Builder {
	b.req.filters = slices.Clone(filters)
	return b
}

func (b *Builder) AddMiddlewareFilter(f MiddlewareFilter) *Builder {
	b.req.filters = append(b.req.filters, f)
	return b
}

func (b *Builder) WithApplyMiddlewares(apply bool) *Builder {
	b.req.applyMiddlewares = apply
	return b
}

func (b *Builder) WithSaveContext(oc datastore.Context) *Builder {
	b.req.saveContext = oc
	return b
}

// WithDataToDelete sets the identities to delete. Records, pure values and
// bare Identifiable keys are all accepted; see Identifiables.
func (b *Builder) WithDataToDelete(items []storagemodels.Identifiable) *Builder {
	b.req.dataToDelete = slices.Clone(items)
	if b.req.dataToDelete == nil {
		b.req.dataToDelete = []storagemodels.Identifiable{}
	}
	return b
}

// Identifiables widens a typed slice for WithDataToDelete.
func Identifiables[I storagemodels.Identifiable](items []I) []storagemodels.Identifiable {
	out := make([]storagemodels.Identifiable, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func (b *Builder) WithDescription(d string) *Builder {
	b.req.description = d
	return b
}

// Build returns an independent Request; later builder calls do not affect it.
func (b *Builder) Build() Request {
	return b.req.clone()
}
