/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/storagemodels"
)

// EntityDescriptor describes one entity kind known to the store.
type EntityDescriptor struct {
	Name       string
	PrimaryKey string
	// IndexMap holds key templates for backends that derive keys from
	// field values, e.g. {"PK": "DUMMY#{id}", "SK": "DUMMY"}.
	IndexMap map[string]string
	// Required lists fields that must be present on save, besides the
	// primary key.
	Required []string
}

// Registry maps entity names to their descriptors. It is safe for
// concurrent use and is normally populated once at startup.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]EntityDescriptor
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entities: make(map[string]EntityDescriptor)}
}

// Register adds d. Registering the same name twice is an error.
func (r *Registry) Register(d EntityDescriptor) error {
	if d.Name == "" {
		return errors.NewValidationError("name", "entity name is required")
	}
	if d.PrimaryKey == "" {
		return errors.NewValidationError("primaryKey", fmt.Sprintf("entity %s has no primary key", d.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[d.Name]; exists {
		return errors.NewAlreadyExistsError("entity", d.Name)
	}
	d.IndexMap = maps.Clone(d.IndexMap)
	d.Required = slices.Clone(d.Required)
	r.entities[d.Name] = d
	return nil
}

// RegisterValue registers the entity described by sample.
func (r *Registry) RegisterValue(sample storagemodels.PureValue, indexMap map[string]string) error {
	return r.Register(EntityDescriptor{
		Name:       sample.EntityName(),
		PrimaryKey: sample.PrimaryKey(),
		IndexMap:   indexMap,
	})
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (EntityDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entities[name]
	return d, ok
}

// IndexMap returns the key templates of the named entity.
func (r *Registry) IndexMap(name string) (map[string]string, error) {
	d, ok := r.Lookup(name)
	if !ok || len(d.IndexMap) == 0 {
		return nil, fmt.Errorf("%w: %s", errors.ErrNoIndexMap, name)
	}
	return maps.Clone(d.IndexMap), nil
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entities))
}

// Validate checks rec against its entity descriptor: the entity must be
// registered, the primary key must match and carry a value, and every
// required field must be set.
func (r *Registry) Validate(rec *storagemodels.Record) error {
	d, ok := r.Lookup(rec.EntityName())
	if !ok {
		return errors.NewValidationError("", fmt.Sprintf("unknown entity %q", rec.EntityName()))
	}
	if rec.PrimaryKey() != d.PrimaryKey {
		return errors.NewValidationError(rec.PrimaryKey(),
			fmt.Sprintf("entity %s is keyed by %q", d.Name, d.PrimaryKey))
	}
	if rec.PrimaryValue() == nil {
		return errors.NewValidationError(d.PrimaryKey, "primary key has no value")
	}
	for _, field := range d.Required {
		if v, ok := rec.Field(field); !ok || v == nil {
			return errors.NewValidationError(field, "required field is missing")
		}
	}
	return nil
}
