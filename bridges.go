/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storeflow

import (
	stderrors "errors"
	"maps"
	"slices"
	"sync"

	"github.com/suparena/storeflow/bridge"
	"github.com/suparena/storeflow/errors"
)

// BridgeRegistry holds the live change-notification bridges of a stack by
// name. It is safe for concurrent use.
type BridgeRegistry struct {
	mu      sync.RWMutex
	bridges map[string]*bridge.Bridge
}

// NewBridgeRegistry returns an empty registry.
func NewBridgeRegistry() *BridgeRegistry {
	return &BridgeRegistry{
		bridges: make(map[string]*bridge.Bridge),
	}
}

// Register stores b under name.
func (r *BridgeRegistry) Register(name string, b *bridge.Bridge) error {
	if name == "" {
		return errors.NewValidationError("name", "bridge name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bridges[name]; exists {
		return errors.NewAlreadyExistsError("bridge", name)
	}
	r.bridges[name] = b
	return nil
}

// Get retrieves the bridge registered under name.
func (r *BridgeRegistry) Get(name string) (*bridge.Bridge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.bridges[name]
	if !exists {
		return nil, errors.NewNotFoundError("bridge", name)
	}
	return b, nil
}

// Remove closes the bridge registered under name and forgets it.
func (r *BridgeRegistry) Remove(name string) error {
	r.mu.Lock()
	b, exists := r.bridges[name]
	delete(r.bridges, name)
	r.mu.Unlock()

	if !exists {
		return errors.NewNotFoundError("bridge", name)
	}
	return b.Close()
}

// List returns the registered names in sorted order.
func (r *BridgeRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.bridges))
}

// CloseAll closes and forgets every bridge.
func (r *BridgeRegistry) CloseAll() error {
	r.mu.Lock()
	bridges := r.bridges
	r.bridges = make(map[string]*bridge.Bridge)
	r.mu.Unlock()

	var errs []error
	for _, b := range bridges {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
