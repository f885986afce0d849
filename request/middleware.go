/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package request

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/suparena/storeflow/errors"
)

// MiddlewareFilter is a named predicate over middleware names. A middleware
// acts on a request only when every filter on the request allows it.
type MiddlewareFilter struct {
	Name  string
	Allow func(middleware string) bool
}

// OnlyMiddlewares allows just the named middlewares.
func OnlyMiddlewares(names ...string) MiddlewareFilter {
	return MiddlewareFilter{
		Name:  fmt.Sprintf("only%v", names),
		Allow: func(m string) bool { return slices.Contains(names, m) },
	}
}

// ExcludeMiddlewares blocks the named middlewares.
func ExcludeMiddlewares(names ...string) MiddlewareFilter {
	return MiddlewareFilter{
		Name:  fmt.Sprintf("exclude%v", names),
		Allow: func(m string) bool { return !slices.Contains(names, m) },
	}
}

// Middleware rewrites a request before dispatch.
type Middleware func(ctx context.Context, req Request) (Request, error)

// MiddlewareManager applies registered middlewares in registration order.
type MiddlewareManager struct {
	mu    sync.RWMutex
	names []string
	mws   map[string]Middleware
}

// NewMiddlewareManager returns an empty manager.
func NewMiddlewareManager() *MiddlewareManager {
	return &MiddlewareManager{mws: make(map[string]Middleware)}
}

// Use registers mw under name.
func (m *MiddlewareManager) Use(name string, mw Middleware) error {
	if name == "" || mw == nil {
		return fmt.Errorf("middleware needs a name and a function")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.mws[name]; exists {
		return errors.NewAlreadyExistsError("middleware", name)
	}
	m.names = append(m.names, name)
	m.mws[name] = mw
	return nil
}

// Names returns the registered middleware names in order.
func (m *MiddlewareManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.names)
}

// Apply runs every middleware the request's filters allow. Requests that
// did not opt in with ApplyMiddlewares pass through untouched.
func (m *MiddlewareManager) Apply(ctx context.Context, req Request) (Request, error) {
	if m == nil || !req.ApplyMiddlewares() {
		return req, nil
	}
	m.mu.RLock()
	names := slices.Clone(m.names)
	mws := make([]Middleware, len(names))
	for i, n := range names {
		mws[i] = m.mws[n]
	}
	m.mu.RUnlock()

	filters := req.MiddlewareFilters()
	for i, name := range names {
		if !allowed(filters, name) {
			continue
		}
		next, err := mws[i](ctx, req)
		if err != nil {
			return req, errors.NewMiddlewareError(name, err)
		}
		req = next
	}
	return req, nil
}

func allowed(filters []MiddlewareFilter, name string) bool {
	for _, f := range filters {
		if f.Allow != nil && !f.Allow(name) {
			return false
		}
	}
	return true
}

// Transform derives a new request from an existing one.
type Transform func(Request) (Request, error)

// ApplyTransforms runs transforms in order.
func ApplyTransforms(req Request, transforms ...Transform) (Request, error) {
	for _, t := range transforms {
		if t == nil {
			continue
		}
		next, err := t(req)
		if err != nil {
			return req, fmt.Errorf("transform request: %w", err)
		}
		req = next
	}
	return req, nil
}

// WithRetriesTransform overrides the retry count.
func WithRetriesTransform(n int) Transform {
	return func(r Request) (Request, error) {
		return r.ToBuilder().WithRetries(n).Build(), nil
	}
}

// WithDescriptionTransform overrides the description.
func WithDescriptionTransform(d string) Transform {
	return func(r Request) (Request, error) {
		return r.ToBuilder().WithDescription(d).Build(), nil
	}
}
