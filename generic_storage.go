/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storeflow

import (
	"context"
	"reflect"
	"sync"

	"github.com/suparena/storeflow/bridge"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/processor"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// typeBindings maps Go types to the entity they are stored as.
type typeBindings struct {
	mu       sync.RWMutex
	entities map[reflect.Type]string
}

func newTypeBindings() *typeBindings {
	return &typeBindings{
		entities: make(map[reflect.Type]string),
	}
}

func (tb *typeBindings) bind(typ reflect.Type, entity string) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if _, exists := tb.entities[typ]; exists {
		return errors.NewAlreadyExistsError("type", typ.String())
	}
	tb.entities[typ] = entity
	return nil
}

func (tb *typeBindings) entity(typ reflect.Type) (string, bool) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	e, ok := tb.entities[typ]
	return e, ok
}

// RegisterType registers the entity of V with the stack's registry and
// binds V to it, so the typed helpers below need no entity name. The zero
// V must report its entity name and primary key.
func RegisterType[V storagemodels.PureValue](s *Stack, indexMap map[string]string) error {
	var zero V
	if err := s.registry.RegisterValue(zero, indexMap); err != nil {
		return err
	}
	return s.types.bind(reflect.TypeFor[V](), zero.EntityName())
}

// EntityOf returns the entity T was registered as.
func EntityOf[T any](s *Stack) (string, error) {
	typ := reflect.TypeFor[T]()
	e, ok := s.types.entity(typ)
	if !ok {
		return "", errors.NewNotFoundError("type", typ.String())
	}
	return e, nil
}

var start = result.Success(struct{}{})

// Fetch returns the saved T matching where, in sorts order.
func Fetch[T any, PT storagemodels.Decoder[T]](ctx context.Context, s *Stack, where predicate.Predicate, sorts ...storagemodels.SortDescriptor) <-chan result.Result[[]T] {
	entity, err := EntityOf[T](s)
	if err != nil {
		return result.Fail[[]T](err)
	}
	req := request.NewBuilder().
		WithOperation(request.OpFetch).
		WithEntityName(entity).
		WithPredicate(where).
		WithSortDescriptors(sorts...).
		Build()
	return processor.ExecuteTyped[T, PT](ctx, s.processor, req)
}

// FetchAll returns every saved T, narrowed by transforms.
func FetchAll[T any, PT storagemodels.Decoder[T]](ctx context.Context, s *Stack, transforms ...request.Transform) <-chan result.Result[[]T] {
	entity, err := EntityOf[T](s)
	if err != nil {
		return result.Fail[[]T](err)
	}
	return processor.FetchAll[T, PT](ctx, s.processor, start, entity, transforms...)
}

// Get returns the saved values whose identities are in ids.
func Get[T any, PT storagemodels.Decoder[T], I storagemodels.Identifiable](ctx context.Context, s *Stack, ids []I) <-chan result.Result[[]T] {
	entity, err := EntityOf[T](s)
	if err != nil {
		return result.Fail[[]T](err)
	}
	return processor.FetchIdentifiablesTyped[T, PT](ctx, s.processor, entity, ids)
}

// Upsert replaces saved values by identity and persists the result.
func Upsert[V storagemodels.PureValue](ctx context.Context, s *Stack, values []V) <-chan result.Result[struct{}] {
	upserted := processor.UpsertInMemory(ctx, s.processor, result.Success(values))
	return result.Then[struct{}, struct{}](ctx, upserted, s.persist)
}

// Delete removes the saved T with the given identities and persists the
// result. Absent identities are ignored.
func Delete[T any, I storagemodels.Identifiable](ctx context.Context, s *Stack, ids []I) <-chan result.Result[struct{}] {
	entity, err := EntityOf[T](s)
	if err != nil {
		return result.Fail[struct{}](err)
	}
	deleted := processor.DeleteInMemory(ctx, s.processor, result.Success(ids), entity)
	return result.Then[struct{}, struct{}](ctx, deleted, s.persist)
}

func (s *Stack) persist(ctx context.Context, _ struct{}) (<-chan result.Result[struct{}], error) {
	return processor.PersistToDB(ctx, s.processor, start), nil
}

// Watch registers a bridge over every saved T under name and streams its
// events as T. Remove the bridge from the stack's registry to stop it.
func Watch[T any, PT storagemodels.Decoder[T]](ctx context.Context, s *Stack, name string, transforms ...request.Transform) (<-chan result.Result[storagemodels.ChangeEvent[T]], error) {
	entity, err := EntityOf[T](s)
	if err != nil {
		return nil, err
	}
	b, err := s.Watch(ctx, name, entity, "", transforms...)
	if err != nil {
		return nil, err
	}
	return bridge.SubscribeTyped[T, PT](ctx, b), nil
}

// Current returns the objects the bridge registered under name currently
// holds, as T.
func Current[T any, PT storagemodels.Decoder[T]](s *Stack, name string) ([]T, error) {
	b, err := s.bridges.Get(name)
	if err != nil {
		return nil, err
	}
	return bridge.CurrentObjects[T, PT](b)
}
