/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"context"
	"slices"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// Generator derives the next request from the value of a previous step.
type Generator[Prev any] func(prev Prev) (request.Request, error)

// Process chains a void request after prev. A failed prev short-circuits;
// otherwise gen builds the request, Execute runs it and proc shapes the
// outcome.
func Process[Prev, R any](ctx context.Context, p *Processor, prev result.Result[Prev], gen Generator[Prev], proc result.Processor[struct{}, R]) <-chan result.Result[R] {
	step := func(ctx context.Context, v Prev) (<-chan result.Result[struct{}], error) {
		req, err := gen(v)
		if err != nil {
			return nil, err
		}
		return p.Execute(ctx, req), nil
	}
	return result.Then(ctx, result.ProcessResult[Prev, struct{}](ctx, prev, step), proc)
}

// ProcessTyped chains a fetch request after prev and converts the fetched
// records into T before proc sees them.
func ProcessTyped[Prev, T any, PT storagemodels.Decoder[T], R any](ctx context.Context, p *Processor, prev result.Result[Prev], gen Generator[Prev], proc result.Processor[[]T, R]) <-chan result.Result[R] {
	step := func(ctx context.Context, v Prev) (<-chan result.Result[[]T], error) {
		req, err := gen(v)
		if err != nil {
			return nil, err
		}
		return ExecuteTyped[T, PT](ctx, p, req), nil
	}
	return result.Then(ctx, result.ProcessResult[Prev, []T](ctx, prev, step), proc)
}

func build(b *request.Builder, transforms []request.Transform) (request.Request, error) {
	return request.ApplyTransforms(b.Build(), transforms...)
}

func fetchAllRequest(entity string) *request.Builder {
	return request.NewBuilder().
		WithOperation(request.OpFetch).
		WithEntityName(entity).
		WithPredicate(predicate.MatchAll()).
		WithDescription("fetch all " + entity)
}

// FetchAll fetches every record of entity as T once prev succeeds.
func FetchAll[T any, PT storagemodels.Decoder[T], Prev any](ctx context.Context, p *Processor, prev result.Result[Prev], entity string, transforms ...request.Transform) <-chan result.Result[[]T] {
	return ProcessTyped[Prev, T, PT](ctx, p, prev, func(Prev) (request.Request, error) {
		return build(fetchAllRequest(entity), transforms)
	}, result.EqProcessor[[]T]())
}

// FetchWithProperties fetches the records of entity whose fields take one
// of the listed values, for every listed field. Fields are combined with
// AND in name order.
func FetchWithProperties[T any, PT storagemodels.Decoder[T]](ctx context.Context, p *Processor, prev result.Result[map[string][]any], entity string, transforms ...request.Transform) <-chan result.Result[[]T] {
	chunk := p.facade.ChunkSize()
	return ProcessTyped[map[string][]any, T, PT](ctx, p, prev, func(props map[string][]any) (request.Request, error) {
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		slices.Sort(names)
		return build(request.NewBuilder().
			WithOperation(request.OpFetch).
			WithEntityName(entity).
			WithPredicate(predicate.ForProperties(names, props, chunk)).
			WithDescription("fetch "+entity+" with properties"), transforms)
	}, result.EqProcessor[[]T]())
}

// SaveToMemory inserts values into a fresh disposable context and saves it
// into the main context. It yields the inserted records.
func SaveToMemory[V storagemodels.PureValue](ctx context.Context, p *Processor, prev result.Result[[]V], transforms ...request.Transform) <-chan result.Result[[]*storagemodels.Record] {
	insert := func(ctx context.Context, values []V) (<-chan result.Result[[]*storagemodels.Record], error) {
		if len(values) == 0 {
			return result.Just(result.Success([]*storagemodels.Record{})), nil
		}
		oc := p.facade.NewDisposableContext()
		records, err := result.Await(ctx, p.facade.Insert(ctx, oc, pureValues(values))).Get()
		if err != nil {
			return result.Fail[[]*storagemodels.Record](err), nil
		}
		req, err := build(request.NewBuilder().
			WithOperation(request.OpSaveContext).
			WithSaveContext(oc).
			WithDescription("save to memory"), transforms)
		if err != nil {
			return nil, err
		}
		return result.Then(ctx, p.Execute(ctx, req), result.Lift(func(context.Context, struct{}) ([]*storagemodels.Record, error) {
			return records, nil
		})), nil
	}
	return result.ProcessResult[[]V, []*storagemodels.Record](ctx, prev, insert)
}

// DeleteInMemory deletes the records of entity matching the identities in
// prev from the main context. An empty entity lets each item name its own.
func DeleteInMemory[I storagemodels.Identifiable](ctx context.Context, p *Processor, prev result.Result[[]I], entity string, transforms ...request.Transform) <-chan result.Result[struct{}] {
	return Process(ctx, p, prev, func(ids []I) (request.Request, error) {
		return build(request.NewBuilder().
			WithOperation(request.OpDelete).
			WithEntityName(entity).
			WithDataToDelete(request.Identifiables(ids)).
			WithDescription("delete in memory"), transforms)
	}, result.EqProcessor[struct{}]())
}

// DeleteAllInMemory deletes every record of entity from the main context.
func DeleteAllInMemory[Prev any](ctx context.Context, p *Processor, prev result.Result[Prev], entity string, transforms ...request.Transform) <-chan result.Result[struct{}] {
	fetch := func(ctx context.Context, _ Prev) (<-chan result.Result[[]*storagemodels.Record], error) {
		req, err := build(fetchAllRequest(entity), transforms)
		if err != nil {
			return nil, err
		}
		return p.ExecuteRecords(ctx, req), nil
	}
	records := result.ProcessResult[Prev, []*storagemodels.Record](ctx, prev, fetch)
	return result.Then[[]*storagemodels.Record, struct{}](ctx, records, func(ctx context.Context, rs []*storagemodels.Record) (<-chan result.Result[struct{}], error) {
		return DeleteInMemory(ctx, p, result.Success(rs), entity, transforms...), nil
	})
}

// UpsertInMemory inserts values into disposable contexts, one per entity,
// and upserts each of them into the main context in entity order of first
// appearance.
func UpsertInMemory[V storagemodels.PureValue](ctx context.Context, p *Processor, prev result.Result[[]V], transforms ...request.Transform) <-chan result.Result[struct{}] {
	upsert := func(ctx context.Context, values []V) (<-chan result.Result[struct{}], error) {
		var entities []string
		grouped := make(map[string][]storagemodels.PureValue)
		for _, v := range values {
			e := v.EntityName()
			if _, ok := grouped[e]; !ok {
				entities = append(entities, e)
			}
			grouped[e] = append(grouped[e], v)
		}

		for _, entity := range entities {
			oc := p.facade.NewDisposableContext()
			if _, err := result.Await(ctx, p.facade.Insert(ctx, oc, grouped[entity])).Get(); err != nil {
				return result.Fail[struct{}](err), nil
			}
			req, err := build(request.NewBuilder().
				WithOperation(request.OpUpsert).
				WithEntityName(entity).
				WithSaveContext(oc).
				WithDescription("upsert in memory"), transforms)
			if err != nil {
				return nil, err
			}
			if _, err := result.Await(ctx, p.Execute(ctx, req)).Get(); err != nil {
				return result.Fail[struct{}](err), nil
			}
		}
		return result.Just(result.Success(struct{}{})), nil
	}
	return result.ProcessResult[[]V, struct{}](ctx, prev, upsert)
}

// PersistToDB flushes everything saved into the main context to disk.
func PersistToDB[Prev any](ctx context.Context, p *Processor, prev result.Result[Prev], transforms ...request.Transform) <-chan result.Result[struct{}] {
	return Process(ctx, p, prev, func(Prev) (request.Request, error) {
		return build(request.NewBuilder().
			WithOperation(request.OpPersistToDisk).
			WithDescription("persist to disk"), transforms)
	}, result.EqProcessor[struct{}]())
}

// ResetStack drops every record in memory and on disk.
func ResetStack[Prev any](ctx context.Context, p *Processor, prev result.Result[Prev], transforms ...request.Transform) <-chan result.Result[struct{}] {
	return Process(ctx, p, prev, func(Prev) (request.Request, error) {
		return build(request.NewBuilder().
			WithOperation(request.OpResetStack).
			WithDescription("reset stack"), transforms)
	}, result.EqProcessor[struct{}]())
}

// QueryController attaches a controller for the fetch request that
// transforms make of a fetch-all request for entity.
func (p *Processor) QueryController(entity, sectionField string, transforms ...request.Transform) (datastore.QueryController, error) {
	req, err := build(fetchAllRequest(entity), transforms)
	if err != nil {
		return nil, err
	}
	q, err := req.QueryDescriptor()
	if err != nil {
		return nil, err
	}
	return p.facade.Store().AttachQueryController(q, sectionField)
}

func pureValues[V storagemodels.PureValue](values []V) []storagemodels.PureValue {
	out := make([]storagemodels.PureValue, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
