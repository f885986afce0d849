/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"context"

	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/facade"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// upsert replaces every record in the main context that shares an identity
// with a record inserted in the request's context, then saves that context. When the
// batch itself repeats an identity the last insert wins and the earlier
// ones are dropped from the context first.
func (p *Processor) upsert(ctx context.Context, req request.Request) error {
	entity, err := req.EntityName()
	if err != nil {
		return err
	}
	oc, err := req.SaveContext()
	if err != nil {
		return err
	}

	var batch []*storagemodels.Record
	for _, r := range oc.InsertedRecords() {
		if r.EntityName() != entity {
			continue
		}
		if r.PrimaryValue() == nil {
			return errors.NewConfigurationError(request.OpUpsert.String(), "a primary value on record "+r.ObjectID())
		}
		batch = append(batch, r)
	}
	if len(batch) == 0 {
		return nil
	}

	survivors, dropped := lastWins(batch)
	if len(dropped) > 0 {
		p.logger.Debugw("dropping duplicate upserts", "entity", entity, "count", len(dropped))
		if _, err := result.Await(ctx, p.facade.Delete(ctx, oc, entity, dropped)).Get(); err != nil {
			return err
		}
	}

	// Replaced records are deleted in oc, so the save applies deletes and
	// inserts together or not at all.
	main := p.facade.MainContext()
	if _, err := result.Await(ctx, facade.DeleteIdentifiables(ctx, p.facade, main, oc, entity, survivors)).Get(); err != nil {
		return err
	}
	_, err = result.Await(ctx, p.facade.Save(ctx, oc)).Get()
	return err
}

// lastWins keeps the last record of every identity, in batch order, and
// returns the earlier ones separately.
func lastWins(batch []*storagemodels.Record) (survivors, dropped []*storagemodels.Record) {
	last := make(map[string]int, len(batch))
	for i, r := range batch {
		last[predicate.IdentityKey(r)] = i
	}
	for i, r := range batch {
		if last[predicate.IdentityKey(r)] == i {
			survivors = append(survivors, r)
		} else {
			dropped = append(dropped, r)
		}
	}
	return survivors, dropped
}

// delete resolves the request's identities against the main context and
// deletes the matches there. Without an entity name on the request every
// item must name its own entity.
func (p *Processor) delete(ctx context.Context, req request.Request) error {
	items, err := req.DataToDelete()
	if err != nil {
		return err
	}
	groups, err := byEntity(req, items)
	if err != nil {
		return err
	}
	main := p.facade.MainContext()
	for _, g := range groups {
		if _, err := result.Await(ctx, facade.DeleteIdentifiables(ctx, p.facade, main, main, g.entity, g.ids)).Get(); err != nil {
			return err
		}
	}
	return nil
}

type entityGroup struct {
	entity string
	ids    []storagemodels.Identifiable
}

type named interface {
	EntityName() string
}

func byEntity(req request.Request, items []storagemodels.Identifiable) ([]entityGroup, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if entity, err := req.EntityName(); err == nil {
		return []entityGroup{{entity: entity, ids: items}}, nil
	}

	var groups []entityGroup
	index := make(map[string]int)
	for _, item := range items {
		n, ok := item.(named)
		if !ok || n.EntityName() == "" {
			_, err := req.EntityName()
			return nil, err
		}
		i, seen := index[n.EntityName()]
		if !seen {
			i = len(groups)
			index[n.EntityName()] = i
			groups = append(groups, entityGroup{entity: n.EntityName()})
		}
		groups[i].ids = append(groups[i].ids, item)
	}
	return groups, nil
}

// FetchIdentifiables fetches the records of entity whose identity matches
// one of ids. An empty ids slice succeeds at once without a query.
func (p *Processor) FetchIdentifiables(ctx context.Context, entity string, ids []storagemodels.Identifiable, transforms ...request.Transform) <-chan result.Result[[]*storagemodels.Record] {
	if len(ids) == 0 {
		return result.Just(result.Success([]*storagemodels.Record{}))
	}
	req, err := request.ApplyTransforms(request.NewBuilder().
		WithOperation(request.OpFetch).
		WithEntityName(entity).
		WithPredicate(predicate.ForIdentifiables(ids, p.facade.ChunkSize())).
		WithDescription("fetch identifiables").
		Build(), transforms...)
	if err != nil {
		return result.Fail[[]*storagemodels.Record](err)
	}
	return p.ExecuteRecords(ctx, req)
}

// FetchIdentifiablesTyped is FetchIdentifiables with conversion into T.
func FetchIdentifiablesTyped[T any, PT storagemodels.Decoder[T], I storagemodels.Identifiable](ctx context.Context, p *Processor, entity string, ids []I, transforms ...request.Transform) <-chan result.Result[[]T] {
	return result.Then[[]*storagemodels.Record, []T](ctx, p.FetchIdentifiables(ctx, entity, request.Identifiables(ids), transforms...), decodeAll[T, PT])
}
