/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"context"

	"github.com/suparena/storeflow/bridge"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// StreamDBEvents watches every record of entity, narrowed by transforms, and
// streams the changes as T until ctx ends. The first event is
// EventInitial.
func StreamDBEvents[T any, PT storagemodels.Decoder[T]](ctx context.Context, p *Processor, entity string, transforms ...request.Transform) (<-chan result.Result[storagemodels.ChangeEvent[T]], error) {
	ctrl, err := p.QueryController(entity, "", transforms...)
	if err != nil {
		return nil, err
	}
	b, err := bridge.New(ctrl, bridge.WithLogger(p.logger))
	if err != nil {
		_ = ctrl.Close()
		return nil, err
	}
	if err := b.Start(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	events := bridge.SubscribeTyped[T, PT](ctx, b)
	go func() {
		<-ctx.Done()
		_ = b.Close()
	}()
	return events, nil
}
