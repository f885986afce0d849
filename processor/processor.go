/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/errors"
	"github.com/suparena/storeflow/facade"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/retry"
	"github.com/suparena/storeflow/storagemodels"
)

// Processor turns requests into store calls. Every call it makes goes
// through the facade and is retried as many times as the request allows.
type Processor struct {
	facade      *facade.Facade
	middlewares *request.MiddlewareManager
	metrics     *Metrics
	backoff     time.Duration
	retries     int
	logger      *zap.SugaredLogger
}

// Option configures a Processor.
type Option func(*Processor)

// WithMiddlewares applies m to requests that opt in.
func WithMiddlewares(m *request.MiddlewareManager) Option {
	return func(p *Processor) {
		p.middlewares = m
	}
}

// WithMetrics records request metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithBackoff waits d between retry attempts.
func WithBackoff(d time.Duration) Option {
	return func(p *Processor) {
		p.backoff = d
	}
}

// WithDefaultRetries sets the attempts made for requests that do not set
// their own retry count.
func WithDefaultRetries(n int) Option {
	return func(p *Processor) {
		p.retries = n
	}
}

// WithLogger sets the processor logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a processor dispatching through f.
func New(f *facade.Facade, opts ...Option) (*Processor, error) {
	if f == nil {
		return nil, fmt.Errorf("processor: nil facade")
	}
	p := &Processor{
		facade: f,
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Facade returns the facade the processor dispatches through.
func (p *Processor) Facade() *facade.Facade { return p.facade }

// Execute runs a request that produces no value: save-context, delete,
// persist-to-disk, upsert or reset-stack. Fetch requests fail immediately
// with a usage error; use ExecuteRecords or ExecuteTyped.
func (p *Processor) Execute(ctx context.Context, req request.Request) <-chan result.Result[struct{}] {
	op, err := req.Operation()
	if err == nil && op == request.OpFetch {
		err = errors.NewUsageError("Execute", op.String())
	}
	if err != nil {
		return reject[struct{}](p, op, err)
	}
	return submit(ctx, p, req, p.execute)
}

// ExecuteRecords runs a fetch request. Any other operation fails
// immediately with a usage error and no store call.
func (p *Processor) ExecuteRecords(ctx context.Context, req request.Request) <-chan result.Result[[]*storagemodels.Record] {
	op, err := req.Operation()
	if err == nil && op != request.OpFetch {
		err = errors.NewUsageError("ExecuteRecords", op.String())
	}
	if err != nil {
		return reject[[]*storagemodels.Record](p, op, err)
	}
	return submit(ctx, p, req, p.fetch)
}

// ExecuteTyped is ExecuteRecords followed by conversion of every record
// into T.
func ExecuteTyped[T any, PT storagemodels.Decoder[T]](ctx context.Context, p *Processor, req request.Request) <-chan result.Result[[]T] {
	return result.Then[[]*storagemodels.Record, []T](ctx, p.ExecuteRecords(ctx, req), decodeAll[T, PT])
}

func decodeAll[T any, PT storagemodels.Decoder[T]](_ context.Context, records []*storagemodels.Record) (<-chan result.Result[[]T], error) {
	return result.Just(result.Of(storagemodels.DecodeAll[T, PT](records))), nil
}

// reject reports a request refused before dispatch.
func reject[T any](p *Processor, op request.Operation, err error) <-chan result.Result[T] {
	p.metrics.observe(op.String(), outcomeFailure, 0)
	p.logger.Debugw("request rejected", "operation", op, "error", err)
	return result.Fail[T](err)
}

// submit runs call for req off the caller's goroutine: middlewares first,
// then up to req.Retries() sequential attempts, or the processor default
// when the request sets none. The outcome is dropped if
// ctx ends before it is known.
func submit[T any](ctx context.Context, p *Processor, req request.Request, call func(context.Context, request.Request) (T, error)) <-chan result.Result[T] {
	out := make(chan result.Result[T], 1)
	go func() {
		defer close(out)
		start := time.Now()

		req, err := p.middlewares.Apply(ctx, req)
		op, _ := req.Operation()
		opName := op.String()

		attempts := req.Retries()
		if !req.HasRetries() {
			attempts = max(p.retries, 1)
		}

		var v T
		if err == nil {
			v, err = retry.Value(ctx, attempts, func(ctx context.Context) (T, error) {
				return call(ctx, req)
			},
				retry.WithBackoff(p.backoff),
				retry.OnAttempt(func(int) { p.metrics.attempt(opName) }),
				retry.OnRetry(func(attempt int, err error, next time.Duration) {
					p.logger.Debugw("retrying request",
						"request", req.String(), "attempt", attempt, "next", next, "error", err)
				}),
			)
		}

		if ctx.Err() != nil {
			p.metrics.observe(opName, outcomeCancelled, time.Since(start))
			return
		}
		if err != nil {
			p.metrics.observe(opName, outcomeFailure, time.Since(start))
			p.logger.Debugw("request failed", "request", req.String(), "error", err)
		} else {
			p.metrics.observe(opName, outcomeSuccess, time.Since(start))
		}
		out <- result.Of(v, err)
	}()
	return out
}

// execute dispatches one attempt of a void request.
func (p *Processor) execute(ctx context.Context, req request.Request) (struct{}, error) {
	op, err := req.Operation()
	if err != nil {
		return struct{}{}, err
	}
	switch op {
	case request.OpSaveContext:
		oc, err := req.SaveContext()
		if err != nil {
			return struct{}{}, err
		}
		return result.Await(ctx, p.facade.Save(ctx, oc)).Get()
	case request.OpDelete:
		return struct{}{}, p.delete(ctx, req)
	case request.OpPersistToDisk:
		return result.Await(ctx, p.facade.Persist(ctx)).Get()
	case request.OpUpsert:
		return struct{}{}, p.upsert(ctx, req)
	case request.OpResetStack:
		return result.Await(ctx, p.facade.Reset(ctx)).Get()
	default:
		return struct{}{}, errors.NewUsageError("Execute", op.String())
	}
}

// fetch dispatches one attempt of a fetch request. The request's context
// is queried when it carries one, the main context otherwise.
func (p *Processor) fetch(ctx context.Context, req request.Request) ([]*storagemodels.Record, error) {
	op, err := req.Operation()
	if err != nil {
		return nil, err
	}
	if op != request.OpFetch {
		return nil, errors.NewUsageError("ExecuteRecords", op.String())
	}
	q, err := req.QueryDescriptor()
	if err != nil {
		return nil, err
	}
	return result.Await(ctx, p.facade.Fetch(ctx, p.contextOf(req), q)).Get()
}

func (p *Processor) contextOf(req request.Request) datastore.Context {
	if oc, err := req.SaveContext(); err == nil {
		return oc
	}
	return p.facade.MainContext()
}
