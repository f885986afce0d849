/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storeflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/suparena/storeflow/bridge"
	"github.com/suparena/storeflow/config"
	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/datastore/ddb"
	"github.com/suparena/storeflow/datastore/memstore"
	"github.com/suparena/storeflow/datastore/sqlite"
	"github.com/suparena/storeflow/facade"
	"github.com/suparena/storeflow/logger"
	"github.com/suparena/storeflow/processor"
	"github.com/suparena/storeflow/registry"
	"github.com/suparena/storeflow/request"
)

// Stack is a fully wired storeflow instance: an in-memory store backed by
// the configured persister, the facade and processor in front of it, and
// the named bridges watching it.
type Stack struct {
	cfg         config.Config
	registry    *registry.Registry
	persister   datastore.Persister
	store       *memstore.Store
	facade      *facade.Facade
	processor   *processor.Processor
	metrics     *processor.Metrics
	middlewares *request.MiddlewareManager
	bridges     *BridgeRegistry
	types       *typeBindings
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	registry     *registry.Registry
	logger       *zap.Logger
	registerer   prometheus.Registerer
	persister    datastore.Persister
	dynamoClient ddb.API
	middlewares  *request.MiddlewareManager
	strict       bool
	wrap         func(datastore.Store) datastore.Store
}

// Option configures Open.
type Option func(*options)

// WithRegistry uses reg for entity descriptors instead of an empty registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithLogger sets the root logger; components log under their own names.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegisterer registers processor metrics with reg. By default they go
// to a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithPersister overrides the backend chosen by the configuration.
func WithPersister(p datastore.Persister) Option {
	return func(o *options) {
		o.persister = p
	}
}

// WithDynamoDBClient is used by the dynamodb backend instead of a client
// built from the configuration.
func WithDynamoDBClient(c ddb.API) Option {
	return func(o *options) {
		o.dynamoClient = c
	}
}

// WithMiddlewares installs m on the processor.
func WithMiddlewares(m *request.MiddlewareManager) Option {
	return func(o *options) {
		o.middlewares = m
	}
}

// WithStrictEntities validates every saved record against the registry.
func WithStrictEntities() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithStoreWrapper wraps the store before the facade sees it, e.g. with
// a failure-injecting mock.
func WithStoreWrapper(wrap func(datastore.Store) datastore.Store) Option {
	return func(o *options) {
		o.wrap = wrap
	}
}

// Open validates cfg, opens the configured persister, loads its records
// into a new store and wires the rest of the stack on top.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.registry == nil {
		o.registry = registry.New()
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}
	if o.middlewares == nil {
		o.middlewares = request.NewMiddlewareManager()
	}
	log := logger.For(o.logger, logger.ComponentStack)

	persister := o.persister
	if persister == nil {
		var err error
		if persister, err = openPersister(ctx, cfg, o); err != nil {
			return nil, err
		}
	}

	storeOpts := []memstore.Option{
		memstore.WithMaxExpressionWidth(cfg.Store.MaxExpressionWidth),
		memstore.WithLogger(logger.For(o.logger, logger.ComponentStore)),
	}
	if persister != nil {
		storeOpts = append(storeOpts, memstore.WithPersister(persister))
	}
	if o.strict {
		storeOpts = append(storeOpts, memstore.WithRegistry(o.registry))
	}
	store, err := memstore.Open(ctx, storeOpts...)
	if err != nil {
		closePersister(persister)
		return nil, err
	}

	var ds datastore.Store = store
	if o.wrap != nil {
		ds = o.wrap(store)
	}
	f, err := facade.New(ds,
		facade.WithWorkers(cfg.Store.Workers),
		facade.WithChunkSize(cfg.Processor.PredicateChunkSize),
		facade.WithLogger(logger.For(o.logger, logger.ComponentFacade)),
	)
	if err != nil {
		closePersister(persister)
		return nil, err
	}

	metrics := processor.NewMetrics(o.registerer)
	p, err := processor.New(f,
		processor.WithMetrics(metrics),
		processor.WithMiddlewares(o.middlewares),
		processor.WithBackoff(cfg.Processor.RetryBackoff),
		processor.WithDefaultRetries(cfg.Processor.DefaultRetries),
		processor.WithLogger(logger.For(o.logger, logger.ComponentProcessor)),
	)
	if err != nil {
		closePersister(persister)
		return nil, err
	}

	log.Infow("stack opened", "backend", cfg.Store.Backend, "workers", cfg.Store.Workers)
	return &Stack{
		cfg:         cfg,
		registry:    o.registry,
		persister:   persister,
		store:       store,
		facade:      f,
		processor:   p,
		metrics:     metrics,
		middlewares: o.middlewares,
		bridges:     NewBridgeRegistry(),
		types:       newTypeBindings(),
		logger:      o.logger,
	}, nil
}

func openPersister(ctx context.Context, cfg config.Config, o options) (datastore.Persister, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		p, err := sqlite.Open(cfg.Store.SQLitePath,
			sqlite.WithChunkSize(cfg.Processor.PredicateChunkSize),
			sqlite.WithLogger(logger.For(o.logger, logger.ComponentSQLite)),
		)
		if err != nil {
			return nil, fmt.Errorf("open sqlite persister: %w", err)
		}
		return p, nil
	case config.BackendDynamoDB:
		dc := cfg.Store.DynamoDB
		client := o.dynamoClient
		if client == nil {
			c, err := ddb.NewClient(ctx, ddb.ClientConfig{
				Region:    dc.Region,
				AccessKey: dc.AccessKey,
				SecretKey: dc.SecretKey,
				Endpoint:  dc.Endpoint,
			})
			if err != nil {
				return nil, fmt.Errorf("open dynamodb persister: %w", err)
			}
			client = c
		}
		p, err := ddb.New(client, dc.Table,
			ddb.WithRegistry(o.registry),
			ddb.WithLogger(logger.For(o.logger, logger.ComponentDynamoDB)),
		)
		if err != nil {
			return nil, fmt.Errorf("open dynamodb persister: %w", err)
		}
		return p, nil
	default:
		return nil, nil
	}
}

func closePersister(p datastore.Persister) {
	if p != nil {
		_ = p.Close()
	}
}

func (s *Stack) Config() config.Config                   { return s.cfg }
func (s *Stack) Registry() *registry.Registry            { return s.registry }
func (s *Stack) Store() datastore.Store                  { return s.facade.Store() }
func (s *Stack) Facade() *facade.Facade                  { return s.facade }
func (s *Stack) Processor() *processor.Processor         { return s.processor }
func (s *Stack) Metrics() *processor.Metrics             { return s.metrics }
func (s *Stack) Middlewares() *request.MiddlewareManager { return s.middlewares }
func (s *Stack) Bridges() *BridgeRegistry                { return s.bridges }
func (s *Stack) Logger() *zap.Logger                     { return s.logger }

// Count returns the number of records of entity saved into the main
// context.
func (s *Stack) Count(entity string) int { return s.store.Count(entity) }

// Watch attaches a bridge over every record of entity, narrowed by
// transforms, runs its initial fetch and registers it under name.
// sectionField groups the results; empty means a single section.
func (s *Stack) Watch(ctx context.Context, name, entity, sectionField string, transforms ...request.Transform) (*bridge.Bridge, error) {
	ctrl, err := s.processor.QueryController(entity, sectionField, transforms...)
	if err != nil {
		return nil, err
	}
	b, err := bridge.New(ctrl, bridge.WithLogger(logger.For(s.logger, logger.ComponentBridge).With("bridge", name)))
	if err != nil {
		_ = ctrl.Close()
		return nil, err
	}
	if err := s.bridges.Register(name, b); err != nil {
		_ = b.Close()
		return nil, err
	}
	if err := b.Start(ctx); err != nil {
		_ = s.bridges.Remove(name)
		return nil, err
	}
	return b, nil
}

// Close closes every bridge and then the persister. It is safe to call
// more than once.
func (s *Stack) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.bridges.CloseAll(); err != nil {
			errs = append(errs, err)
		}
		if s.persister != nil {
			if err := s.persister.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = stderrors.Join(errs...)
		logger.For(s.logger, logger.ComponentStack).Debugw("stack closed", "error", s.closeErr)
	})
	return s.closeErr
}
