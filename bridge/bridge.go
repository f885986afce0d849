/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// Lifecycle states of a Bridge.
const (
	StateUninitialized = "uninitialized"
	StateAttached      = "attached"
	StateActive        = "active"
	StateClosed        = "closed"
)

const (
	eventAttach = "attach"
	eventStart  = "start"
	eventClose  = "close"
)

type event = storagemodels.ChangeEvent[*storagemodels.Record]

// Bridge is the delegate of one query controller. It republishes every
// controller callback, in callback order, to all subscribers. A new
// subscriber first receives the latest event published, or EventInitial
// when there has been none.
type Bridge struct {
	ctrl    datastore.QueryController
	machine *fsm.FSM
	logger  *zap.SugaredLogger

	lifecycle sync.Mutex

	mu     sync.Mutex
	latest event
	subs   map[*queue]struct{}
	closed bool
}

var _ datastore.ControllerDelegate = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New installs a bridge as ctrl's delegate. Call Start to run the
// controller's initial fetch.
func New(ctrl datastore.QueryController, opts ...Option) (*Bridge, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("bridge: nil query controller")
	}
	b := &Bridge{
		ctrl:   ctrl,
		logger: zap.NewNop().Sugar(),
		latest: storagemodels.InitialEvent[*storagemodels.Record](),
		subs:   make(map[*queue]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.machine = fsm.NewFSM(
		StateUninitialized,
		fsm.Events{
			{Name: eventAttach, Src: []string{StateUninitialized}, Dst: StateAttached},
			{Name: eventStart, Src: []string{StateAttached}, Dst: StateActive},
			{Name: eventClose, Src: []string{StateAttached, StateActive}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				b.logger.Debugw("bridge state changed", "entity", ctrl.Query().Entity, "from", e.Src, "to", e.Dst)
			},
		},
	)

	if err := ctrl.SetDelegate(b); err != nil {
		return nil, fmt.Errorf("attach bridge: %w", err)
	}
	if err := b.machine.Event(context.Background(), eventAttach); err != nil {
		return nil, fmt.Errorf("attach bridge: %w", err)
	}
	return b, nil
}

// State returns the current lifecycle state.
func (b *Bridge) State() string { return b.machine.Current() }

// Start performs the controller's initial fetch. It may be called once.
func (b *Bridge) Start(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	if !b.machine.Can(eventStart) {
		return fmt.Errorf("start bridge: state is %s", b.machine.Current())
	}
	if err := b.ctrl.PerformFetch(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}
	return b.machine.Event(ctx, eventStart)
}

// Close detaches from the controller and ends every subscription after its
// queued events.
func (b *Bridge) Close() error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()
	if !b.machine.Can(eventClose) {
		return nil
	}
	err := b.ctrl.Close()

	b.mu.Lock()
	b.closed = true
	for q := range b.subs {
		q.close()
	}
	b.subs = make(map[*queue]struct{})
	b.mu.Unlock()

	if ferr := b.machine.Event(context.Background(), eventClose); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

// Subscribe returns the event stream of the bridge. The channel closes when
// ctx is done or the bridge is closed.
func (b *Bridge) Subscribe(ctx context.Context) <-chan storagemodels.ChangeEvent[*storagemodels.Record] {
	q := newQueue()
	b.mu.Lock()
	q.push(b.latest)
	if b.closed {
		q.close()
	} else {
		b.subs[q] = struct{}{}
	}
	b.mu.Unlock()

	out := make(chan event)
	go func() {
		defer close(out)
		defer b.unsubscribe(q)
		for {
			e, ok, done := q.pop()
			if !ok {
				if done {
					return
				}
				select {
				case <-q.signal:
					continue
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (b *Bridge) unsubscribe(q *queue) {
	b.mu.Lock()
	delete(b.subs, q)
	b.mu.Unlock()
	q.close()
}

// Latest returns the most recently published event.
func (b *Bridge) Latest() storagemodels.ChangeEvent[*storagemodels.Record] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// CurrentRecords returns the controller's current fetch result.
func (b *Bridge) CurrentRecords() []*storagemodels.Record {
	return b.ctrl.FetchedObjects()
}

func (b *Bridge) publish(e event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = e
	for q := range b.subs {
		q.push(e)
	}
}

func (b *Bridge) WillChangeContent(c datastore.QueryController) {
	b.publish(event{
		Kind:     storagemodels.EventWillChange,
		Sections: c.Sections(),
		Objects:  c.FetchedObjects(),
	})
}

func (b *Bridge) DidChangeContent(c datastore.QueryController) {
	b.publish(event{
		Kind:     storagemodels.EventDidChange,
		Sections: c.Sections(),
		Objects:  c.FetchedObjects(),
	})
}

func (b *Bridge) DidChangeObject(_ datastore.QueryController, rec *storagemodels.Record, change storagemodels.ChangeType, from, to *storagemodels.IndexPath) {
	b.publish(event{
		Kind:   storagemodels.ObjectEventKind(change),
		Object: rec,
		From:   from,
		To:     to,
	})
}

func (b *Bridge) DidChangeSection(_ datastore.QueryController, section storagemodels.Section[*storagemodels.Record], index int, change storagemodels.ChangeType) {
	b.publish(event{
		Kind:         storagemodels.SectionEventKind(change),
		Section:      &section,
		SectionIndex: index,
	})
}

// SubscribeTyped is Subscribe with records converted into T. An object
// event whose record cannot be converted is delivered as a failure; the
// stream continues.
func SubscribeTyped[T any, PT storagemodels.Decoder[T]](ctx context.Context, b *Bridge) <-chan result.Result[storagemodels.ChangeEvent[T]] {
	in := b.Subscribe(ctx)
	out := make(chan result.Result[storagemodels.ChangeEvent[T]])
	go func() {
		defer close(out)
		for e := range in {
			r := result.Of(storagemodels.MapEvent(e, storagemodels.Decode[T, PT]))
			select {
			case out <- r:
			case <-ctx.Done():
				for range in {
				}
				return
			}
		}
	}()
	return out
}

// CurrentObjects converts the bridge's current records into T.
func CurrentObjects[T any, PT storagemodels.Decoder[T]](b *Bridge) ([]T, error) {
	return storagemodels.DecodeAll[T, PT](b.CurrentRecords())
}
