/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bridge

import (
	"sync"

	"github.com/suparena/storeflow/storagemodels"
)

// queue is an unbounded FIFO of events for one subscriber. Pushing never
// blocks; the consumer waits on signal.
type queue struct {
	mu     sync.Mutex
	items  []storagemodels.ChangeEvent[*storagemodels.Record]
	closed bool
	signal chan struct{} // buffered, size 1
}

func newQueue() *queue {
	return &queue{signal: make(chan struct{}, 1)}
}

func (q *queue) push(e storagemodels.ChangeEvent[*storagemodels.Record]) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.wake()
}

// pop returns the oldest event. ok is false when the queue is empty; done
// is true once it is also closed.
func (q *queue) pop() (e storagemodels.ChangeEvent[*storagemodels.Record], ok, done bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return e, false, q.closed
	}
	e = q.items[0]
	q.items[0] = storagemodels.ChangeEvent[*storagemodels.Record]{}
	q.items = q.items[1:]
	return e, true, false
}

// close stops accepting events. Queued events are still delivered.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
