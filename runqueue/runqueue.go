/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package runqueue

import (
	"sync"

	"github.com/aether-im/aether/log"
)

// RunQueue serializes function execution for a single owner: functions posted
// to the same queue never run concurrently and always run in post order.
type RunQueue struct {
	name    string
	mu      sync.Mutex
	items   []func()
	active  bool
	stopped bool
	onStop  func()
}

// New returns an initialized run queue.
func New(name string) *RunQueue {
	return &RunQueue{name: name}
}

// Run posts fn to the queue. If the queue is stopped fn is discarded.
func (q *RunQueue) Run(fn func()) {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, fn)
	if q.active {
		q.mu.Unlock()
		return
	}
	q.active = true
	q.mu.Unlock()

	go q.process()
}

// Stop drains pending functions and invokes onStop once the queue goes idle.
// Functions posted after Stop are discarded.
func (q *RunQueue) Stop(onStop func()) {
	q.mu.Lock()
	q.stopped = true
	q.onStop = onStop
	idle := !q.active
	q.mu.Unlock()

	if idle && onStop != nil {
		onStop()
	}
}

func (q *RunQueue) process() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.active = false
			onStop := q.onStop
			q.onStop = nil
			q.mu.Unlock()
			if onStop != nil {
				onStop()
			}
			return
		}
		fn := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.run(fn)
	}
}

func (q *RunQueue) run(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorf("run queue %s panicked with error: %v", q.name, err)
		}
	}()
	fn()
}
