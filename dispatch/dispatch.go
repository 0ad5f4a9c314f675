// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package dispatch delivers reports from background goroutines to a single
// owner, one at a time and in the order they were posted.
package dispatch

import (
	"log/slog"
	"sync"
)

type Dispatcher struct {
	mu     sync.RWMutex
	closed bool
	queue  chan func()
	done   chan struct{}
}

// New starts a dispatcher whose queue holds up to buffer pending reports.
// Post blocks once the queue is full.
func New(buffer int) *Dispatcher {
	d := &Dispatcher{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for fn := range d.queue {
		d.deliver(fn)
	}
}

func (d *Dispatcher) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("report handler panicked", "panic", r)
		}
	}()
	fn()
}

// Post queues fn. It returns false if the dispatcher is closed.
// fn must not call Post on the same dispatcher while the queue may be full.
func (d *Dispatcher) Post(fn func()) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}
	d.queue <- fn
	return true
}

// Close stops accepting reports, delivers those already queued and waits.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	<-d.done
}
