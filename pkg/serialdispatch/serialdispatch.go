// Package serialdispatch runs write closures one at a time. Callers that find
// the dispatcher idle run inline; the rest wait in a bounded queue drained by
// a single worker.
package serialdispatch

import (
	"errors"
	"sync"
)

var ErrClosed = errors.New("serialdispatch: dispatcher closed")

type job struct {
	fn     func() error
	result chan error
}

type Dispatcher struct {
	token chan struct{}
	queue chan job
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// New starts a dispatcher whose fallback queue holds up to size pending jobs.
func New(size int) *Dispatcher {
	if size < 1 {
		size = 1
	}
	d := &Dispatcher{
		token: make(chan struct{}, 1),
		queue: make(chan job, size),
		done:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Dispatch runs fn with exclusive access and returns its error.
func (d *Dispatcher) Dispatch(fn func() error) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrClosed
	}

	select {
	case d.token <- struct{}{}:
		d.mu.RUnlock()
		defer func() { <-d.token }()
		return fn()
	default:
	}

	j := job{fn: fn, result: make(chan error, 1)}
	d.queue <- j
	d.mu.RUnlock()
	return <-j.result
}

// Close stops the worker. Jobs already queued still run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case j := <-d.queue:
			d.exec(j)
		case <-d.done:
			for {
				select {
				case j := <-d.queue:
					d.exec(j)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) exec(j job) {
	d.token <- struct{}{}
	defer func() { <-d.token }()
	j.result <- j.fn()
}
