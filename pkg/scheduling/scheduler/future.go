package scheduler

import (
	"context"
	"errors"
	"sync"
)

// Future is the eventual outcome of a job execution. A job function may
// also return a *Future as its result to signal that its work finishes
// later; the job's callbacks then wait for that future to settle.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	settled   bool
	value     interface{}
	err       error
	listeners []func()
}

// NewFuture creates an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve settles the future with a value. It returns false if the future
// had already settled.
func (f *Future) Resolve(value interface{}) bool {
	return f.settle(value, nil)
}

// Reject settles the future with an error. It returns false if the future
// had already settled.
func (f *Future) Reject(err error) bool {
	if err == nil {
		err = errors.New("scheduler: future rejected without an error")
	}
	return f.settle(nil, err)
}

// Done returns a channel that is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether Resolve or Reject has been called.
func (f *Future) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled value and error without blocking. Before the
// future settles it returns ErrFuturePending.
func (f *Future) Result() (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.settled {
		return nil, ErrFuturePending
	}
	return f.value, f.err
}

// Wait blocks until the future settles or ctx is done.
//
// Never call Wait from the event loop goroutine for a future that needs
// the loop to settle.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// onSettle runs fn once the future settles, immediately if it already has.
// fn runs on whichever goroutine settles the future.
func (f *Future) onSettle(fn func()) {
	f.mu.Lock()
	if !f.settled {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	fn()
}

func (f *Future) settle(value interface{}, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = value
	f.err = err
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return true
}
