package eventloop

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/common/validation"
)

const defaultQueueSize = 64

// EventLoop runs every callback on a single goroutine, in the order the
// callbacks become ready. Code running on the loop never needs to lock
// against other loop callbacks.
type EventLoop struct {
	config Config
	logger zerolog.Logger

	tasks        chan func()
	shutdownCh   chan struct{}
	stopped      chan struct{}
	shutdownOnce sync.Once

	mu         sync.Mutex
	isShutdown bool
	timers     map[*loopTimer]struct{}
}

// New creates and starts an EventLoop with default settings.
func New() *EventLoop {
	l, _ := NewWithConfig(Config{}, nil)
	return l
}

// NewWithConfig creates and starts an EventLoop. A nil logger discards
// output.
func NewWithConfig(config Config, logger *zerolog.Logger) (*EventLoop, error) {
	if config.QueueSize == 0 {
		config.QueueSize = defaultQueueSize
	}
	if err := validation.ValidatePositive("eventloop", "QueueSize", config.QueueSize); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	l := &EventLoop{
		config:     config,
		logger:     zerolog.Nop(),
		tasks:      make(chan func(), config.QueueSize),
		shutdownCh: make(chan struct{}),
		stopped:    make(chan struct{}),
		timers:     make(map[*loopTimer]struct{}),
	}
	if logger != nil {
		l.logger = logger.With().Str("component", "eventloop").Logger()
	}

	go l.run()
	return l, nil
}

// Now returns the current time from the configured clock.
func (l *EventLoop) Now() time.Time {
	return l.config.Clock()
}

// AfterFunc schedules f to run on the loop after d. Timers created after
// Shutdown never fire.
func (l *EventLoop) AfterFunc(d time.Duration, f func()) Timer {
	t := &loopTimer{loop: l, fn: f}
	t.mu.Lock()
	t.arm(d)
	t.mu.Unlock()
	return t
}

// Go queues f to run on the loop. It returns ErrClosed once the loop has
// been shut down.
func (l *EventLoop) Go(f func()) error {
	if f == nil {
		return cferrors.NewValidationError("eventloop", "f", nil, "function cannot be nil")
	}
	if !l.post(f) {
		return cferrors.NewOperationError("eventloop", "Go", cferrors.ErrClosed)
	}
	return nil
}

// Call runs f on the loop and waits for it to return. It must not be
// called from the loop goroutine itself.
func (l *EventLoop) Call(ctx context.Context, f func()) error {
	if f == nil {
		return cferrors.NewValidationError("eventloop", "f", nil, "function cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		f()
	}

	select {
	case <-ctx.Done():
		return cferrors.NewOperationError("eventloop", "Call", ctx.Err())
	default:
	}

	select {
	case l.tasks <- wrapped:
	case <-l.shutdownCh:
		return cferrors.NewOperationError("eventloop", "Call", cferrors.ErrClosed)
	case <-ctx.Done():
		return cferrors.NewOperationError("eventloop", "Call", ctx.Err())
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		// The loop drains queued work before stopping.
		<-done
		return nil
	case <-ctx.Done():
		return cferrors.NewOperationError("eventloop", "Call", ctx.Err())
	}
}

// Shutdown stops accepting work and cancels all pending timers. Callbacks
// already queued still run. The returned channel closes once the loop
// goroutine has exited.
func (l *EventLoop) Shutdown() <-chan struct{} {
	l.shutdownOnce.Do(func() {
		l.mu.Lock()
		l.isShutdown = true
		pending := make([]*loopTimer, 0, len(l.timers))
		for t := range l.timers {
			pending = append(pending, t)
		}
		l.mu.Unlock()

		for _, t := range pending {
			t.Stop()
		}
		close(l.shutdownCh)
	})
	return l.stopped
}

// PendingTimers returns the number of timers that have not yet fired or
// been stopped.
func (l *EventLoop) PendingTimers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// QueueSize returns the number of callbacks waiting to run.
func (l *EventLoop) QueueSize() int {
	return len(l.tasks)
}

func (l *EventLoop) post(f func()) bool {
	select {
	case <-l.shutdownCh:
		return false
	default:
	}

	select {
	case l.tasks <- f:
		return true
	case <-l.shutdownCh:
		return false
	}
}

func (l *EventLoop) track(t *loopTimer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isShutdown {
		return false
	}
	l.timers[t] = struct{}{}
	return true
}

func (l *EventLoop) untrack(t *loopTimer) {
	l.mu.Lock()
	delete(l.timers, t)
	l.mu.Unlock()
}

// run is the loop goroutine.
func (l *EventLoop) run() {
	defer close(l.stopped)

	for {
		select {
		case f := <-l.tasks:
			l.execute(f)
		case <-l.shutdownCh:
			for {
				select {
				case f := <-l.tasks:
					l.execute(f)
				default:
					return
				}
			}
		}
	}
}

func (l *EventLoop) execute(f func()) {
	defer func() {
		if r := recover(); r != nil {
			if l.config.PanicHandler != nil {
				l.config.PanicHandler(r)
				return
			}
			l.logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("callback panicked")
		}
	}()
	f()
}

// loopTimer fires through the loop's queue. Every arm bumps gen so that an
// expiry already in flight when the timer is stopped or reset is dropped.
type loopTimer struct {
	loop *EventLoop
	fn   func()

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	active bool
}

// arm must be called with t.mu held.
func (t *loopTimer) arm(d time.Duration) {
	t.gen++
	if !t.loop.track(t) {
		t.active = false
		return
	}
	t.active = true

	gen := t.gen
	if d < 0 {
		d = 0
	}
	t.timer = time.AfterFunc(d, func() {
		t.loop.post(func() { t.fire(gen) })
	})
}

func (t *loopTimer) fire(gen uint64) {
	t.mu.Lock()
	if !t.active || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.mu.Unlock()

	t.loop.untrack(t)
	t.fn()
}

func (t *loopTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	t.gen++
	t.timer.Stop()
	t.loop.untrack(t)
	return true
}

func (t *loopTimer) Reset(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := t.active
	if t.timer != nil {
		t.timer.Stop()
	}
	t.arm(d)
	return wasActive
}

func (t *loopTimer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}
