package eventloop

import (
	"time"
)

// Loop is the host capability a scheduler runs on: a clock and one-shot
// timers whose callbacks run on the loop.
type Loop interface {
	// Now returns the loop's current time.
	Now() time.Time

	// AfterFunc arranges for f to run on the loop once d has elapsed.
	// A non-positive d runs f on the next turn of the loop.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a handle to a pending AfterFunc call.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// timer already fired or was already stopped.
	Stop() bool

	// Reset rearms the timer to fire after d, replacing any pending
	// expiry. It returns whether the timer was active before the call.
	Reset(d time.Duration) bool

	// Active reports whether the callback is still pending.
	Active() bool
}

// Config holds configuration options for creating an EventLoop.
type Config struct {
	// QueueSize is the number of callbacks that can wait for the loop
	// goroutine before posting blocks. Defaults to 64.
	QueueSize int

	// Clock overrides the time source. Defaults to time.Now.
	Clock func() time.Time

	// PanicHandler is called on the loop goroutine when a callback panics.
	// If nil, panics are recovered and logged.
	PanicHandler func(recovered interface{})
}
