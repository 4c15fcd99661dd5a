package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vnykmshr/cronflow/pkg/scheduling/eventloop"
)

// FakeLoop implements eventloop.Loop with time that only moves when
// Advance or Set is called. Timer callbacks run synchronously on the
// goroutine that advances the clock, in expiry order.
type FakeLoop struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
}

// NewFakeLoop creates a FakeLoop starting at the given time.
// If zero time is provided, uses current time.
func NewFakeLoop(start time.Time) *FakeLoop {
	if start.IsZero() {
		start = time.Now()
	}
	return &FakeLoop{now: start}
}

// Now returns the current fake time.
func (f *FakeLoop) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers fn to run once the fake clock reaches now+d.
func (f *FakeLoop) AfterFunc(d time.Duration, fn func()) eventloop.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{loop: f, fn: fn}
	f.armLocked(t, d)
	return t
}

// Advance moves the clock forward by d, firing every timer that comes due
// on the way. Timers armed by callbacks fire too if they fall inside the
// window, so zero-delay follow-ups run before Advance returns.
func (f *FakeLoop) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		t := f.dueLocked(target)
		if t == nil {
			if target.After(f.now) {
				f.now = target
			}
			f.mu.Unlock()
			return
		}
		if t.when.After(f.now) {
			f.now = t.when
		}
		t.active = false
		f.removeLocked(t)
		f.mu.Unlock()

		t.fn()
	}
}

// RunPending fires the timers that are already due without moving the
// clock.
func (f *FakeLoop) RunPending() {
	f.Advance(0)
}

// Set moves the clock to t without firing anything.
func (f *FakeLoop) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Pending returns the number of armed timers.
func (f *FakeLoop) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// NextExpiry returns the earliest pending expiry, if any.
func (f *FakeLoop) NextExpiry() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var next *fakeTimer
	for _, t := range f.timers {
		if next == nil || t.before(next) {
			next = t
		}
	}
	if next == nil {
		return time.Time{}, false
	}
	return next.when, true
}

func (f *FakeLoop) armLocked(t *fakeTimer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	f.seq++
	t.when = f.now.Add(d)
	t.seq = f.seq
	if !t.active {
		t.active = true
		f.timers = append(f.timers, t)
	}
}

func (f *FakeLoop) dueLocked(target time.Time) *fakeTimer {
	var next *fakeTimer
	for _, t := range f.timers {
		if t.when.After(target) {
			continue
		}
		if next == nil || t.before(next) {
			next = t
		}
	}
	return next
}

func (f *FakeLoop) removeLocked(t *fakeTimer) {
	for i, cur := range f.timers {
		if cur == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return
		}
	}
}

type fakeTimer struct {
	loop   *FakeLoop
	fn     func()
	when   time.Time
	seq    uint64
	active bool
}

func (t *fakeTimer) before(o *fakeTimer) bool {
	if t.when.Equal(o.when) {
		return t.seq < o.seq
	}
	return t.when.Before(o.when)
}

func (t *fakeTimer) Stop() bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	t.loop.removeLocked(t)
	return true
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	wasActive := t.active
	t.loop.armLocked(t, d)
	return wasActive
}

func (t *fakeTimer) Active() bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	return t.active
}

// LogBuffer collects log output written from any goroutine. Tests point a
// zerolog logger at it and inspect the lines afterwards.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogBuffer creates an empty LogBuffer.
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{}
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the non-empty lines written so far.
func (b *LogBuffer) Lines() []string {
	var out []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Contains reports whether the output so far contains substr.
func (b *LogBuffer) Contains(substr string) bool {
	return strings.Contains(b.String(), substr)
}

// Entries decodes every line as a JSON log entry. It fails on the first
// line that is not a JSON object.
func (b *LogBuffer) Entries() ([]map[string]interface{}, error) {
	lines := b.Lines()
	entries := make([]map[string]interface{}, 0, len(lines))
	for i, line := range lines {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Reset discards everything written so far.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
