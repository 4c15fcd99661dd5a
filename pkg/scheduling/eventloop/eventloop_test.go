package eventloop_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vnykmshr/cronflow/internal/testutil"
	cferrors "github.com/vnykmshr/cronflow/pkg/common/errors"
	"github.com/vnykmshr/cronflow/pkg/scheduling/eventloop"
)

func newLoop(t *testing.T) *eventloop.EventLoop {
	t.Helper()
	l := eventloop.New()
	t.Cleanup(func() { <-l.Shutdown() })
	return l
}

func TestNewWithConfig(t *testing.T) {
	t.Run("negative queue size", func(t *testing.T) {
		_, err := eventloop.NewWithConfig(eventloop.Config{QueueSize: -1}, nil)
		if !cferrors.IsValidationError(err) {
			t.Errorf("NewWithConfig error = %v, want ValidationError", err)
		}
	})

	t.Run("custom clock", func(t *testing.T) {
		fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		l, err := eventloop.NewWithConfig(eventloop.Config{
			Clock: func() time.Time { return fixed },
		}, nil)
		testutil.AssertNoError(t, err)
		defer func() { <-l.Shutdown() }()

		if !l.Now().Equal(fixed) {
			t.Errorf("Now() = %v, want %v", l.Now(), fixed)
		}
	})
}

func TestGo_RunsInOrder(t *testing.T) {
	l := newLoop(t)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		testutil.AssertNoError(t, l.Go(func() { got = append(got, i) }))
	}

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var snapshot []int
	testutil.AssertNoError(t, l.Call(ctx, func() { snapshot = append(snapshot, got...) }))

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, snapshot); diff != "" {
		t.Errorf("execution order mismatch (-want +got):\n%s", diff)
	}
}

func TestGo_NilFunc(t *testing.T) {
	l := newLoop(t)
	if err := l.Go(nil); !cferrors.IsValidationError(err) {
		t.Errorf("Go(nil) error = %v, want ValidationError", err)
	}
}

func TestCall_CancelledContext(t *testing.T) {
	l := newLoop(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker := testutil.NewCallbackTracker()
	err := l.Call(ctx, func() { tracker.Mark() })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Call error = %v, want context.Canceled", err)
	}
	tracker.AssertNotCalled(t)
}

func TestAfterFunc_Fires(t *testing.T) {
	l := newLoop(t)

	var fired int32
	timer := l.AfterFunc(10*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	if !timer.Active() {
		t.Error("timer should be active before it fires")
	}

	testutil.WaitForInt32(t, &fired, 1, time.Second)
	testutil.Eventually(t, func() bool { return !timer.Active() }, time.Second, 5*time.Millisecond)

	if timer.Stop() {
		t.Error("Stop on a fired timer should return false")
	}
}

func TestAfterFunc_ZeroDelay(t *testing.T) {
	l := newLoop(t)

	var fired int32
	l.AfterFunc(0, func() { atomic.AddInt32(&fired, 1) })
	l.AfterFunc(-time.Second, func() { atomic.AddInt32(&fired, 1) })

	testutil.WaitForInt32(t, &fired, 2, time.Second)
}

func TestTimer_Stop(t *testing.T) {
	l := newLoop(t)

	var fired int32
	timer := l.AfterFunc(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	if !timer.Stop() {
		t.Error("Stop on a pending timer should return true")
	}
	if timer.Stop() {
		t.Error("second Stop should return false")
	}
	if timer.Active() {
		t.Error("stopped timer should not be active")
	}

	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Errorf("stopped timer fired %d times", n)
	}
	if n := l.PendingTimers(); n != 0 {
		t.Errorf("PendingTimers() = %d, want 0", n)
	}
}

func TestTimer_StopAfterExpiryQueued(t *testing.T) {
	l := newLoop(t)

	// Hold the loop so the expiry is queued behind this callback, then stop
	// the timer before the loop gets to it.
	release := make(chan struct{})
	testutil.AssertNoError(t, l.Go(func() { <-release }))

	var fired int32
	timer := l.AfterFunc(0, func() { atomic.AddInt32(&fired, 1) })
	testutil.Eventually(t, func() bool { return l.QueueSize() == 1 }, time.Second, time.Millisecond)

	if !timer.Stop() {
		t.Error("Stop should report the timer as still pending")
	}
	close(release)

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	testutil.AssertNoError(t, l.Call(ctx, func() {}))

	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Errorf("timer stopped with a queued expiry fired %d times", n)
	}
}

func TestTimer_Reset(t *testing.T) {
	l := newLoop(t)

	var fired int32
	timer := l.AfterFunc(time.Hour, func() { atomic.AddInt32(&fired, 1) })

	if !timer.Reset(10 * time.Millisecond) {
		t.Error("Reset on a pending timer should return true")
	}
	testutil.WaitForInt32(t, &fired, 1, time.Second)

	testutil.Eventually(t, func() bool { return !timer.Active() }, time.Second, 5*time.Millisecond)
	if timer.Reset(10 * time.Millisecond) {
		t.Error("Reset on a fired timer should return false")
	}
	testutil.WaitForInt32(t, &fired, 2, time.Second)

	time.Sleep(30 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 2 {
		t.Errorf("fired = %d, want 2", n)
	}
}

func TestPanicHandler(t *testing.T) {
	recovered := make(chan interface{}, 1)
	l, err := eventloop.NewWithConfig(eventloop.Config{
		PanicHandler: func(r interface{}) { recovered <- r },
	}, nil)
	testutil.AssertNoError(t, err)
	defer func() { <-l.Shutdown() }()

	testutil.AssertNoError(t, l.Go(func() { panic("boom") }))

	select {
	case r := <-recovered:
		testutil.AssertEqual(t, r, interface{}("boom"))
	case <-time.After(time.Second):
		t.Fatal("panic handler was not called")
	}

	// The loop keeps running after a panic.
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	testutil.AssertNoError(t, l.Call(ctx, func() {}))
}

func TestShutdown(t *testing.T) {
	l := eventloop.New()

	var fired int32
	timer := l.AfterFunc(20*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })

	ran := make(chan struct{})
	testutil.AssertNoError(t, l.Go(func() { close(ran) }))

	select {
	case <-l.Shutdown():
	case <-time.After(time.Second):
		t.Fatal("shutdown did not complete")
	}
	<-ran

	if timer.Active() {
		t.Error("pending timers should be stopped by Shutdown")
	}

	err := l.Go(func() {})
	if !errors.Is(err, cferrors.ErrClosed) {
		t.Errorf("Go after shutdown error = %v, want ErrClosed", err)
	}

	late := l.AfterFunc(0, func() { atomic.AddInt32(&fired, 1) })
	if late.Active() {
		t.Error("timer created after shutdown should not be active")
	}

	time.Sleep(40 * time.Millisecond)
	if n := atomic.LoadInt32(&fired); n != 0 {
		t.Errorf("timers fired %d times after shutdown", n)
	}

	// Shutdown is idempotent.
	<-l.Shutdown()
}
