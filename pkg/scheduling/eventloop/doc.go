/*
Package eventloop provides a single-goroutine event loop with one-shot
timers.

The Loop and Timer interfaces are the capability a scheduler needs from its
host: a clock and the ability to run a callback later. EventLoop is the
production implementation. Tests usually substitute a fake loop whose time
only moves when told to.

Every callback, whether queued with Go or Call or fired by a timer, runs
on the loop goroutine, one at a time:

	loop := eventloop.New()
	defer func() { <-loop.Shutdown() }()

	t := loop.AfterFunc(time.Second, func() {
		fmt.Println("tick")
	})
	t.Reset(2 * time.Second) // replaces the pending expiry

A stopped timer never runs its callback, even if its expiry was already on
its way to the loop when Stop was called.

Shutdown stops every pending timer, runs whatever is already queued and
then exits the loop goroutine.
*/
package eventloop
