package session

import (
	"sync"
	"time"
)

// Countdown is the advisory per-assessment timer: it ticks once per second and
// fires a single completion signal when the time limit elapses. It never
// mutates session state; ending an assessment stays an explicit command.
type Countdown struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// StartCountdown begins ticking immediately. onTick (optional) receives the
// remaining seconds after each tick; onComplete (optional) fires exactly once
// when the countdown reaches zero. Stop cancels both.
func StartCountdown(seconds int, onTick func(remaining int), onComplete func()) *Countdown {
	return startCountdown(seconds, time.Second, onTick, onComplete)
}

// startCountdown takes the tick interval for tests.
func startCountdown(seconds int, interval time.Duration, onTick func(int), onComplete func()) *Countdown {
	c := &Countdown{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run(seconds, interval, onTick, onComplete)
	return c
}

func (c *Countdown) run(remaining int, interval time.Duration, onTick func(int), onComplete func()) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for remaining > 0 {
		select {
		case <-ticker.C:
			remaining--
			if onTick != nil {
				onTick(remaining)
			}
		case <-c.stop:
			return
		}
	}
	if onComplete != nil {
		onComplete()
	}
}

// Stop cancels the countdown and releases its ticker. Safe to call more than
// once and after completion.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once the countdown has completed or been stopped.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
