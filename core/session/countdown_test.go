package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdown_completes(t *testing.T) {
	var ticks, completions int32
	c := startCountdown(3, time.Millisecond,
		func(int) { atomic.AddInt32(&ticks, 1) },
		func() { atomic.AddInt32(&completions, 1) },
	)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("countdown did not complete in time")
	}

	if got := atomic.LoadInt32(&ticks); got != 3 {
		t.Errorf("ticks = %d, want 3", got)
	}
	if got := atomic.LoadInt32(&completions); got != 1 {
		t.Errorf("completion fired %d times, want exactly 1", got)
	}
}

func TestCountdown_stopCancelsCompletion(t *testing.T) {
	var completions int32
	c := startCountdown(1000, time.Millisecond, nil,
		func() { atomic.AddInt32(&completions, 1) },
	)
	c.Stop()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("stopped countdown did not release its goroutine")
	}

	if got := atomic.LoadInt32(&completions); got != 0 {
		t.Errorf("stopped countdown must not complete, fired %d times", got)
	}
}

func TestCountdown_stopIsIdempotent(t *testing.T) {
	c := startCountdown(1000, time.Millisecond, nil, nil)
	c.Stop()
	c.Stop() // must not panic
	<-c.Done()

	// stopping after completion is also fine
	done := startCountdown(1, time.Millisecond, nil, nil)
	<-done.Done()
	done.Stop()
}
