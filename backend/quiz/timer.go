package quiz

import (
	"context"
	"sync"
	"time"
)

// Timer counts down whole seconds and calls onExpire once when it reaches
// zero. A stopped or expired timer ignores further ticks.
type Timer struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	stopped   bool
	onExpire  func()
	done      chan struct{}
}

// NewTimer starts a countdown of the given number of minutes.
func NewTimer(minutes int, onExpire func()) *Timer {
	return NewTimerSeconds(minutes*60, onExpire)
}

// NewTimerSeconds is used when resuming a countdown from a stored deadline.
func NewTimerSeconds(seconds int, onExpire func()) *Timer {
	if seconds < 0 {
		seconds = 0
	}
	return &Timer{
		remaining: seconds,
		onExpire:  onExpire,
		done:      make(chan struct{}),
	}
}

// Tick advances the countdown by one second and returns what is left.
func (t *Timer) Tick() int {
	t.mu.Lock()
	if t.stopped || t.fired {
		r := t.remaining
		t.mu.Unlock()
		return r
	}
	if t.remaining > 0 {
		t.remaining--
	}
	fire := t.remaining == 0
	if fire {
		t.fired = true
	}
	r := t.remaining
	t.mu.Unlock()

	if fire && t.onExpire != nil {
		t.onExpire()
	}
	return r
}

func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) Expired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Stop cancels the countdown. It is safe to call more than once.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.done)
	}
}

// Run ticks once per second until the timer expires, is stopped, or ctx is
// cancelled.
func (t *Timer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		case <-ticker.C:
			t.Tick()
			if t.Expired() {
				return
			}
		}
	}
}
