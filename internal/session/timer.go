package session

import (
	"sync"
	"time"
)

// Timer counts a situation's discussion time down with one-second
// granularity and fires the expiry callback exactly once.
type Timer struct {
	mu       sync.Mutex
	timeLeft time.Duration
	running  bool
	stop     chan struct{}
	expired  func()
}

func NewTimer(expired func()) *Timer {
	return &Timer{expired: expired}
}

// Start arms the countdown, replacing any countdown already running.
func (t *Timer) Start(duration time.Duration) {
	t.Stop()
	t.mu.Lock()
	t.timeLeft = duration
	t.running = true
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()
	go t.run(stop)
}

func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.stop != stop {
				// Stopped or restarted between the tick and taking the lock.
				t.mu.Unlock()
				return
			}
			t.timeLeft -= time.Second
			done := t.timeLeft <= 0
			if done {
				t.timeLeft = 0
				t.running = false
				t.stop = nil
			}
			t.mu.Unlock()
			if done {
				t.expired()
				return
			}
		}
	}
}

// Stop cancels the countdown without firing the callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.running = false
	t.timeLeft = 0
}

func (t *Timer) TimeLeft() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeLeft
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
