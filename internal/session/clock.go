package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// ElapsedTracker counts wall-clock seconds for the active session on its own
// 1 Hz ticker, independent of GPS sample arrival. Stop tears the ticker down
// deterministically: no tick callback fires after Stop returns.
type ElapsedTracker struct {
	interval time.Duration
	seconds  atomic.Int64

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewElapsedTracker() *ElapsedTracker {
	return &ElapsedTracker{interval: time.Second}
}

// Start begins ticking. onTick, if set, receives the new elapsed total once
// per interval. Starting an already-running tracker is a no-op.
func (t *ElapsedTracker) Start(onTick func(seconds int64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s := t.seconds.Add(1)
				if onTick != nil {
					onTick(s)
				}
			}
		}
	}(t.stop, t.done)
}

// Stop blocks until the tick goroutine has exited.
func (t *ElapsedTracker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	stop, done := t.stop, t.done
	t.mu.Unlock()

	close(stop)
	<-done
}

func (t *ElapsedTracker) Seconds() int64 {
	return t.seconds.Load()
}

// Reset zeroes the counter. Must not be called while running.
func (t *ElapsedTracker) Reset() {
	t.seconds.Store(0)
}
