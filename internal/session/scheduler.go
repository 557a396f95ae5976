package session

import (
	"context"
	"log"
	"sync"
	"time"
)

// Default sync triggers: push at least every 4 seconds while samples arrive,
// or sooner once 50 m of unsynced distance has built up.
const (
	DefaultSyncInterval   = 4 * time.Second
	DefaultSyncDistanceKm = 0.05
)

// SyncScheduler bounds remote write frequency. At most one flush is in flight
// at a time; a trigger while one is outstanding is deferred and coalesced with
// the latest state, never queued. A failed flush is logged and retried on the
// next eligible trigger with current state, since newer state is always a
// superset of the stale payload.
type SyncScheduler struct {
	interval   time.Duration
	distanceKm float64
	flush      func(ctx context.Context) error
	now        func() time.Time

	mu           sync.Mutex
	cond         *sync.Cond
	lastSyncedAt time.Time
	unsyncedKm   float64
	inFlight     bool
	pending      bool
}

func NewSyncScheduler(interval time.Duration, distanceKm float64, flush func(ctx context.Context) error) *SyncScheduler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	if distanceKm <= 0 {
		distanceKm = DefaultSyncDistanceKm
	}
	s := &SyncScheduler{
		interval:   interval,
		distanceKm: distanceKm,
		flush:      flush,
		now:        time.Now,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Reset starts a fresh cursor at session start.
func (s *SyncScheduler) Reset(at time.Time) {
	s.mu.Lock()
	s.lastSyncedAt = at
	s.unsyncedKm = 0
	s.pending = false
	s.mu.Unlock()
}

// OnSample is called for every sample, accepted or rejected. The flush runs on
// its own goroutine and never blocks sample processing.
func (s *SyncScheduler) OnSample(incrementKm float64) {
	s.mu.Lock()
	s.unsyncedKm += incrementKm
	due := s.now().Sub(s.lastSyncedAt) > s.interval || s.unsyncedKm >= s.distanceKm
	if !due {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		s.pending = true
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.resetCursorLocked()
	s.mu.Unlock()

	go s.runFlush()
}

func (s *SyncScheduler) runFlush() {
	for {
		if err := s.flush(context.Background()); err != nil {
			log.Printf("trip sync flush failed: %v", err)
		}
		s.mu.Lock()
		if !s.pending {
			s.inFlight = false
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.resetCursorLocked()
		s.mu.Unlock()
	}
}

// FlushSync waits for any in-flight flush, then flushes once synchronously.
// Used for the final push on save.
func (s *SyncScheduler) FlushSync(ctx context.Context) error {
	s.mu.Lock()
	for s.inFlight {
		s.cond.Wait()
	}
	s.inFlight = true
	s.mu.Unlock()

	err := s.flush(ctx)

	s.mu.Lock()
	s.pending = false
	s.resetCursorLocked()
	s.inFlight = false
	s.cond.Broadcast()
	s.mu.Unlock()
	return err
}

func (s *SyncScheduler) resetCursorLocked() {
	s.lastSyncedAt = s.now()
	s.unsyncedKm = 0
}
