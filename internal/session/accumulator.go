package session

import "sync"

// Accumulator is the single source of truth for session distance: the sum of
// all accepted increments since the session started. Reset only on new-session
// creation, never on pause.
type Accumulator struct {
	mu sync.Mutex
	km float64
}

func (a *Accumulator) Add(incrementKm float64) error {
	if incrementKm < 0 {
		return ErrInvalidIncrement
	}
	a.mu.Lock()
	a.km += incrementKm
	a.mu.Unlock()
	return nil
}

func (a *Accumulator) Km() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.km
}

func (a *Accumulator) Reset() {
	a.mu.Lock()
	a.km = 0
	a.mu.Unlock()
}
