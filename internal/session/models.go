package session

import (
	"context"
	"time"

	"backend-driverlog/internal/position"
)

type State string

const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateActive    State = "active"
	StateFinalized State = "finalized"
	StateDiscarded State = "discarded"
)

// Trip is the aggregate root of one recording. The trace is append-only while
// the trip is active; DistanceKm never decreases.
type Trip struct {
	ID              string            `json:"id"`
	OwnerID         string            `json:"owner_id,omitempty"`
	StartedAt       time.Time         `json:"started_at"`
	EndedAt         time.Time         `json:"ended_at,omitempty"`
	DurationSeconds int64             `json:"duration_seconds"`
	ElapsedSeconds  int64             `json:"elapsed_seconds"`
	DistanceKm      float64           `json:"distance_km"`
	ManeuverCount   int               `json:"maneuver_count"`
	CityPercentage  int               `json:"city_percentage"`
	RouteType       string            `json:"route_type,omitempty"`
	IsNight         bool              `json:"is_night"`
	Trace           []position.Sample `json:"trace"`
	State           State             `json:"state"`
}

// Store persists trips. Create and Update are upserts keyed by Trip.ID and are
// safe to retry with the latest known state.
type Store interface {
	Create(ctx context.Context, trip *Trip) error
	Update(ctx context.Context, trip *Trip) error
}

// Broadcaster receives live snapshots of the active trip for external
// presentation. stream.Hub satisfies this.
type Broadcaster interface {
	Broadcast(tripID string, payload []byte)
}

// Snapshot is the read-only live view published on every sample and tick.
type Snapshot struct {
	TripID         string  `json:"trip_id"`
	State          State   `json:"state"`
	DistanceKm     float64 `json:"distance_km"`
	ElapsedSeconds int64   `json:"elapsed_seconds"`
	SampleCount    int     `json:"sample_count"`
	AcceptedCount  int     `json:"accepted_count"`
}
