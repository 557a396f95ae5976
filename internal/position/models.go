package position

import (
	"errors"
	"time"
)

// Sample is one reported device position. AccuracyM is the reported accuracy
// radius in meters; zero means the platform gave no estimate and the fix is
// trusted as-is.
type Sample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	AltitudeM  float64   `json:"altitude_m,omitempty"`
	SpeedMps   float64   `json:"speed_mps,omitempty"`
}

// WatchOptions mirror the platform location API configuration.
type WatchOptions struct {
	HighAccuracy bool
	MaxStaleness time.Duration
	FixTimeout   time.Duration
}

// Subscription is a handle to an open position watch. Cancel is synchronous:
// no callback fires after it returns.
type Subscription interface {
	Cancel()
}

// Source delivers position fixes. Exactly one subscription is held per active
// recording session.
type Source interface {
	Watch(onSample func(Sample), onError func(error), opts WatchOptions) (Subscription, error)
}

// ErrUnsupported is returned by Watch when the platform exposes no location
// capability at all.
var ErrUnsupported = errors.New("position source unsupported")
