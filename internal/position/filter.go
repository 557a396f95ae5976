package position

import "backend-driverlog/internal/shared/geo"

// Default rejection thresholds. Consumer GPS accuracy routinely degrades to
// 50-150 m in urban canyons, and a single-fix jump of 2 km is a glitch, not
// travel.
const (
	DefaultAccuracyLimitM = 100.0
	DefaultJumpLimitKm    = 2.0
)

// Filter decides whether a new sample contributes to distance, given the last
// accepted sample.
type Filter struct {
	AccuracyLimitM float64
	JumpLimitKm    float64
}

type Decision struct {
	Accepted    bool
	IncrementKm float64
}

func NewFilter(accuracyLimitM, jumpLimitKm float64) Filter {
	if accuracyLimitM <= 0 {
		accuracyLimitM = DefaultAccuracyLimitM
	}
	if jumpLimitKm <= 0 {
		jumpLimitKm = DefaultJumpLimitKm
	}
	return Filter{AccuracyLimitM: accuracyLimitM, JumpLimitKm: jumpLimitKm}
}

// Accept accepts the first fix unconditionally with a zero increment; it
// establishes the origin. Later fixes are rejected when the reported accuracy
// is at or beyond the limit, or when the haversine increment from the last
// accepted fix is implausibly large.
func (f Filter) Accept(prev *Sample, candidate Sample) Decision {
	if prev == nil {
		return Decision{Accepted: true}
	}
	if candidate.AccuracyM >= f.AccuracyLimitM {
		return Decision{}
	}
	incrementKm := geo.HaversineKm(prev.Lat, prev.Lng, candidate.Lat, candidate.Lng)
	if incrementKm >= f.JumpLimitKm {
		return Decision{}
	}
	return Decision{Accepted: true, IncrementKm: incrementKm}
}
