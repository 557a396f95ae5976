package session

import (
	"math/rand"
	"time"
)

const (
	RouteCity    = "city"
	RouteHighway = "highway"
	RouteMixed   = "mixed"
)

type Classification struct {
	ManeuverCount  int
	CityPercentage int
	RouteType      string
}

// Classifier derives the route summary of a finished trip. Pluggable so a real
// road-network classifier can replace the heuristic stub.
type Classifier interface {
	Classify(distanceKm float64, duration time.Duration) Classification
}

// HeuristicClassifier is a placeholder: one maneuver per 10 km plus one per 30
// driving minutes, and a randomized city share. There is no documented
// derivation behind these formulas.
type HeuristicClassifier struct {
	randFloat func() float64
}

func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{randFloat: rand.Float64}
}

func (h *HeuristicClassifier) Classify(distanceKm float64, duration time.Duration) Classification {
	city := int(50 + h.randFloat()*40)
	if city > 100 {
		city = 100
	}
	if city < 0 {
		city = 0
	}

	routeType := RouteMixed
	switch {
	case city >= 70:
		routeType = RouteCity
	case city <= 30:
		routeType = RouteHighway
	}

	return Classification{
		ManeuverCount:  int(distanceKm/10) + int(duration.Seconds()/1800),
		CityPercentage: city,
		RouteType:      routeType,
	}
}
