package store

import (
	"context"
	"encoding/json"
	"time"

	"backend-driverlog/internal/db"
	"backend-driverlog/internal/position"
	"backend-driverlog/internal/session"
)

// Postgres is the remote trip store. Create and Update both upsert on the
// locally generated trip id, so retrying either with the latest state is safe.
type Postgres struct {
	db db.Querier
}

func NewPostgres(q db.Querier) *Postgres {
	return &Postgres{db: q}
}

func (s *Postgres) Create(ctx context.Context, trip *session.Trip) error {
	trace, err := marshalTrace(trip.Trace)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO trips (id, owner_id, started_at, ended_at, duration_seconds, distance_km, maneuver_count, city_percentage, route_type, is_night, trace)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			ended_at=EXCLUDED.ended_at,
			duration_seconds=EXCLUDED.duration_seconds,
			distance_km=EXCLUDED.distance_km,
			maneuver_count=EXCLUDED.maneuver_count,
			city_percentage=EXCLUDED.city_percentage,
			route_type=EXCLUDED.route_type,
			trace=EXCLUDED.trace
	`, trip.ID, trip.OwnerID, trip.StartedAt, timePtr(trip.EndedAt), durationSeconds(trip),
		trip.DistanceKm, trip.ManeuverCount, trip.CityPercentage, trip.RouteType, trip.IsNight, trace)
	return err
}

func (s *Postgres) Update(ctx context.Context, trip *session.Trip) error {
	trace, err := marshalTrace(trip.Trace)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE trips
		SET ended_at=$2, duration_seconds=$3, distance_km=$4, maneuver_count=$5, city_percentage=$6, route_type=$7, trace=$8
		WHERE id=$1
	`, trip.ID, timePtr(trip.EndedAt), durationSeconds(trip), trip.DistanceKm,
		trip.ManeuverCount, trip.CityPercentage, trip.RouteType, trace)
	return err
}

func (s *Postgres) Get(ctx context.Context, id string) (session.Trip, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, owner_id, started_at, ended_at, COALESCE(duration_seconds,0), distance_km, maneuver_count, city_percentage, COALESCE(route_type,''), is_night, trace
		FROM trips WHERE id=$1
	`, id)
	return scanTrip(row.Scan)
}

func (s *Postgres) List(ctx context.Context, ownerID string) ([]session.Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner_id, started_at, ended_at, COALESCE(duration_seconds,0), distance_km, maneuver_count, city_percentage, COALESCE(route_type,''), is_night, trace
		FROM trips WHERE owner_id=$1
		ORDER BY started_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []session.Trip
	for rows.Next() {
		trip, err := scanTrip(rows.Scan)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func scanTrip(scan func(dest ...any) error) (session.Trip, error) {
	var trip session.Trip
	var endedAt *time.Time
	var trace []byte
	if err := scan(&trip.ID, &trip.OwnerID, &trip.StartedAt, &endedAt, &trip.DurationSeconds,
		&trip.DistanceKm, &trip.ManeuverCount, &trip.CityPercentage, &trip.RouteType, &trip.IsNight, &trace); err != nil {
		return session.Trip{}, err
	}
	if endedAt != nil {
		trip.EndedAt = *endedAt
	}
	if len(trace) > 0 {
		if err := json.Unmarshal(trace, &trip.Trace); err != nil {
			return session.Trip{}, err
		}
	}
	return trip, nil
}

func marshalTrace(trace []position.Sample) ([]byte, error) {
	if trace == nil {
		trace = []position.Sample{}
	}
	return json.Marshal(trace)
}

// durationSeconds reports the final duration once the trip has ended, or the
// elapsed seconds so far for the incremental flushes of an active trip.
func durationSeconds(trip *session.Trip) int64 {
	if trip.DurationSeconds > 0 {
		return trip.DurationSeconds
	}
	return trip.ElapsedSeconds
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
