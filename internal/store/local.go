package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"backend-driverlog/internal/session"
)

// Local is the fallback trip store for sessions without an owner identity,
// backed by an embedded SQLite database.
type Local struct {
	db *sql.DB
}

func NewLocal(conn *sql.DB) (*Local, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS trips (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		distance_km REAL NOT NULL DEFAULT 0,
		maneuver_count INTEGER NOT NULL DEFAULT 0,
		city_percentage INTEGER NOT NULL DEFAULT 0,
		route_type TEXT NOT NULL DEFAULT '',
		is_night INTEGER NOT NULL DEFAULT 0,
		trace TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_trips_started_at ON trips(started_at);
	`
	if _, err := conn.Exec(schema); err != nil {
		return nil, err
	}
	return &Local{db: conn}, nil
}

func (s *Local) Create(ctx context.Context, trip *session.Trip) error {
	trace, err := marshalTrace(trip.Trace)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trips (id, owner_id, started_at, ended_at, duration_seconds, distance_km, maneuver_count, city_percentage, route_type, is_night, trace)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
	`, trip.ID, trip.OwnerID, trip.StartedAt, timePtr(trip.EndedAt), durationSeconds(trip),
		trip.DistanceKm, trip.ManeuverCount, trip.CityPercentage, trip.RouteType, trip.IsNight, string(trace))
	return err
}

func (s *Local) Update(ctx context.Context, trip *session.Trip) error {
	return s.Create(ctx, trip)
}

func (s *Local) Get(ctx context.Context, id string) (session.Trip, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, started_at, ended_at, duration_seconds, distance_km, maneuver_count, city_percentage, route_type, is_night, trace
		FROM trips WHERE id=?
	`, id)
	return scanLocalTrip(row.Scan)
}

func (s *Local) List(ctx context.Context) ([]session.Trip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, started_at, ended_at, duration_seconds, distance_km, maneuver_count, city_percentage, route_type, is_night, trace
		FROM trips
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []session.Trip
	for rows.Next() {
		trip, err := scanLocalTrip(rows.Scan)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func scanLocalTrip(scan func(dest ...any) error) (session.Trip, error) {
	var trip session.Trip
	var endedAt sql.NullTime
	var trace string
	if err := scan(&trip.ID, &trip.OwnerID, &trip.StartedAt, &endedAt, &trip.DurationSeconds,
		&trip.DistanceKm, &trip.ManeuverCount, &trip.CityPercentage, &trip.RouteType, &trip.IsNight, &trace); err != nil {
		return session.Trip{}, err
	}
	if endedAt.Valid {
		trip.EndedAt = endedAt.Time
	}
	if trace != "" {
		if err := json.Unmarshal([]byte(trace), &trip.Trace); err != nil {
			return session.Trip{}, err
		}
	}
	return trip, nil
}
