package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"backend-driverlog/internal/position"
	"backend-driverlog/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

func openLocal(t *testing.T) *Local {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	local, err := NewLocal(conn)
	if err != nil {
		t.Fatalf("init local store: %v", err)
	}
	return local
}

func TestLocalCreateAndGet(t *testing.T) {
	local := openLocal(t)
	ctx := context.Background()

	trip := sampleTrip()
	trip.EndedAt = trip.StartedAt.Add(time.Hour)
	trip.DurationSeconds = 3600
	trip.RouteType = session.RouteCity

	if err := local.Create(ctx, trip); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := local.Get(ctx, trip.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != trip.ID || got.DistanceKm != trip.DistanceKm || got.RouteType != session.RouteCity {
		t.Fatalf("unexpected trip: %+v", got)
	}
	if got.EndedAt.IsZero() || got.DurationSeconds != 3600 {
		t.Fatalf("unexpected end fields: %+v", got)
	}
	if len(got.Trace) != 2 || got.Trace[0].Lat != 48.8566 {
		t.Fatalf("unexpected trace: %+v", got.Trace)
	}
}

func TestLocalUpdateReplaces(t *testing.T) {
	local := openLocal(t)
	ctx := context.Background()

	trip := sampleTrip()
	if err := local.Create(ctx, trip); err != nil {
		t.Fatalf("create: %v", err)
	}

	trip.DistanceKm = 9.9
	trip.Trace = append(trip.Trace, position.Sample{Lat: 48.86, Lng: 2.36})
	if err := local.Update(ctx, trip); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := local.Get(ctx, trip.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DistanceKm != 9.9 || len(got.Trace) != 3 {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestLocalGetMissing(t *testing.T) {
	local := openLocal(t)
	if _, err := local.Get(context.Background(), "absent"); err == nil {
		t.Fatalf("expected error for missing trip")
	}
}

func TestLocalList(t *testing.T) {
	local := openLocal(t)
	ctx := context.Background()

	first := sampleTrip()
	second := sampleTrip()
	second.ID = "trip-2"
	second.StartedAt = first.StartedAt.Add(time.Hour)

	if err := local.Create(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := local.Create(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}

	trips, err := local.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(trips))
	}
	if trips[0].ID != "trip-2" {
		t.Fatalf("expected newest first, got %s", trips[0].ID)
	}
}
