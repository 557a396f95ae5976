package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-driverlog/internal/config"
	"backend-driverlog/internal/db"
	"backend-driverlog/internal/permission"
	"backend-driverlog/internal/position"
	"backend-driverlog/internal/session"
	"backend-driverlog/internal/store"
	"backend-driverlog/internal/stream"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var (
	traceFlag = flag.String("trace", "", "GPX trace file to replay")
	ownerFlag = flag.String("owner", "", "owner id for remote persistence")
	rateFlag  = flag.Duration("rate", time.Second, "interval between replayed samples")
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	connectSQLite   func(config.Config) (*sql.DB, error)
	loadTrace       func(string) ([]position.Sample, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, *sql.DB, []position.Sample, string, time.Duration, <-chan os.Signal) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		connectSQLite:   db.ConnectSQLite,
		loadTrace:       position.LoadGPX,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	flag.Parse()

	cfg := deps.loadConfig()

	if *traceFlag == "" {
		log.Printf("missing -trace file")
		return
	}
	samples, err := deps.loadTrace(*traceFlag)
	if err != nil {
		log.Printf("trace load failed: %v", err)
		return
	}

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Printf("postgres connection failed: %v", err)
	}

	rdb := deps.connectRedis(cfg)

	localDB, err := deps.connectSQLite(cfg)
	if err != nil {
		log.Printf("local store unavailable: %v", err)
		return
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, localDB, samples, *ownerFlag, *rateFlag, signals); err != nil {
		log.Printf("recorder exited with error: %v", err)
	}
}

// grantedPlatform stands in for the device permission API: running the
// recorder from a shell is the consent.
type grantedPlatform struct{}

func (grantedPlatform) Status(context.Context) (permission.Status, error) {
	return permission.Granted, nil
}

func (grantedPlatform) Request(context.Context) (permission.Status, error) {
	return permission.Granted, nil
}

// Run replays the trace through the recording engine, then stops and saves.
// An interrupt mid-replay saves whatever was captured so far.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, localDB *sql.DB, samples []position.Sample, owner string, rate time.Duration, signals <-chan os.Signal) error {
	defer func() {
		if pg != nil {
			pg.Close()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
		if localDB != nil {
			_ = localDB.Close()
		}
	}()

	var remote session.Store
	if pg != nil {
		remote = store.NewPostgres(pg)
	}
	local, err := store.NewLocal(localDB)
	if err != nil {
		return err
	}

	gate := permission.NewGate(grantedPlatform{}, time.Duration(cfg.PermissionTimeoutMs)*time.Millisecond)
	replay := position.NewReplay(samples, rate)

	ctrl := session.NewController(session.ControllerConfig{
		Gate:           gate,
		Source:         replay,
		Filter:         position.NewFilter(cfg.AccuracyLimitM, cfg.JumpLimitKm),
		Remote:         remote,
		Local:          local,
		Broadcaster:    stream.NewHub(rdb),
		SyncInterval:   time.Duration(cfg.SyncIntervalMs) * time.Millisecond,
		SyncDistanceKm: cfg.SyncDistanceKm,
		WatchOptions: position.WatchOptions{
			HighAccuracy: true,
			FixTimeout:   time.Duration(cfg.FixTimeoutMs) * time.Millisecond,
		},
	})

	if err := ctrl.Start(ctx, owner); err != nil {
		return err
	}

	select {
	case <-replay.Done():
	case <-signals:
		log.Printf("interrupted, saving partial trip")
	case <-ctx.Done():
	}

	if err := ctrl.Stop(); err != nil {
		return err
	}
	if err := ctrl.Save(ctx); err != nil {
		return err
	}

	trip := ctrl.Trip()
	log.Printf("trip %s saved: %.2f km in %ds (%d samples, %d accepted)",
		trip.ID, trip.DistanceKm, trip.DurationSeconds, len(trip.Trace), ctrl.AcceptedCount())
	return nil
}
