package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"backend-driverlog/internal/permission"
	"backend-driverlog/internal/position"

	"github.com/google/uuid"
)

// ControllerConfig wires the engine's collaborators. Remote may be nil when no
// backend is reachable; Local is the fallback for sessions without an owner
// identity.
type ControllerConfig struct {
	Gate           *permission.Gate
	Source         position.Source
	Filter         position.Filter
	Remote         Store
	Local          Store
	Broadcaster    Broadcaster
	Classifier     Classifier
	SyncInterval   time.Duration
	SyncDistanceKm float64
	WatchOptions   position.WatchOptions
}

// Controller is the trip lifecycle state machine: Idle -> Pending -> Active ->
// {Finalized | Discarded}. It owns the session identity, the trace buffer, and
// the subscriptions to the position stream and the 1 Hz clock. Exactly one
// session is active per controller.
type Controller struct {
	gate        *permission.Gate
	source      position.Source
	filter      position.Filter
	remote      Store
	local       Store
	broadcaster Broadcaster
	classifier  Classifier
	watchOpts   position.WatchOptions

	clock *ElapsedTracker
	acc   *Accumulator
	sched *SyncScheduler
	now   func() time.Time

	mu            sync.Mutex
	trip          *Trip
	store         Store
	sub           position.Subscription
	tracking      bool
	lastAccepted  *position.Sample
	acceptedCount int
	remoteCreated bool
	streamErr     error
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.Classifier == nil {
		cfg.Classifier = NewHeuristicClassifier()
	}
	if cfg.Filter == (position.Filter{}) {
		cfg.Filter = position.NewFilter(0, 0)
	}
	c := &Controller{
		gate:        cfg.Gate,
		source:      cfg.Source,
		filter:      cfg.Filter,
		remote:      cfg.Remote,
		local:       cfg.Local,
		broadcaster: cfg.Broadcaster,
		classifier:  cfg.Classifier,
		watchOpts:   cfg.WatchOptions,
		clock:       NewElapsedTracker(),
		acc:         &Accumulator{},
		now:         time.Now,
	}
	c.sched = NewSyncScheduler(cfg.SyncInterval, cfg.SyncDistanceKm, c.flushRemote)
	return c
}

// Start acquires permission, opens the position stream, and creates a Pending
// session. With an owner identity the remote record is created asynchronously;
// tracking proceeds even while that create is outstanding, and flushes are
// no-ops until it lands.
func (c *Controller) Start(ctx context.Context, ownerID string) error {
	c.mu.Lock()
	if c.trip != nil && (c.trip.State == StatePending || c.trip.State == StateActive) {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.mu.Unlock()

	switch c.gate.QueryStatus(ctx) {
	case permission.Denied:
		return ErrPermissionDenied
	case permission.Prompt:
		if c.gate.RequestAccess(ctx) != permission.Granted {
			return ErrPermissionDenied
		}
	}
	// Granted, or Unsupported: open the stream optimistically and let the
	// subscription attempt decide.

	now := c.now()
	trip := &Trip{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		StartedAt: now,
		IsNight:   now.Hour() < 6 || now.Hour() > 18,
		State:     StatePending,
	}

	c.mu.Lock()
	c.trip = trip
	c.tracking = true
	c.lastAccepted = nil
	c.acceptedCount = 0
	c.remoteCreated = false
	c.streamErr = nil
	if ownerID != "" && c.remote != nil {
		c.store = c.remote
	} else {
		c.store = c.local
	}
	c.mu.Unlock()

	c.acc.Reset()
	c.clock.Reset()
	c.sched.Reset(now)

	sub, err := c.source.Watch(c.handleSample, c.handleStreamError, c.watchOpts)
	if err != nil {
		c.mu.Lock()
		c.trip = nil
		c.tracking = false
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrStreamUnsupported, err)
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()

	c.clock.Start(c.onTick)

	if ownerID != "" && c.remote != nil {
		snapshot := c.tripSnapshot()
		go func() {
			if err := c.remote.Create(context.Background(), snapshot); err != nil {
				log.Printf("remote trip create failed: %v", err)
				return
			}
			c.mu.Lock()
			c.remoteCreated = true
			c.mu.Unlock()
		}()
	}
	return nil
}

// handleSample runs on the position source's goroutine for every fix, in
// arrival order.
func (c *Controller) handleSample(s position.Sample) {
	c.mu.Lock()
	if !c.tracking || c.trip == nil {
		c.mu.Unlock()
		return
	}

	d := c.filter.Accept(c.lastAccepted, s)
	// Rejected fixes still enter the trace so the recorded path stays
	// visually complete; they just never contribute distance.
	c.trip.Trace = append(c.trip.Trace, s)
	if d.Accepted {
		accepted := s
		c.lastAccepted = &accepted
		c.acceptedCount++
		if c.trip.State == StatePending {
			c.trip.State = StateActive
		}
		if err := c.acc.Add(d.IncrementKm); err != nil {
			log.Printf("distance increment dropped: %v", err)
		} else {
			c.trip.DistanceKm = c.acc.Km()
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.sched.OnSample(d.IncrementKm)
	c.publish(snap)
}

// handleStreamError keeps the session alive in degraded mode: the trace and
// timer continue, and the user can still stop and save what was captured.
func (c *Controller) handleStreamError(err error) {
	log.Printf("position stream error: %v", err)
	c.mu.Lock()
	c.streamErr = err
	c.mu.Unlock()
}

func (c *Controller) onTick(seconds int64) {
	c.mu.Lock()
	if c.trip == nil || !c.tracking {
		c.mu.Unlock()
		return
	}
	c.trip.ElapsedSeconds = seconds
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

// Stop halts the position stream and the timer without finalizing; the session
// stays in memory awaiting Save or Discard. No callback fires after Stop
// returns.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.trip == nil || !c.tracking {
		c.mu.Unlock()
		return ErrNoSession
	}
	c.tracking = false
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	c.clock.Stop()
	return nil
}

// Save finalizes the session: derives duration and route classification, then
// performs one synchronous final write. Remote sessions update the existing
// record, or create it in one shot if the async create never landed; sessions
// without an owner identity go to the local store instead. A failed write
// leaves the session un-finalized so Save can be retried.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.trip == nil || c.trip.State == StateFinalized || c.trip.State == StateDiscarded {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.acceptedCount == 0 {
		c.mu.Unlock()
		return ErrEmptySession
	}
	tracking := c.tracking
	c.mu.Unlock()

	if tracking {
		_ = c.Stop()
	}

	now := c.now()
	c.mu.Lock()
	trip := c.trip
	prevState := trip.State
	trip.EndedAt = now
	trip.DurationSeconds = int64(now.Sub(trip.StartedAt).Seconds())
	trip.ElapsedSeconds = c.clock.Seconds()
	cls := c.classifier.Classify(trip.DistanceKm, now.Sub(trip.StartedAt))
	trip.ManeuverCount = cls.ManeuverCount
	trip.CityPercentage = cls.CityPercentage
	trip.RouteType = cls.RouteType
	trip.State = StateFinalized
	store := c.store
	remoteCreated := c.remoteCreated
	snapshot := c.snapshotTripLocked()
	c.mu.Unlock()

	var err error
	if store == c.remote && c.remote != nil {
		if remoteCreated {
			err = c.sched.FlushSync(ctx)
		} else {
			// The async create may still land later; both writes upsert
			// on the same id, so the late one is harmless.
			err = c.remote.Create(ctx, snapshot)
		}
	} else {
		err = c.local.Create(ctx, snapshot)
	}
	if err != nil {
		// Un-finalize so a retry gets past the state guard.
		c.mu.Lock()
		c.trip.State = prevState
		c.mu.Unlock()
		return err
	}
	return nil
}

// Discard abandons the session. Nothing new is written; an in-flight flush may
// complete but its result is ignored.
func (c *Controller) Discard() error {
	c.mu.Lock()
	if c.trip == nil || c.trip.State == StateFinalized || c.trip.State == StateDiscarded {
		c.mu.Unlock()
		return ErrNoSession
	}
	tracking := c.tracking
	c.mu.Unlock()

	if tracking {
		_ = c.Stop()
	}

	c.mu.Lock()
	c.trip.State = StateDiscarded
	c.trip.EndedAt = c.now()
	c.mu.Unlock()
	return nil
}

// flushRemote pushes the full current session state. It is a no-op until the
// remote record exists, and after a discard.
func (c *Controller) flushRemote(ctx context.Context) error {
	c.mu.Lock()
	if c.trip == nil || !c.remoteCreated || c.store != c.remote || c.trip.State == StateDiscarded {
		c.mu.Unlock()
		return nil
	}
	snapshot := c.snapshotTripLocked()
	c.mu.Unlock()

	return c.remote.Update(ctx, snapshot)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trip == nil {
		return StateIdle
	}
	return c.trip.State
}

func (c *Controller) DistanceKm() float64 {
	return c.acc.Km()
}

func (c *Controller) ElapsedSeconds() int64 {
	return c.clock.Seconds()
}

func (c *Controller) SampleCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trip == nil {
		return 0
	}
	return len(c.trip.Trace)
}

func (c *Controller) AcceptedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acceptedCount
}

func (c *Controller) LastStreamError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamErr
}

func (c *Controller) PermissionStatus(ctx context.Context) permission.Status {
	return c.gate.QueryStatus(ctx)
}

// Trip returns a snapshot of the current session for inspection between Stop
// and Save, or nil when idle.
func (c *Controller) Trip() *Trip {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trip == nil {
		return nil
	}
	return c.snapshotTripLocked()
}

// snapshotTripLocked copies the trip value. The trace slice header is shared:
// entries are never mutated or reordered, so a point-in-time header is a
// stable view.
func (c *Controller) snapshotTripLocked() *Trip {
	cp := *c.trip
	cp.Trace = c.trip.Trace[:len(c.trip.Trace):len(c.trip.Trace)]
	return &cp
}

func (c *Controller) tripSnapshot() *Trip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotTripLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		TripID:         c.trip.ID,
		State:          c.trip.State,
		DistanceKm:     c.trip.DistanceKm,
		ElapsedSeconds: c.clock.Seconds(),
		SampleCount:    len(c.trip.Trace),
		AcceptedCount:  c.acceptedCount,
	}
}

func (c *Controller) publish(snap Snapshot) {
	if c.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	c.broadcaster.Broadcast(snap.TripID, payload)
}
