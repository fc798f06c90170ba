package autodetect

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/location"
	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	"github.com/willrad86/auditproof-mileage/internal/spatial"
	"github.com/willrad86/auditproof-mileage/internal/trip"
)

// State of the detection machine.
type State int

const (
	StateIdle State = iota
	StateAccelerating
	StateTripActive
	StateDecelerating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccelerating:
		return "accelerating"
	case StateTripActive:
		return "tripActive"
	case StateDecelerating:
		return "decelerating"
	}
	return "unknown"
}

// Config holds the detection thresholds.
type Config struct {
	// StartSpeedMPH is the speed at which driving is suspected.
	StartSpeedMPH float64
	// StopSpeedMPH is the speed below which the idle dwell clock runs.
	StopSpeedMPH float64
	// StartDwell is how long speed must stay above StartSpeedMPH before a
	// trip is committed.
	StartDwell time.Duration
	// IdleDwell is how long speed must stay below StopSpeedMPH before the
	// trip is finalized.
	IdleDwell time.Duration
	// RecomputeEvery is the drift-correction cadence: a full distance
	// recompute replaces the incremental figure every N appended points.
	RecomputeEvery int
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		StartSpeedMPH:  10,
		StopSpeedMPH:   3,
		StartDwell:     10 * time.Second,
		IdleDwell:      3 * time.Minute,
		RecomputeEvery: 25,
	}
}

// Engine is the speed-threshold trip detector. While enabled it consumes the
// background position stream and autonomously starts and finalizes trips.
// All sample handling runs on a single goroutine; Enable and Disable
// synchronize with it through the subscription.
type Engine struct {
	cfg      Config
	trips    *repository.TripRepository
	vehicles *repository.VehicleRepository
	provider location.Provider
	resolver *geocode.Service

	now func() time.Time

	mu      sync.Mutex
	enabled bool
	sub     location.Subscription
	done    chan struct{}

	// State below is owned by the sample goroutine while enabled, and by
	// Disable during teardown.
	state          State
	vehicleID      string
	tripID         string
	lastPoint      models.Coordinate
	accelSince     int64
	decelSince     int64
	sinceRecompute int
}

// NewEngine creates an auto-detection engine with the given thresholds.
func NewEngine(
	cfg Config,
	trips *repository.TripRepository,
	vehicles *repository.VehicleRepository,
	provider location.Provider,
	resolver *geocode.Service,
) *Engine {
	if cfg.RecomputeEvery <= 0 {
		cfg.RecomputeEvery = DefaultConfig().RecomputeEvery
	}
	return &Engine{
		cfg:      cfg,
		trips:    trips,
		vehicles: vehicles,
		provider: provider,
		resolver: resolver,
		now:      time.Now,
	}
}

// Enable starts background detection. It returns false, without error, when
// foreground or background location permission is missing or no vehicle is
// registered, so the caller can present a remediation prompt. Auto-detected
// trips are attributed to the first registered vehicle.
func (e *Engine) Enable(ctx context.Context) bool {
	perms := e.provider.Permissions()
	if !perms.Foreground || !perms.Background {
		log.Warnf("[AutoDetect] enable refused: location permissions missing (fg=%v bg=%v)",
			perms.Foreground, perms.Background)
		return false
	}

	vehicles, err := e.vehicles.List()
	if err != nil {
		log.Errorf("[AutoDetect] enable refused: %v", err)
		return false
	}
	if len(vehicles) == 0 {
		log.Warn("[AutoDetect] enable refused: no vehicle registered")
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.enabled {
		return true
	}

	sub, err := e.provider.Subscribe()
	if err != nil {
		log.Errorf("[AutoDetect] enable refused: %v", err)
		return false
	}

	e.enabled = true
	e.sub = sub
	e.done = make(chan struct{})
	e.state = StateIdle
	e.vehicleID = vehicles[0].ID
	e.tripID = ""

	go e.run(sub, e.done)

	log.Infof("[AutoDetect] enabled for vehicle %s", e.vehicleID)
	return true
}

// Disable tears down detection. An in-progress trip is finalized first: no
// trip is ever abandoned in a non-terminal state.
func (e *Engine) Disable(ctx context.Context) {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	e.enabled = false
	sub := e.sub
	done := e.done
	e.sub = nil
	e.mu.Unlock()

	// Cancel the sampling registration, then wait for the goroutine so no
	// sample races the forced finalization below.
	sub.Cancel()
	<-done

	if e.state == StateTripActive || e.state == StateDecelerating {
		e.finalize(ctx, e.lastPoint)
	}
	e.state = StateIdle

	log.Info("[AutoDetect] disabled")
}

// Enabled reports whether detection is currently running.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// CurrentState returns the machine state, for diagnostics.
func (e *Engine) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) run(sub location.Subscription, done chan struct{}) {
	defer close(done)
	for sample := range sub.Samples() {
		e.handleSample(context.Background(), sample)
	}
}

// handleSample advances the state machine by one sample. Errors are logged
// and sampling continues; a failing callback never disables detection.
func (e *Engine) handleSample(ctx context.Context, sample location.Sample) {
	coord := sample.Coordinate
	if coord.Timestamp == 0 {
		coord.Timestamp = e.now().UnixMilli()
	}

	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	var next State
	switch state {
	case StateIdle:
		next = e.onIdle(coord, sample.SpeedMPH)
	case StateAccelerating:
		next = e.onAccelerating(ctx, coord, sample.SpeedMPH)
	case StateTripActive:
		next = e.onTripActive(ctx, coord, sample.SpeedMPH)
	case StateDecelerating:
		next = e.onDecelerating(ctx, coord, sample.SpeedMPH)
	default:
		next = StateIdle
	}

	e.mu.Lock()
	if next != e.state {
		log.Debugf("[AutoDetect] %s -> %s at %.1f mph", e.state, next, sample.SpeedMPH)
		e.state = next
	}
	e.lastPoint = coord
	e.mu.Unlock()
}

func (e *Engine) onIdle(coord models.Coordinate, speed float64) State {
	if speed >= e.cfg.StartSpeedMPH {
		e.accelSince = coord.Timestamp
		return StateAccelerating
	}
	return StateIdle
}

func (e *Engine) onAccelerating(ctx context.Context, coord models.Coordinate, speed float64) State {
	if speed < e.cfg.StartSpeedMPH {
		// False start; nothing was created, nothing to discard.
		return StateIdle
	}

	if coord.Timestamp-e.accelSince < e.cfg.StartDwell.Milliseconds() {
		return StateAccelerating
	}

	// Dwell met: commit a trip seeded at the current sample so only
	// confirmed-driving geometry enters the path.
	active, err := e.trips.GetActiveTrip()
	if err != nil {
		log.Errorf("[AutoDetect] active-trip check failed: %v", err)
		return StateAccelerating
	}
	if active != nil {
		// A manual trip owns the lifecycle; yield and re-arm.
		log.Infof("[AutoDetect] yielding to active trip %s", active.ID)
		return StateIdle
	}

	t := &models.Trip{
		VehicleID:      e.vehicleID,
		StartTime:      coord.Timestamp,
		StartLat:       coord.Latitude,
		StartLon:       coord.Longitude,
		StartAddress:   e.resolver.ResolveOnCapture(ctx, coord),
		Status:         models.TripStatusActive,
		Classification: models.ClassificationUnclassified,
		AutoDetected:   true,
	}
	if err := e.trips.Create(t); err != nil {
		log.Errorf("[AutoDetect] failed to create trip: %v", err)
		return StateAccelerating
	}

	e.tripID = t.ID
	e.sinceRecompute = 0
	log.Infof("[AutoDetect] detected trip %s for vehicle %s", t.ID, e.vehicleID)
	return StateTripActive
}

func (e *Engine) onTripActive(ctx context.Context, coord models.Coordinate, speed float64) State {
	if !e.appendPoint(coord) {
		// Trip was stopped or deleted externally; re-arm.
		e.tripID = ""
		return StateIdle
	}

	if speed < e.cfg.StopSpeedMPH {
		e.decelSince = coord.Timestamp
		return StateDecelerating
	}
	return StateTripActive
}

func (e *Engine) onDecelerating(ctx context.Context, coord models.Coordinate, speed float64) State {
	if !e.appendPoint(coord) {
		e.tripID = ""
		return StateIdle
	}

	if speed >= e.cfg.StopSpeedMPH {
		// Brief stop, e.g. a traffic light; the trip continues uninterrupted.
		return StateTripActive
	}

	if coord.Timestamp-e.decelSince >= e.cfg.IdleDwell.Milliseconds() {
		e.finalize(ctx, coord)
		return StateIdle
	}
	return StateDecelerating
}

// appendPoint appends coord to the tracked trip, extending the distance by
// the last-segment delta. Every RecomputeEvery points the incremental figure
// is replaced by a full recompute to correct floating-point drift. Returns
// false when the trip is gone or no longer active.
func (e *Engine) appendPoint(coord models.Coordinate) bool {
	t, err := e.trips.GetByID(e.tripID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			log.Errorf("[AutoDetect] failed to load trip %s: %v", e.tripID, err)
		}
		return false
	}
	if !t.IsActive() {
		return false
	}

	last := t.LastPoint()
	points := append(t.Points, coord)

	var miles, km float64
	e.sinceRecompute++
	if e.sinceRecompute >= e.cfg.RecomputeEvery {
		miles = spatial.TotalDistance(points, spatial.Miles)
		km = spatial.TotalDistance(points, spatial.Kilometers)
		e.sinceRecompute = 0
	} else {
		miles = t.DistanceMiles + spatial.Distance(last, coord, spatial.Miles)
		km = t.DistanceKm + spatial.Distance(last, coord, spatial.Kilometers)
	}

	err = e.trips.Update(e.tripID, models.TripUpdate{
		Points:        &points,
		DistanceMiles: &miles,
		DistanceKm:    &km,
	})
	if err != nil {
		if !apperr.IsNotFound(err) {
			log.Errorf("[AutoDetect] failed to record sample for trip %s: %v", e.tripID, err)
			return true
		}
		return false
	}
	return true
}

// finalize completes the tracked trip using end as its final point. It is
// the same completion work as a manual stop.
func (e *Engine) finalize(ctx context.Context, end models.Coordinate) {
	if e.tripID == "" {
		return
	}

	t, err := e.trips.GetByID(e.tripID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			log.Errorf("[AutoDetect] failed to load trip %s for finalization: %v", e.tripID, err)
		}
		e.tripID = ""
		return
	}
	if !t.IsActive() {
		e.tripID = ""
		return
	}

	done, err := trip.Complete(ctx, e.trips, e.resolver, t, end)
	if err != nil {
		log.Errorf("[AutoDetect] failed to finalize trip %s: %v", e.tripID, err)
		return
	}

	log.Infof("[AutoDetect] finalized trip %s: %.2f mi over %d points",
		done.ID, done.DistanceMiles, len(done.Points))
	e.tripID = ""
}
