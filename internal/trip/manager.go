package trip

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/location"
	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	"github.com/willrad86/auditproof-mileage/internal/spatial"
)

// Manager drives the manual trip lifecycle: none -> active -> completed.
// The local store is ground truth for every transition; address resolution
// degrades to offline fallbacks and never blocks a transition.
type Manager struct {
	trips    *repository.TripRepository
	vehicles *repository.VehicleRepository
	settings *repository.SettingsRepository
	provider location.Provider
	resolver *geocode.Service

	// now is injectable for deterministic tests.
	now func() time.Time

	mu       sync.Mutex
	tracking *tracking
}

// tracking holds the background sampling registration for the trip this
// manager currently owns.
type tracking struct {
	tripID string
	sub    location.Subscription
	done   chan struct{}
}

// NewManager creates a trip lifecycle manager.
func NewManager(
	trips *repository.TripRepository,
	vehicles *repository.VehicleRepository,
	settings *repository.SettingsRepository,
	provider location.Provider,
	resolver *geocode.Service,
) *Manager {
	return &Manager{
		trips:    trips,
		vehicles: vehicles,
		settings: settings,
		provider: provider,
		resolver: resolver,
		now:      time.Now,
	}
}

// Start begins a manual trip for the vehicle. It fails with
// PERMISSION_DENIED when foreground location permission is missing and with
// CONFLICT when another trip is already active; neither failure mutates any
// state. On success the trip is persisted as active, seeded with the current
// position, and continuous background sampling begins.
func (m *Manager) Start(ctx context.Context, vehicleID, purpose, notes string) (*models.Trip, error) {
	if !m.provider.Permissions().Foreground {
		return nil, apperr.New(apperr.CodePermissionDenied, "location permission not granted")
	}

	active, err := m.trips.GetActiveTrip()
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.Newf(apperr.CodeConflict, "trip %s is already active", active.ID)
	}

	if _, err := m.vehicles.GetByID(vehicleID); err != nil {
		return nil, err
	}

	sample, err := m.provider.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire position: %w", err)
	}

	start := sample.Coordinate
	if start.Timestamp == 0 {
		start.Timestamp = m.now().UnixMilli()
	}

	trip := &models.Trip{
		VehicleID:      vehicleID,
		StartTime:      start.Timestamp,
		StartLat:       start.Latitude,
		StartLon:       start.Longitude,
		Purpose:        purpose,
		Notes:          notes,
		StartAddress:   m.resolver.ResolveOnCapture(ctx, start),
		Status:         models.TripStatusActive,
		Classification: models.ClassificationBusiness,
	}

	if err := m.trips.Create(trip); err != nil {
		return nil, err
	}

	if err := m.beginTracking(trip.ID); err != nil {
		log.Errorf("[TripManager] background sampling unavailable for trip %s: %v", trip.ID, err)
	}

	log.Infof("[TripManager] started trip %s for vehicle %s", trip.ID, vehicleID)
	return m.trips.GetByID(trip.ID)
}

// beginTracking registers with the background sampling mechanism and feeds
// every sample through AddPoint. Callback errors are logged and sampling
// continues.
func (m *Manager) beginTracking(tripID string) error {
	sub, err := m.provider.Subscribe()
	if err != nil {
		return err
	}

	t := &tracking{tripID: tripID, sub: sub, done: make(chan struct{})}

	m.mu.Lock()
	m.tracking = t
	m.mu.Unlock()

	go func() {
		defer close(t.done)
		for sample := range sub.Samples() {
			if err := m.AddPoint(context.Background(), tripID, sample.Coordinate); err != nil {
				log.Errorf("[TripManager] failed to record sample for trip %s: %v", tripID, err)
			}
		}
	}()

	return nil
}

// stopTracking cancels the sampling registration for tripID, if owned, and
// waits for the feed goroutine to drain so no append races the finalize read.
func (m *Manager) stopTracking(tripID string) {
	m.mu.Lock()
	t := m.tracking
	if t == nil || t.tripID != tripID {
		m.mu.Unlock()
		return
	}
	m.tracking = nil
	m.mu.Unlock()

	t.sub.Cancel()
	<-t.done
}

// Stop finalizes an active trip: cancels sampling, appends the final
// position, recomputes both distances from the full point sequence, resolves
// the end address (fallback-tolerant), seals the content hash, and persists
// the completion as a single atomic update.
func (m *Manager) Stop(ctx context.Context, tripID string) (*models.Trip, error) {
	trip, err := m.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsActive() {
		return nil, apperr.Newf(apperr.CodeInvalidState, "trip %s is not active", tripID)
	}

	// Cancel the sampling registration before the finalize read so no
	// further points arrive behind our back.
	m.stopTracking(tripID)

	// Re-read: the sampler may have appended between the first read and the
	// cancellation taking effect.
	trip, err = m.trips.GetByID(tripID)
	if err != nil {
		return nil, err
	}

	end := trip.LastPoint()
	if sample, err := m.provider.Current(ctx); err == nil {
		end = sample.Coordinate
	}
	if end.Timestamp == 0 {
		end.Timestamp = m.now().UnixMilli()
	}

	done, err := Complete(ctx, m.trips, m.resolver, trip, end)
	if err != nil {
		return nil, err
	}

	m.touchVehicleMonth(trip.VehicleID, trip.StartTime)

	log.Infof("[TripManager] completed trip %s: %.2f mi over %d points",
		tripID, done.DistanceMiles, len(done.Points))
	return done, nil
}

// AddPoint appends a sample to an active trip's path and recomputes both
// distances from the full sequence. It no-ops silently when the trip no
// longer exists or is no longer active; a sample racing a concurrent stop is
// an accepted outcome, not an error.
func (m *Manager) AddPoint(ctx context.Context, tripID string, coord models.Coordinate) error {
	trip, err := m.trips.GetByID(tripID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if !trip.IsActive() {
		return nil
	}

	if coord.Timestamp == 0 {
		coord.Timestamp = m.now().UnixMilli()
	}

	points := append(trip.Points, coord)
	miles := spatial.TotalDistance(points, spatial.Miles)
	km := spatial.TotalDistance(points, spatial.Kilometers)

	err = m.trips.Update(tripID, models.TripUpdate{
		Points:        &points,
		DistanceMiles: &miles,
		DistanceKm:    &km,
	})
	if err != nil && apperr.IsNotFound(err) {
		return nil
	}
	return err
}

// Classify updates a trip's classification. Always legal regardless of
// status; never touches distance or hash.
func (m *Manager) Classify(tripID, classification string) error {
	if !models.ValidClassification(classification) {
		return apperr.Newf(apperr.CodeInvalidState, "unknown classification %q", classification)
	}
	return m.trips.Update(tripID, models.TripUpdate{Classification: &classification})
}

// Reimbursement computes the monetary value of a distance at the configured
// per-mile rate.
func (m *Manager) Reimbursement(distanceMiles float64) (float64, error) {
	rate, err := m.settings.RatePerMile()
	if err != nil {
		return 0, err
	}
	return distanceMiles * rate, nil
}

// touchVehicleMonth stamps the vehicle's most recently used billing month.
// Failures are logged; the completed trip is already durable.
func (m *Manager) touchVehicleMonth(vehicleID string, startTime int64) {
	monthYear := time.UnixMilli(startTime).UTC().Format("2006-01")
	if err := m.vehicles.Update(vehicleID, models.VehicleUpdate{MonthYear: &monthYear}); err != nil {
		log.Errorf("[TripManager] failed to touch month for vehicle %s: %v", vehicleID, err)
	}
}
