package autodetect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willrad86/auditproof-mileage/internal/database"
	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/location"
	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
)

const (
	second = int64(1000)
	minute = 60 * second
	t0     = int64(1700000000000)
)

type fakeGeocoder struct {
	offline bool
}

func (f *fakeGeocoder) Reverse(_ context.Context, lat, lon float64) (string, error) {
	if f.offline {
		return "", errors.New("network unreachable")
	}
	return fmt.Sprintf("resolved near %.3f,%.3f", lat, lon), nil
}

func (f *fakeGeocoder) Forward(_ context.Context, _ string) (models.Coordinate, error) {
	if f.offline {
		return models.Coordinate{}, errors.New("network unreachable")
	}
	return models.Coordinate{Latitude: 40.7128, Longitude: -74.0060}, nil
}

type fixture struct {
	db       *sql.DB
	trips    *repository.TripRepository
	vehicles *repository.VehicleRepository
	provider *location.SimulatedProvider
	engine   *Engine
	vehicle  *models.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db).RunMigrations())

	f := &fixture{
		db:       db,
		trips:    repository.NewTripRepository(db),
		vehicles: repository.NewVehicleRepository(db),
		provider: location.NewSimulatedProvider(location.Permissions{Foreground: true, Background: true}),
	}
	trips := f.trips
	f.engine = NewEngine(DefaultConfig(), trips, f.vehicles, f.provider,
		geocode.NewService(&fakeGeocoder{}, trips))

	f.vehicle = &models.Vehicle{Make: "Toyota", Model: "Tacoma", Year: 2019}
	require.NoError(t, f.vehicles.Create(f.vehicle))

	t.Cleanup(func() { f.engine.Disable(context.Background()) })
	return f
}

func (f *fixture) emit(lat, lon, mph float64, ts int64) {
	f.provider.Emit(location.Sample{
		Coordinate: models.Coordinate{Latitude: lat, Longitude: lon, Timestamp: ts},
		SpeedMPH:   mph,
	})
}

// waitState blocks until the machine settles in want, so emissions and
// assertions cannot race the sample goroutine.
func (f *fixture) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.engine.CurrentState() == want
	}, 2*time.Second, 5*time.Millisecond, "expected state %s", want)
}

func (f *fixture) autoTrip(t *testing.T) *models.Trip {
	t.Helper()
	var found *models.Trip
	require.Eventually(t, func() bool {
		resp, err := f.trips.GetTrips(models.TripFilter{VehicleID: f.vehicle.ID})
		if err != nil {
			return false
		}
		for i := range resp.Trips {
			if resp.Trips[i].AutoDetected {
				found = &resp.Trips[i]
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return found
}

func TestEnablePreconditions(t *testing.T) {
	f := newFixture(t)

	f.provider.SetPermissions(location.Permissions{Foreground: true})
	assert.False(t, f.engine.Enable(context.Background()), "background permission required")

	f.provider.SetPermissions(location.Permissions{Foreground: true, Background: true})
	require.NoError(t, f.vehicles.Delete(f.vehicle.ID))
	assert.False(t, f.engine.Enable(context.Background()), "a registered vehicle is required")

	require.NoError(t, f.vehicles.Create(&models.Vehicle{Make: "Ford", Model: "F-150", Year: 2021}))
	assert.True(t, f.engine.Enable(context.Background()))
	assert.True(t, f.engine.Enable(context.Background()), "enable is idempotent")
	assert.True(t, f.engine.Enabled())
}

// Sustained driving speed creates a trip, and a sustained stop completes it
// with the last recorded position as the endpoint.
func TestDetectsAndFinalizesTrip(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.engine.Enable(context.Background()))

	// Twelve seconds at 15 mph, sampled once per second. The start dwell is
	// ten seconds, so the trip commits at the eleventh sample.
	lat := 40.0
	for i := int64(0); i <= 12; i++ {
		f.emit(lat+float64(i)*0.0001, -74.0, 15, t0+i*second)
	}
	f.waitState(t, StateTripActive)

	trip := f.autoTrip(t)
	assert.True(t, trip.AutoDetected)
	assert.Equal(t, models.ClassificationUnclassified, trip.Classification)
	assert.Equal(t, models.TripStatusActive, trip.Status)
	// Seeded at the dwell-met sample, not the first acceleration sample.
	assert.InDelta(t, 40.0010, trip.StartLat, 1e-9)
	assert.EqualValues(t, t0+10*second, trip.StartTime)

	// Four minutes below the stop threshold, sampled every thirty seconds.
	// The idle dwell is three minutes.
	endLat, endLon := 40.0020, -74.0005
	for i := int64(0); i <= 8; i++ {
		f.emit(endLat, endLon, 1, t0+13*second+i*30*second)
	}
	f.waitState(t, StateIdle)

	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, got.Status)
	require.NotNil(t, got.EndLat)
	assert.Equal(t, endLat, *got.EndLat)
	assert.Equal(t, endLon, *got.EndLon)
	require.NotNil(t, got.Hash)
	assert.NotEmpty(t, *got.Hash)
	assert.Greater(t, got.DistanceMiles, 0.0)
	// The finalizing sample is recorded exactly once.
	require.GreaterOrEqual(t, len(got.Points), 2)
	last, prev := got.Points[len(got.Points)-1], got.Points[len(got.Points)-2]
	assert.NotEqual(t, prev, last)
}

func TestFalseStartCreatesNothing(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.engine.Enable(context.Background()))

	// Five seconds at speed, short of the ten-second dwell.
	for i := int64(0); i < 5; i++ {
		f.emit(40.0, -74.0, 15, t0+i*second)
	}
	f.waitState(t, StateAccelerating)

	f.emit(40.0, -74.0, 0, t0+5*second)
	f.waitState(t, StateIdle)

	resp, err := f.trips.GetTrips(models.TripFilter{VehicleID: f.vehicle.ID})
	require.NoError(t, err)
	assert.Empty(t, resp.Trips)
}

func TestBriefStopContinuesTrip(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.engine.Enable(context.Background()))

	for i := int64(0); i <= 10; i++ {
		f.emit(40.0, -74.0, 20, t0+i*second)
	}
	f.waitState(t, StateTripActive)
	trip := f.autoTrip(t)

	// A one-minute stop, well under the three-minute idle dwell.
	f.emit(40.001, -74.0, 1, t0+11*second)
	f.waitState(t, StateDecelerating)
	f.emit(40.001, -74.0, 1, t0+11*second+minute)
	f.emit(40.002, -74.0, 20, t0+12*second+minute)
	f.waitState(t, StateTripActive)

	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusActive, got.Status, "the stop at a light does not end the trip")

	resp, err := f.trips.GetTrips(models.TripFilter{VehicleID: f.vehicle.ID})
	require.NoError(t, err)
	assert.Len(t, resp.Trips, 1)
}

func TestYieldsToManualActiveTrip(t *testing.T) {
	f := newFixture(t)

	manual := &models.Trip{
		VehicleID: f.vehicle.ID, StartTime: t0,
		StartLat: 40.0, StartLon: -74.0,
		Status: models.TripStatusActive,
	}
	require.NoError(t, f.trips.Create(manual))

	require.True(t, f.engine.Enable(context.Background()))
	// Dwell is met at the eleventh sample; the engine must yield, not
	// start a second concurrent trip.
	for i := int64(0); i <= 10; i++ {
		f.emit(40.0, -74.0, 15, t0+i*second)
	}
	f.waitState(t, StateIdle)

	resp, err := f.trips.GetTrips(models.TripFilter{VehicleID: f.vehicle.ID})
	require.NoError(t, err)
	require.Len(t, resp.Trips, 1)
	assert.False(t, resp.Trips[0].AutoDetected)
}

func TestDisableMidTripFinalizes(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.engine.Enable(context.Background()))

	for i := int64(0); i <= 10; i++ {
		f.emit(40.0+float64(i)*0.001, -74.0, 25, t0+i*second)
	}
	f.waitState(t, StateTripActive)
	trip := f.autoTrip(t)

	last := models.Coordinate{Latitude: 40.015, Longitude: -74.0, Timestamp: t0 + 11*second}
	f.emit(last.Latitude, last.Longitude, 25, last.Timestamp)
	require.Eventually(t, func() bool {
		got, err := f.trips.GetByID(trip.ID)
		return err == nil && len(got.Points) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	f.engine.Disable(context.Background())
	assert.False(t, f.engine.Enabled())

	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, got.Status)
	require.NotNil(t, got.EndLat)
	assert.Equal(t, last.Latitude, *got.EndLat)
	require.NotNil(t, got.Hash)
}

func TestExternallyDeletedTripResets(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.engine.Enable(context.Background()))

	for i := int64(0); i <= 10; i++ {
		f.emit(40.0, -74.0, 15, t0+i*second)
	}
	f.waitState(t, StateTripActive)
	trip := f.autoTrip(t)

	require.NoError(t, f.trips.Delete(trip.ID))

	f.emit(40.001, -74.0, 15, t0+11*second)
	f.waitState(t, StateIdle)

	// Once re-armed, a fresh driving pattern starts a new trip.
	for i := int64(0); i <= 11; i++ {
		f.emit(41.0, -75.0, 15, t0+minute+i*second)
	}
	f.waitState(t, StateTripActive)
	fresh := f.autoTrip(t)
	assert.NotEqual(t, trip.ID, fresh.ID)
	assert.InDelta(t, 41.0, fresh.StartLat, 1e-9)
}

func TestActiveDistanceGrows(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.engine.Enable(context.Background()))

	for i := int64(0); i <= 10; i++ {
		f.emit(40.0, -74.0, 30, t0+i*second)
	}
	f.waitState(t, StateTripActive)
	trip := f.autoTrip(t)

	lat := 40.0
	for i := int64(1); i <= 30; i++ {
		lat += 0.0005
		f.emit(lat, -74.0, 30, t0+(10+i)*second)
	}
	require.Eventually(t, func() bool {
		got, err := f.trips.GetByID(trip.ID)
		return err == nil && len(got.Points) >= 31
	}, 2*time.Second, 5*time.Millisecond)

	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.Greater(t, got.DistanceMiles, 0.9)
	// Thirty half-millidegree steps north, just over a mile.
	assert.InDelta(t, 30*0.0005*69.095, got.DistanceMiles, 0.02)
	assert.InDelta(t, got.DistanceMiles*6371.0/3958.8, got.DistanceKm, 0.01)
}
