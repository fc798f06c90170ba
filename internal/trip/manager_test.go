package trip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/database"
	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/location"
	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
)

// oneMileLat is the latitude delta of one statute mile.
const oneMileLat = 1.0 / 69.095

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
	settings *repository.SettingsRepository
	provider *location.SimulatedProvider
	geocoder *fakeGeocoder
	manager  *Manager
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
		settings: repository.NewSettingsRepository(db),
		provider: location.NewSimulatedProvider(location.Permissions{Foreground: true, Background: true}),
		geocoder: &fakeGeocoder{},
	}
	f.manager = NewManager(f.trips, f.vehicles, f.settings, f.provider,
		geocode.NewService(f.geocoder, f.trips))

	f.vehicle = &models.Vehicle{Make: "Honda", Model: "Civic", Year: 2020}
	require.NoError(t, f.vehicles.Create(f.vehicle))

	return f
}

func (f *fixture) emit(lat, lon, mph float64, ts int64) {
	f.provider.Emit(location.Sample{
		Coordinate: models.Coordinate{Latitude: lat, Longitude: lon, Timestamp: ts},
		SpeedMPH:   mph,
	})
}

func TestStartDefaults(t *testing.T) {
	f := newFixture(t)
	f.emit(40.7128, -74.0060, 0, 1700000000000)

	trip, err := f.manager.Start(context.Background(), f.vehicle.ID, "client visit", "")
	require.NoError(t, err)

	assert.Equal(t, models.TripStatusActive, trip.Status)
	assert.Equal(t, models.ClassificationBusiness, trip.Classification)
	assert.False(t, trip.AutoDetected)
	assert.Equal(t, "client visit", trip.Purpose)
	require.Len(t, trip.Points, 1)
	assert.Equal(t, 40.7128, trip.Points[0].Latitude)
	assert.Nil(t, trip.Hash)
}

func TestStartConflictsWithActiveTrip(t *testing.T) {
	f := newFixture(t)
	f.emit(40.7128, -74.0060, 0, 1700000000000)

	_, err := f.manager.Start(context.Background(), f.vehicle.ID, "first", "")
	require.NoError(t, err)

	_, err = f.manager.Start(context.Background(), f.vehicle.ID, "second", "")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	// Store-level active lookup still returns exactly one row.
	active, err := f.trips.GetActiveTrip()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "first", active.Purpose)
}

func TestStartPermissionDeniedCreatesNothing(t *testing.T) {
	f := newFixture(t)
	f.provider.SetPermissions(location.Permissions{})
	f.emit(40.7128, -74.0060, 0, 1700000000000)

	_, err := f.manager.Start(context.Background(), f.vehicle.ID, "p", "")
	require.Error(t, err)
	assert.True(t, apperr.IsPermissionDenied(err))

	active, err := f.trips.GetActiveTrip()
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestStartUnknownVehicle(t *testing.T) {
	f := newFixture(t)
	f.emit(40.7128, -74.0060, 0, 1700000000000)

	_, err := f.manager.Start(context.Background(), "missing", "p", "")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestStraightLineTripDistance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.emit(40.0, -74.0, 0, 1700000000000)
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "client visit", "")
	require.NoError(t, err)

	// Three points one mile apart on a straight line north.
	require.NoError(t, f.manager.AddPoint(ctx, trip.ID, models.Coordinate{
		Latitude: 40.0, Longitude: -74.0, Timestamp: 1700000060000}))
	require.NoError(t, f.manager.AddPoint(ctx, trip.ID, models.Coordinate{
		Latitude: 40.0 + oneMileLat, Longitude: -74.0, Timestamp: 1700000120000}))
	require.NoError(t, f.manager.AddPoint(ctx, trip.ID, models.Coordinate{
		Latitude: 40.0 + 2*oneMileLat, Longitude: -74.0, Timestamp: 1700000180000}))

	// Final position acquisition returns the last point again.
	f.emit(40.0+2*oneMileLat, -74.0, 0, 1700000240000)

	done, err := f.manager.Stop(ctx, trip.ID)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, done.DistanceMiles, 0.01)
	assert.Equal(t, models.TripStatusCompleted, done.Status)
	assert.Equal(t, models.ClassificationBusiness, done.Classification)
	require.NotNil(t, done.Hash)
	assert.NotEmpty(t, *done.Hash)
	require.NotNil(t, done.EndTime)
	assert.EqualValues(t, 1700000240000, *done.EndTime)
	// km figure tracks the mile figure through the unit ratio.
	assert.InDelta(t, done.DistanceMiles*6371.0/3958.8, done.DistanceKm, 1e-6)
}

func TestDistanceMonotonicity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.emit(40.0, -74.0, 0, 1700000000000)
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "p", "")
	require.NoError(t, err)

	prevMiles, prevKm := trip.DistanceMiles, trip.DistanceKm
	deltas := []float64{0.001, 0, 0.002, 0.0005}
	lat := 40.0
	for i, d := range deltas {
		lat += d
		require.NoError(t, f.manager.AddPoint(ctx, trip.ID, models.Coordinate{
			Latitude: lat, Longitude: -74.0, Timestamp: 1700000000000 + int64(i+1)*30000}))

		got, err := f.trips.GetByID(trip.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.DistanceMiles, prevMiles)
		assert.GreaterOrEqual(t, got.DistanceKm, prevKm)
		prevMiles, prevKm = got.DistanceMiles, got.DistanceKm
	}
}

func TestOfflineTripResolvesLater(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.geocoder.offline = true

	f.emit(40.0, -74.0, 0, 1700000000000)
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "p", "")
	require.NoError(t, err)
	assert.True(t, geocode.IsFallback(trip.StartAddress))

	f.emit(40.1, -74.0, 0, 1700000600000)
	done, err := f.manager.Stop(ctx, trip.ID)
	require.NoError(t, err)
	assert.True(t, geocode.IsFallback(done.StartAddress))
	assert.True(t, geocode.IsFallback(done.EndAddress))
	assert.True(t, done.NeedsLookup)

	// Provider comes back online; the backfill pass resolves both fields.
	f.geocoder.offline = false
	resolver := geocode.NewService(f.geocoder, f.trips)
	res, err := resolver.ResolvePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Resolved)

	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.False(t, geocode.IsFallback(got.StartAddress))
	assert.False(t, geocode.IsFallback(got.EndAddress))
	assert.False(t, got.NeedsLookup)
}

func TestBackgroundSamplingAppendsPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.emit(40.0, -74.0, 30, 1700000000000)
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "p", "")
	require.NoError(t, err)

	f.emit(40.01, -74.0, 30, 1700000030000)
	f.emit(40.02, -74.0, 30, 1700000060000)

	require.Eventually(t, func() bool {
		got, err := f.trips.GetByID(trip.ID)
		return err == nil && len(got.Points) >= 3
	}, 2*time.Second, 10*time.Millisecond)

	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	// Arrival order preserved.
	assert.Equal(t, 40.01, got.Points[1].Latitude)
	assert.Equal(t, 40.02, got.Points[2].Latitude)
}

func TestStopCancelsSampling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.emit(40.0, -74.0, 30, 1700000000000)
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "p", "")
	require.NoError(t, err)

	done, err := f.manager.Stop(ctx, trip.ID)
	require.NoError(t, err)
	pointCount := len(done.Points)

	// Samples arriving after finalization must not mutate the sealed trip.
	f.emit(41.0, -74.0, 30, 1700000300000)
	time.Sleep(50 * time.Millisecond)

	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.Len(t, got.Points, pointCount)
	assert.Equal(t, *done.Hash, *got.Hash, "hash is a point-in-time seal")
}

func TestStopInvalidStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.Stop(ctx, "missing")
	assert.True(t, apperr.IsNotFound(err))

	f.emit(40.0, -74.0, 0, 1700000000000)
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "p", "")
	require.NoError(t, err)
	_, err = f.manager.Stop(ctx, trip.ID)
	require.NoError(t, err)

	_, err = f.manager.Stop(ctx, trip.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsInvalidState(err))
}

func TestCompleteSkipsAlreadyRecordedEndPoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Auto-detection persists the finalizing sample before completing, so
	// Complete sees it as the last recorded point already.
	start := models.Coordinate{Latitude: 40.0, Longitude: -74.0, Timestamp: 1700000000000}
	end := models.Coordinate{Latitude: 40.0 + oneMileLat, Longitude: -74.0, Timestamp: 1700000060000}
	active := &models.Trip{
		VehicleID: f.vehicle.ID,
		StartTime: start.Timestamp,
		StartLat:  start.Latitude,
		StartLon:  start.Longitude,
		Points:    []models.Coordinate{start, end},
	}
	require.NoError(t, f.trips.Create(active))

	sealed, err := Complete(ctx, f.trips, geocode.NewService(f.geocoder, f.trips), active, end)
	require.NoError(t, err)

	require.Len(t, sealed.Points, 2)
	assert.Equal(t, end, sealed.Points[1])
	require.NotNil(t, sealed.EndTime)
	assert.EqualValues(t, end.Timestamp, *sealed.EndTime)
	assert.InDelta(t, 1.0, sealed.DistanceMiles, 1e-3)
	assert.Equal(t, models.TripStatusCompleted, sealed.Status)
	assert.NotNil(t, sealed.Hash)
}

func TestAddPointMissingTripIsSilent(t *testing.T) {
	f := newFixture(t)
	err := f.manager.AddPoint(context.Background(), "gone", models.Coordinate{Latitude: 1, Longitude: 1})
	assert.NoError(t, err)
}

func TestClassify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.emit(40.0, -74.0, 0, 1700000000000)
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "p", "")
	require.NoError(t, err)

	require.NoError(t, f.manager.Classify(trip.ID, models.ClassificationPersonal))
	got, err := f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationPersonal, got.Classification)

	// Legal after completion too, and never touches the seal.
	done, err := f.manager.Stop(ctx, trip.ID)
	require.NoError(t, err)
	require.NoError(t, f.manager.Classify(trip.ID, models.ClassificationCommute))
	got, err = f.trips.GetByID(trip.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationCommute, got.Classification)
	assert.Equal(t, *done.Hash, *got.Hash)

	err = f.manager.Classify(trip.ID, "weekend")
	assert.True(t, apperr.IsInvalidState(err))
}

func TestReimbursement(t *testing.T) {
	f := newFixture(t)

	value, err := f.manager.Reimbursement(100)
	require.NoError(t, err)
	assert.InDelta(t, 67.0, value, 1e-9)

	require.NoError(t, f.settings.Set(models.SettingIRSRatePerMile, "0.70"))
	value, err = f.manager.Reimbursement(100)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, value, 1e-9)
}

func TestVehicleMonthTouchedOnCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.emit(40.0, -74.0, 0, 1700000000000) // 2023-11-14 UTC
	trip, err := f.manager.Start(ctx, f.vehicle.ID, "p", "")
	require.NoError(t, err)
	_, err = f.manager.Stop(ctx, trip.ID)
	require.NoError(t, err)

	v, err := f.vehicles.GetByID(f.vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, "2023-11", v.MonthYear)
}
