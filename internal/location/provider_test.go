package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

func sampleAt(lat, lon, mph float64) Sample {
	return Sample{
		Coordinate: models.Coordinate{Latitude: lat, Longitude: lon},
		SpeedMPH:   mph,
	}
}

func TestCurrentBeforeAnyFix(t *testing.T) {
	p := NewSimulatedProvider(Permissions{Foreground: true})
	_, err := p.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoFix)
}

func TestCurrentReturnsLatestFix(t *testing.T) {
	p := NewSimulatedProvider(Permissions{Foreground: true})
	p.Emit(sampleAt(1, 1, 10))
	p.Emit(sampleAt(2, 2, 20))

	s, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.Coordinate.Latitude)
	assert.Equal(t, 20.0, s.SpeedMPH)
}

func TestSubscriptionDeliversInArrivalOrder(t *testing.T) {
	p := NewSimulatedProvider(Permissions{Foreground: true, Background: true})
	sub, err := p.Subscribe()
	require.NoError(t, err)

	p.Emit(sampleAt(1, 1, 5))
	p.Emit(sampleAt(2, 2, 6))
	p.Emit(sampleAt(3, 3, 7))

	assert.Equal(t, 1.0, (<-sub.Samples()).Coordinate.Latitude)
	assert.Equal(t, 2.0, (<-sub.Samples()).Coordinate.Latitude)
	assert.Equal(t, 3.0, (<-sub.Samples()).Coordinate.Latitude)
}

func TestCancelStopsDeliveryAndClosesChannel(t *testing.T) {
	p := NewSimulatedProvider(Permissions{Foreground: true})
	sub, err := p.Subscribe()
	require.NoError(t, err)

	sub.Cancel()
	p.Emit(sampleAt(1, 1, 5)) // must not panic on a cancelled subscription

	_, open := <-sub.Samples()
	assert.False(t, open)

	// Cancelling twice is safe.
	sub.Cancel()
}

func TestIndependentSubscriptions(t *testing.T) {
	p := NewSimulatedProvider(Permissions{Foreground: true})
	a, err := p.Subscribe()
	require.NoError(t, err)
	b, err := p.Subscribe()
	require.NoError(t, err)

	a.Cancel()
	p.Emit(sampleAt(9, 9, 9))

	got := <-b.Samples()
	assert.Equal(t, 9.0, got.Coordinate.Latitude)
}

func TestPermissions(t *testing.T) {
	p := NewSimulatedProvider(Permissions{Foreground: true})
	assert.True(t, p.Permissions().Foreground)
	assert.False(t, p.Permissions().Background)

	p.SetPermissions(Permissions{Foreground: true, Background: true})
	assert.True(t, p.Permissions().Background)
}
