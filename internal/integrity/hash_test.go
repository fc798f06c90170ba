package integrity

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/models"
)

func finalizedTrip() *models.Trip {
	end := int64(1700000900000)
	endLat, endLon := 40.7306, -73.9866
	return &models.Trip{
		ID:            "trip-1",
		StartTime:     1700000000000,
		EndTime:       &end,
		StartLat:      40.7128,
		StartLon:      -74.0060,
		EndLat:        &endLat,
		EndLon:        &endLon,
		DistanceMiles: 1.74,
		Points: []models.Coordinate{
			{Latitude: 40.7128, Longitude: -74.0060, Timestamp: 1700000000000},
			{Latitude: 40.7306, Longitude: -73.9866, Timestamp: 1700000900000},
		},
		Purpose: "client visit",
		Notes:   "parking at garage",
	}
}

func TestHashTripDeterministic(t *testing.T) {
	a, err := HashTrip(finalizedTrip())
	require.NoError(t, err)
	b, err := HashTrip(finalizedTrip())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashTripSensitiveToEveryField(t *testing.T) {
	base, err := HashTrip(finalizedTrip())
	require.NoError(t, err)

	mutations := map[string]func(*models.Trip){
		"start_time": func(tr *models.Trip) { tr.StartTime++ },
		"end_time":   func(tr *models.Trip) { *tr.EndTime++ },
		"start_lat":  func(tr *models.Trip) { tr.StartLat += 1e-9 },
		"end_lon":    func(tr *models.Trip) { *tr.EndLon += 1e-9 },
		"distance":   func(tr *models.Trip) { tr.DistanceMiles += 1e-9 },
		"point_lon":  func(tr *models.Trip) { tr.Points[1].Longitude += 1e-9 },
		"purpose":    func(tr *models.Trip) { tr.Purpose = "client visits" },
		"notes":      func(tr *models.Trip) { tr.Notes = "" },
		"point_order": func(tr *models.Trip) {
			tr.Points[0], tr.Points[1] = tr.Points[1], tr.Points[0]
		},
	}

	for name, mutate := range mutations {
		tr := finalizedTrip()
		mutate(tr)
		got, err := HashTrip(tr)
		require.NoError(t, err, name)
		assert.NotEqual(t, base, got, "mutation %q should change the digest", name)
	}
}

func TestHashTripRequiresFinalizedTrip(t *testing.T) {
	tr := finalizedTrip()
	tr.EndTime = nil
	_, err := HashTrip(tr)
	assert.Error(t, err)
}

func TestHashReportDeterministicAndSensitive(t *testing.T) {
	payload := ReportPayload{
		TripHashes:  []string{"aaa", "bbb"},
		VehicleID:   "veh-1",
		MonthYear:   "2025-11",
		TotalMiles:  142.7,
		PhotoHashes: []string{"p1"},
		MapHashes:   []string{},
	}

	a, err := HashReport(payload)
	require.NoError(t, err)
	b, err := HashReport(payload)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	payload.TotalMiles += 0.0001
	c, err := HashReport(payload)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestHashReportNilSlicesEqualEmpty(t *testing.T) {
	a, err := HashReport(ReportPayload{VehicleID: "v", MonthYear: "2025-11"})
	require.NoError(t, err)
	b, err := HashReport(ReportPayload{
		VehicleID: "v", MonthYear: "2025-11",
		TripHashes: []string{}, PhotoHashes: []string{}, MapHashes: []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTripAndReportDomainsSeparated(t *testing.T) {
	// Same bytes under different domains must not collide.
	assert.NotEqual(t,
		hashWithDomain(DomainTrip, []byte("x")),
		hashWithDomain(DomainReport, []byte("x")))
}

func TestVerifyReport(t *testing.T) {
	payload := ReportPayload{
		TripHashes: []string{"aaa"},
		VehicleID:  "veh-1",
		MonthYear:  "2025-11",
		TotalMiles: 12.5,
	}
	hash, err := HashReport(payload)
	require.NoError(t, err)

	assert.NoError(t, VerifyReport(payload, hash))

	tampered := payload
	tampered.TotalMiles = 120.5
	err = VerifyReport(tampered, hash)
	require.Error(t, err)
	assert.True(t, apperr.IsIntegrityMismatch(err))
}

func TestFormatSignatureGolden(t *testing.T) {
	signedAt := time.Date(2025, 11, 30, 18, 4, 5, 0, time.UTC)
	sig := FormatSignature(
		"3f2c51e06c6b8a4f2c51e06c6b8a4f2c51e06c6b8a4f2c51e06c6b8a4f2c51e0",
		signedAt,
	)

	g := goldie.New(t)
	g.Assert(t, "signature_block", []byte(sig))
}

func TestSignatureQR(t *testing.T) {
	png, err := SignatureQR("signature text", 0)
	require.NoError(t, err)
	// PNG magic bytes.
	require.True(t, len(png) > 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
