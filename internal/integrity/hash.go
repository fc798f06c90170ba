package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// Domain prefixes for content hashing. The version suffix enables future
// algorithm migration without ambiguity against old digests.
const (
	DomainTrip   = "auditproof/trip/v1"
	DomainReport = "auditproof/report/v1"
)

// hashWithDomain computes SHA-256 over domain + 0x00 + data. The null byte
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// tripDigest is the canonical serialization for a trip seal. Field order is
// fixed by the struct declaration; Points order is significant.
type tripDigest struct {
	StartTime     int64               `json:"start_time"`
	EndTime       int64               `json:"end_time"`
	StartCoords   [2]float64          `json:"start_coords"`
	EndCoords     [2]float64          `json:"end_coords"`
	DistanceMiles float64             `json:"distance_miles"`
	Points        []models.Coordinate `json:"points"`
	Purpose       string              `json:"purpose"`
	Notes         string              `json:"notes"`
}

// HashTrip computes the content digest sealed onto a trip at completion.
// The same logical input always yields the same digest; changing any field,
// including a single point, changes it.
func HashTrip(t *models.Trip) (string, error) {
	if t.EndTime == nil || t.EndLat == nil || t.EndLon == nil {
		return "", fmt.Errorf("cannot hash trip %s: trip is not finalized", t.ID)
	}

	points := t.Points
	if points == nil {
		points = []models.Coordinate{}
	}

	d := tripDigest{
		StartTime:     t.StartTime,
		EndTime:       *t.EndTime,
		StartCoords:   [2]float64{t.StartLat, t.StartLon},
		EndCoords:     [2]float64{*t.EndLat, *t.EndLon},
		DistanceMiles: t.DistanceMiles,
		Points:        points,
		Purpose:       t.Purpose,
		Notes:         t.Notes,
	}

	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to marshal trip digest: %w", err)
	}

	return hashWithDomain(DomainTrip, data), nil
}

// ReportPayload carries the fields covered by a report digest. Verification
// rebuilds this payload from an exported document and recomputes the hash.
type ReportPayload struct {
	TripHashes  []string `json:"trips"`
	VehicleID   string   `json:"vehicle"`
	MonthYear   string   `json:"month_year"`
	TotalMiles  float64  `json:"total_miles"`
	PhotoHashes []string `json:"photo_hashes"`
	MapHashes   []string `json:"map_hashes"`
}

// HashReport computes the content digest sealed onto a report at export.
func HashReport(p ReportPayload) (string, error) {
	if p.TripHashes == nil {
		p.TripHashes = []string{}
	}
	if p.PhotoHashes == nil {
		p.PhotoHashes = []string{}
	}
	if p.MapHashes == nil {
		p.MapHashes = []string{}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report digest: %w", err)
	}

	return hashWithDomain(DomainReport, data), nil
}
