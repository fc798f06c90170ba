package models

import "time"

// Trip represents one vehicle trip from start to stop, manual or auto-detected.
// Points are stored as an insertion-ordered JSON array; the sequence defines
// both the path and the time axis for distance integration.
type Trip struct {
	ID        string `json:"id" db:"id"`
	VehicleID string `json:"vehicle_id" db:"vehicle_id"`

	// Temporal info (epoch milliseconds). EndTime is nil while active.
	StartTime int64  `json:"start_time" db:"start_time"`
	EndTime   *int64 `json:"end_time,omitempty" db:"end_time"`

	// Boundary coordinates. End values are nil while active.
	StartLat float64  `json:"start_lat" db:"start_lat"`
	StartLon float64  `json:"start_lon" db:"start_lon"`
	EndLat   *float64 `json:"end_lat,omitempty" db:"end_lat"`
	EndLon   *float64 `json:"end_lon,omitempty" db:"end_lon"`

	// Derived distances, recomputed from Points. Never authoritative on their own.
	DistanceMiles float64 `json:"distance_miles" db:"distance_miles"`
	DistanceKm    float64 `json:"distance_km" db:"distance_km"`

	// Full point sequence, seeded with the start coordinate.
	Points []Coordinate `json:"points" db:"points_json"`

	Purpose string `json:"purpose,omitempty" db:"purpose"`
	Notes   string `json:"notes,omitempty" db:"notes"`

	// Resolved display addresses, or offline fallback encodings.
	StartAddress string `json:"start_address,omitempty" db:"start_address"`
	EndAddress   string `json:"end_address,omitempty" db:"end_address"`

	MapImagePath *string `json:"map_image_path,omitempty" db:"map_image_path"`

	// Content hash, set once at the transition into completed.
	Hash *string `json:"hash,omitempty" db:"hash"`

	Status         string `json:"status" db:"status"`
	Classification string `json:"classification" db:"classification"`

	AutoDetected  bool `json:"auto_detected" db:"auto_detected"`
	NeedsLookup   bool `json:"needs_lookup" db:"needs_lookup"`
	SyncedToCloud bool `json:"synced_to_cloud" db:"synced_to_cloud"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Trip status constants
const (
	TripStatusActive    = "active"
	TripStatusCompleted = "completed"
	TripStatusExported  = "exported"
)

// Trip classification constants
const (
	ClassificationUnclassified = "unclassified"
	ClassificationBusiness     = "business"
	ClassificationPersonal     = "personal"
	ClassificationCommute      = "commute"
	ClassificationOther        = "other"
)

// ValidClassification reports whether c is one of the known classifications.
func ValidClassification(c string) bool {
	switch c {
	case ClassificationUnclassified, ClassificationBusiness,
		ClassificationPersonal, ClassificationCommute, ClassificationOther:
		return true
	}
	return false
}

// IsActive returns true while the trip is still being tracked.
func (t *Trip) IsActive() bool {
	return t.Status == TripStatusActive
}

// StartCoordinate returns the trip's seed coordinate.
func (t *Trip) StartCoordinate() Coordinate {
	return Coordinate{Latitude: t.StartLat, Longitude: t.StartLon, Timestamp: t.StartTime}
}

// LastPoint returns the most recently appended point. The point sequence is
// seeded at creation, so this is always defined for a persisted trip.
func (t *Trip) LastPoint() Coordinate {
	if len(t.Points) == 0 {
		return t.StartCoordinate()
	}
	return t.Points[len(t.Points)-1]
}

// TripsResponse represents a paginated response of trips
type TripsResponse struct {
	Trips      []Trip `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}
