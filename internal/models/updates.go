package models

// TripUpdate carries a partial trip update; nil fields are left untouched.
// The repository always refreshes updated_at and re-evaluates needs_lookup
// for any address field present.
type TripUpdate struct {
	EndTime        *int64
	EndLat         *float64
	EndLon         *float64
	DistanceMiles  *float64
	DistanceKm     *float64
	Points         *[]Coordinate
	Purpose        *string
	Notes          *string
	StartAddress   *string
	EndAddress     *string
	MapImagePath   *string
	Hash           *string
	Status         *string
	Classification *string
	NeedsLookup    *bool
	SyncedToCloud  *bool
}

// VehicleUpdate carries a partial vehicle update; nil fields are left untouched.
type VehicleUpdate struct {
	Make           *string
	Model          *string
	Year           *int
	Plate          *string
	StartPhotoPath *string
	StartPhotoHash *string
	EndPhotoPath   *string
	EndPhotoHash   *string
	MonthYear      *string
	Verified       *bool
}
