package models

// Coordinate represents a single GPS fix. Timestamp is epoch milliseconds
// and may be zero when the capture time is unknown.
type Coordinate struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Timestamp int64   `json:"timestamp,omitempty" db:"timestamp"`
}
