package models

import "time"

// Report represents a sealed monthly mileage report. Rows are immutable
// after creation; re-exporting a month inserts a new row.
type Report struct {
	ID        string `json:"id" db:"id"`
	VehicleID string `json:"vehicle_id" db:"vehicle_id"`
	MonthYear string `json:"month_year" db:"month_year"`

	TotalMiles float64 `json:"total_miles" db:"total_miles"`
	TotalKm    float64 `json:"total_km" db:"total_km"`
	TotalValue float64 `json:"total_value" db:"total_value"`
	TripCount  int     `json:"trip_count" db:"trip_count"`

	ReportHash string `json:"report_hash" db:"report_hash"`
	Signature  string `json:"signature" db:"signature"`
	SignedAt   int64  `json:"signed_at" db:"signed_at"`

	ExportPath *string `json:"export_path,omitempty" db:"export_path"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
