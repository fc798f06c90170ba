package models

// TripFilter represents filter parameters for querying trips
type TripFilter struct {
	VehicleID   string `form:"vehicleId"`
	MonthYear   string `form:"monthYear"` // 2006-01
	Status      string `form:"status"`
	NeedsLookup *bool  `form:"needsLookup"`
	Unsynced    *bool  `form:"unsynced"`
	Page        int    `form:"page"`
	PageSize    int    `form:"pageSize"`
}
