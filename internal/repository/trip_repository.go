package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/models"
)

// TripRepository handles database operations for trips. It is the sole
// mutator of persisted trip state.
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `id, vehicle_id, start_time, end_time, start_lat, start_lon,
	end_lat, end_lon, distance_miles, distance_km, points_json, purpose, notes,
	start_address, end_address, map_image_path, hash, status, classification,
	auto_detected, needs_lookup, synced_to_cloud, created_at, updated_at`

// Create inserts a new trip. The id is generated when absent, the point
// sequence is seeded with the start coordinate, and needs_lookup is derived
// from the address fields.
func (r *TripRepository) Create(trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if trip.Status == "" {
		trip.Status = models.TripStatusActive
	}
	if trip.Classification == "" {
		trip.Classification = models.ClassificationUnclassified
	}
	if len(trip.Points) == 0 {
		trip.Points = []models.Coordinate{trip.StartCoordinate()}
	}
	trip.NeedsLookup = geocode.IsFallback(trip.StartAddress) || geocode.IsFallback(trip.EndAddress)

	now := time.Now().UTC()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	pointsJSON, err := json.Marshal(trip.Points)
	if err != nil {
		return fmt.Errorf("failed to marshal trip points: %w", err)
	}

	query := `
		INSERT INTO trips (
			id, vehicle_id, start_time, end_time, start_lat, start_lon,
			end_lat, end_lon, distance_miles, distance_km, points_json,
			purpose, notes, start_address, end_address, map_image_path, hash,
			status, classification, auto_detected, needs_lookup,
			synced_to_cloud, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		trip.ID, trip.VehicleID, trip.StartTime, trip.EndTime,
		trip.StartLat, trip.StartLon, trip.EndLat, trip.EndLon,
		trip.DistanceMiles, trip.DistanceKm, string(pointsJSON),
		trip.Purpose, trip.Notes, trip.StartAddress, trip.EndAddress,
		trip.MapImagePath, trip.Hash, trip.Status, trip.Classification,
		trip.AutoDetected, trip.NeedsLookup, trip.SyncedToCloud,
		trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	return nil
}

// GetByID retrieves a single trip by ID. Missing ids yield a NOT_FOUND error.
func (r *TripRepository) GetByID(id string) (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = ?`

	trip, err := r.scanTrip(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeNotFound, "trip %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return trip, nil
}

// GetActiveTrip returns the single active trip, or nil when none exists.
// The single-active-trip invariant is enforced by the lifecycle manager;
// the query orders by start_time so a violated invariant still yields a
// deterministic row.
func (r *TripRepository) GetActiveTrip() (*models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE status = ? ORDER BY start_time DESC LIMIT 1`

	trip, err := r.scanTrip(r.db.QueryRow(query, models.TripStatusActive))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}

	return trip, nil
}

// Update applies a partial update. updated_at is always refreshed. Address
// fields re-evaluate needs_lookup: a fallback-encoded write sets the flag,
// but a resolved write never clears it implicitly; only an explicit
// NeedsLookup value (set by the resolver once all fields are resolved) does.
func (r *TripRepository) Update(id string, upd models.TripUpdate) error {
	var sets []string
	var args []interface{}

	set := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.EndTime != nil {
		set("end_time", *upd.EndTime)
	}
	if upd.EndLat != nil {
		set("end_lat", *upd.EndLat)
	}
	if upd.EndLon != nil {
		set("end_lon", *upd.EndLon)
	}
	if upd.DistanceMiles != nil {
		set("distance_miles", *upd.DistanceMiles)
	}
	if upd.DistanceKm != nil {
		set("distance_km", *upd.DistanceKm)
	}
	if upd.Points != nil {
		pointsJSON, err := json.Marshal(*upd.Points)
		if err != nil {
			return fmt.Errorf("failed to marshal trip points: %w", err)
		}
		set("points_json", string(pointsJSON))
	}
	if upd.Purpose != nil {
		set("purpose", *upd.Purpose)
	}
	if upd.Notes != nil {
		set("notes", *upd.Notes)
	}
	if upd.StartAddress != nil {
		set("start_address", *upd.StartAddress)
	}
	if upd.EndAddress != nil {
		set("end_address", *upd.EndAddress)
	}
	if upd.MapImagePath != nil {
		set("map_image_path", *upd.MapImagePath)
	}
	if upd.Hash != nil {
		set("hash", *upd.Hash)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if upd.Classification != nil {
		set("classification", *upd.Classification)
	}
	if upd.SyncedToCloud != nil {
		set("synced_to_cloud", *upd.SyncedToCloud)
	}

	switch {
	case upd.NeedsLookup != nil:
		set("needs_lookup", *upd.NeedsLookup)
	case fallbackWritten(upd.StartAddress) || fallbackWritten(upd.EndAddress):
		set("needs_lookup", true)
	}

	set("updated_at", time.Now().UTC())

	query := "UPDATE trips SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.CodeNotFound, "trip %s not found", id)
	}

	return nil
}

func fallbackWritten(address *string) bool {
	return address != nil && geocode.IsFallback(*address)
}

// Delete removes a trip by ID.
func (r *TripRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM trips WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.CodeNotFound, "trip %s not found", id)
	}

	return nil
}

// GetTrips retrieves trips with filtering and pagination
func (r *TripRepository) GetTrips(filter models.TripFilter) (*models.TripsResponse, error) {
	query := `SELECT ` + tripColumns + ` FROM trips`

	var conditions []string
	var args []interface{}

	if filter.VehicleID != "" {
		conditions = append(conditions, "vehicle_id = ?")
		args = append(args, filter.VehicleID)
	}
	if filter.MonthYear != "" {
		start, end, err := monthBounds(filter.MonthYear)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, "start_time >= ?", "start_time < ?")
		args = append(args, start, end)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.NeedsLookup != nil {
		conditions = append(conditions, "needs_lookup = ?")
		args = append(args, *filter.NeedsLookup)
	}
	if filter.Unsynced != nil && *filter.Unsynced {
		conditions = append(conditions, "synced_to_cloud = 0", "status != ?")
		args = append(args, models.TripStatusActive)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM trips"
	if len(conditions) > 0 {
		countQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count trips: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}

	offset := (filter.Page - 1) * filter.PageSize
	query += " ORDER BY start_time DESC LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		trip, err := r.scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}

	totalPages := int((total + int64(filter.PageSize) - 1) / int64(filter.PageSize))

	return &models.TripsResponse{
		Trips:      trips,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: totalPages,
	}, nil
}

// ListCompletedForMonth returns every completed trip of one vehicle inside
// monthYear, oldest first. Unlike GetTrips this is not paginated; report
// sealing must cover the whole month, not a page of it.
func (r *TripRepository) ListCompletedForMonth(vehicleID, monthYear string) ([]models.Trip, error) {
	start, end, err := monthBounds(monthYear)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE vehicle_id = ? AND start_time >= ? AND start_time < ? AND status = ?
		ORDER BY start_time ASC`

	rows, err := r.db.Query(query, vehicleID, start, end, models.TripStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query month trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		trip, err := r.scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}

	return trips, nil
}

// ListNeedingLookup returns trips with at least one fallback-encoded address,
// oldest first. The backfill pass must see every flagged trip, so the listing
// is unbounded.
func (r *TripRepository) ListNeedingLookup() ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE needs_lookup = 1
		ORDER BY start_time ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips needing lookup: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		trip, err := r.scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}

	return trips, nil
}

// ListUnsyncedCompleted returns completed trips not yet confirmed on the
// remote store.
func (r *TripRepository) ListUnsyncedCompleted() ([]models.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips
		WHERE synced_to_cloud = 0 AND status = ?
		ORDER BY start_time ASC`

	rows, err := r.db.Query(query, models.TripStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsynced trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		trip, err := r.scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *trip)
	}

	return trips, nil
}

// MarkSynced flags a trip as confirmed on the remote store.
func (r *TripRepository) MarkSynced(id string) error {
	synced := true
	return r.Update(id, models.TripUpdate{SyncedToCloud: &synced})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *TripRepository) scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	var pointsJSON string

	err := row.Scan(
		&t.ID, &t.VehicleID, &t.StartTime, &t.EndTime,
		&t.StartLat, &t.StartLon, &t.EndLat, &t.EndLon,
		&t.DistanceMiles, &t.DistanceKm, &pointsJSON,
		&t.Purpose, &t.Notes, &t.StartAddress, &t.EndAddress,
		&t.MapImagePath, &t.Hash, &t.Status, &t.Classification,
		&t.AutoDetected, &t.NeedsLookup, &t.SyncedToCloud,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(pointsJSON), &t.Points); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trip points: %w", err)
	}

	return &t, nil
}

// monthBounds converts a 2006-01 label to [start, end) epoch milliseconds.
func monthBounds(monthYear string) (int64, int64, error) {
	start, err := time.Parse("2006-01", monthYear)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month_year %q: %w", monthYear, err)
	}
	end := start.AddDate(0, 1, 0)
	return start.UnixMilli(), end.UnixMilli(), nil
}
