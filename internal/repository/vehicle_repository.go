package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/models"
)

// VehicleRepository handles database operations for vehicles
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository creates a new vehicle repository
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `id, make, model, year, plate, start_photo_path,
	start_photo_hash, end_photo_path, end_photo_hash, month_year, verified,
	created_at, updated_at`

// Create inserts a new vehicle, generating its id when absent.
func (r *VehicleRepository) Create(vehicle *models.Vehicle) error {
	if vehicle.ID == "" {
		vehicle.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now

	query := `
		INSERT INTO vehicles (
			id, make, model, year, plate, start_photo_path, start_photo_hash,
			end_photo_path, end_photo_hash, month_year, verified, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		vehicle.ID, vehicle.Make, vehicle.Model, vehicle.Year, vehicle.Plate,
		vehicle.StartPhotoPath, vehicle.StartPhotoHash,
		vehicle.EndPhotoPath, vehicle.EndPhotoHash,
		vehicle.MonthYear, vehicle.Verified,
		vehicle.CreatedAt, vehicle.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

// GetByID retrieves a vehicle by ID. Missing ids yield a NOT_FOUND error.
func (r *VehicleRepository) GetByID(id string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`

	var v models.Vehicle
	err := r.db.QueryRow(query, id).Scan(
		&v.ID, &v.Make, &v.Model, &v.Year, &v.Plate,
		&v.StartPhotoPath, &v.StartPhotoHash, &v.EndPhotoPath, &v.EndPhotoHash,
		&v.MonthYear, &v.Verified, &v.CreatedAt, &v.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeNotFound, "vehicle %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	return &v, nil
}

// Update applies a partial update; updated_at is always refreshed.
func (r *VehicleRepository) Update(id string, upd models.VehicleUpdate) error {
	var sets []string
	var args []interface{}

	set := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.Make != nil {
		set("make", *upd.Make)
	}
	if upd.Model != nil {
		set("model", *upd.Model)
	}
	if upd.Year != nil {
		set("year", *upd.Year)
	}
	if upd.Plate != nil {
		set("plate", *upd.Plate)
	}
	if upd.StartPhotoPath != nil {
		set("start_photo_path", *upd.StartPhotoPath)
	}
	if upd.StartPhotoHash != nil {
		set("start_photo_hash", *upd.StartPhotoHash)
	}
	if upd.EndPhotoPath != nil {
		set("end_photo_path", *upd.EndPhotoPath)
	}
	if upd.EndPhotoHash != nil {
		set("end_photo_hash", *upd.EndPhotoHash)
	}
	if upd.MonthYear != nil {
		set("month_year", *upd.MonthYear)
	}
	if upd.Verified != nil {
		set("verified", *upd.Verified)
	}

	set("updated_at", time.Now().UTC())

	query := "UPDATE vehicles SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update vehicle: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.CodeNotFound, "vehicle %s not found", id)
	}

	return nil
}

// Delete removes a vehicle. Owned trips and reports cascade through the
// schema's foreign keys.
func (r *VehicleRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM vehicles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.CodeNotFound, "vehicle %s not found", id)
	}

	return nil
}

// List returns all vehicles ordered by creation time.
func (r *VehicleRepository) List() ([]models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles ORDER BY created_at ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		err := rows.Scan(
			&v.ID, &v.Make, &v.Model, &v.Year, &v.Plate,
			&v.StartPhotoPath, &v.StartPhotoHash, &v.EndPhotoPath, &v.EndPhotoHash,
			&v.MonthYear, &v.Verified, &v.CreatedAt, &v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, nil
}

// Count returns the number of registered vehicles.
func (r *VehicleRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM vehicles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count vehicles: %w", err)
	}
	return count, nil
}

// AttachOdometerPhoto records an odometer photo reference and content hash
// for the given month slot ("start" or "end"), and touches month_year.
func (r *VehicleRepository) AttachOdometerPhoto(id, slot, path, hash, monthYear string) error {
	upd := models.VehicleUpdate{MonthYear: &monthYear}
	switch slot {
	case "start":
		upd.StartPhotoPath = &path
		upd.StartPhotoHash = &hash
	case "end":
		upd.EndPhotoPath = &path
		upd.EndPhotoHash = &hash
	default:
		return fmt.Errorf("invalid odometer photo slot %q", slot)
	}
	return r.Update(id, upd)
}
