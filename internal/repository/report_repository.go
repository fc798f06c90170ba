package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/models"
)

// ReportRepository handles database operations for sealed reports. Rows are
// insert-only; re-exporting a month creates a new row.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, vehicle_id, month_year, total_miles, total_km,
	total_value, trip_count, report_hash, signature, signed_at, export_path, created_at`

// Create inserts a sealed report row.
func (r *ReportRepository) Create(report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	report.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO reports (
			id, vehicle_id, month_year, total_miles, total_km, total_value,
			trip_count, report_hash, signature, signed_at, export_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		report.ID, report.VehicleID, report.MonthYear,
		report.TotalMiles, report.TotalKm, report.TotalValue, report.TripCount,
		report.ReportHash, report.Signature, report.SignedAt,
		report.ExportPath, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetByID retrieves a report by ID. Missing ids yield a NOT_FOUND error.
func (r *ReportRepository) GetByID(id string) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = ?`

	var rep models.Report
	err := r.db.QueryRow(query, id).Scan(
		&rep.ID, &rep.VehicleID, &rep.MonthYear,
		&rep.TotalMiles, &rep.TotalKm, &rep.TotalValue, &rep.TripCount,
		&rep.ReportHash, &rep.Signature, &rep.SignedAt,
		&rep.ExportPath, &rep.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeNotFound, "report %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &rep, nil
}

// ListByVehicle returns reports for a vehicle, newest first. monthYear
// narrows to a single billing month when non-empty.
func (r *ReportRepository) ListByVehicle(vehicleID, monthYear string) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE vehicle_id = ?`
	args := []interface{}{vehicleID}

	if monthYear != "" {
		query += " AND month_year = ?"
		args = append(args, monthYear)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var rep models.Report
		err := rows.Scan(
			&rep.ID, &rep.VehicleID, &rep.MonthYear,
			&rep.TotalMiles, &rep.TotalKm, &rep.TotalValue, &rep.TripCount,
			&rep.ReportHash, &rep.Signature, &rep.SignedAt,
			&rep.ExportPath, &rep.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}

	return reports, nil
}

// SetExportPath records where an export artifact was written. The sealed
// fields of the row are never mutated.
func (r *ReportRepository) SetExportPath(id, path string) error {
	result, err := r.db.Exec("UPDATE reports SET export_path = ? WHERE id = ?", path, id)
	if err != nil {
		return fmt.Errorf("failed to set export path: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return apperr.Newf(apperr.CodeNotFound, "report %s not found", id)
	}
	return nil
}
