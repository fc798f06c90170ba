package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// SettingsRepository handles the key-value settings store.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the value for key and whether it was present.
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a setting value, inserting or replacing.
func (r *SettingsRepository) Set(key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// RatePerMile returns the configured reimbursement rate, falling back to the
// default when unset or unparseable.
func (r *SettingsRepository) RatePerMile() (float64, error) {
	value, ok, err := r.Get(models.SettingIRSRatePerMile)
	if err != nil {
		return 0, err
	}
	if !ok {
		return models.DefaultIRSRatePerMile, nil
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return models.DefaultIRSRatePerMile, nil
	}
	return rate, nil
}
