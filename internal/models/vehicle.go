package models

import "time"

// Vehicle represents a tracked vehicle. Odometer photo references are
// attached per billing month; their content hashes feed the report hash.
type Vehicle struct {
	ID    string `json:"id" db:"id"`
	Make  string `json:"make" db:"make"`
	Model string `json:"model" db:"model"`
	Year  int    `json:"year" db:"year"`
	Plate string `json:"plate,omitempty" db:"plate"`

	StartPhotoPath *string `json:"start_photo_path,omitempty" db:"start_photo_path"`
	StartPhotoHash *string `json:"start_photo_hash,omitempty" db:"start_photo_hash"`
	EndPhotoPath   *string `json:"end_photo_path,omitempty" db:"end_photo_path"`
	EndPhotoHash   *string `json:"end_photo_hash,omitempty" db:"end_photo_hash"`

	// MonthYear is the most recently touched billing month, formatted 2006-01.
	MonthYear string `json:"month_year,omitempty" db:"month_year"`
	Verified  bool   `json:"verified" db:"verified"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PhotoHashes returns the present odometer photo hashes in start, end order.
func (v *Vehicle) PhotoHashes() []string {
	var hashes []string
	if v.StartPhotoHash != nil {
		hashes = append(hashes, *v.StartPhotoHash)
	}
	if v.EndPhotoHash != nil {
		hashes = append(hashes, *v.EndPhotoHash)
	}
	return hashes
}
