package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/integrity"
	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
)

// Service seals monthly mileage reports. A report aggregates the completed
// trips of one vehicle and billing month into an immutable, hash-signed row.
// Regenerating a month inserts a new row; sealed rows are never rewritten.
type Service struct {
	trips    *repository.TripRepository
	vehicles *repository.VehicleRepository
	reports  *repository.ReportRepository
	settings *repository.SettingsRepository

	now func() time.Time
}

func NewService(
	trips *repository.TripRepository,
	vehicles *repository.VehicleRepository,
	reports *repository.ReportRepository,
	settings *repository.SettingsRepository,
) *Service {
	return &Service{
		trips:    trips,
		vehicles: vehicles,
		reports:  reports,
		settings: settings,
		now:      time.Now,
	}
}

// Document is the exported form of a sealed report. It carries the payload
// the hash covers, so a holder can verify it without access to the store.
type Document struct {
	Report    models.Report           `json:"report"`
	Payload   integrity.ReportPayload `json:"payload"`
	Signature string                  `json:"signature"`
}

// Generate seals a report for the vehicle's completed trips in monthYear
// (formatted 2006-01). A month with no completed trips is an INVALID_STATE
// error rather than an empty report.
func (s *Service) Generate(ctx context.Context, vehicleID, monthYear string) (*models.Report, error) {
	vehicle, err := s.vehicles.GetByID(vehicleID)
	if err != nil {
		return nil, err
	}

	monthTrips, err := s.trips.ListCompletedForMonth(vehicleID, monthYear)
	if err != nil {
		return nil, fmt.Errorf("failed to collect trips for report: %w", err)
	}
	if len(monthTrips) == 0 {
		return nil, apperr.Newf(apperr.CodeInvalidState,
			"no completed trips for vehicle %s in %s", vehicleID, monthYear)
	}

	var totalMiles, totalKm float64
	tripHashes := make([]string, 0, len(monthTrips))
	var mapHashes []string
	for i := range monthTrips {
		t := &monthTrips[i]
		if t.Hash == nil {
			return nil, apperr.Newf(apperr.CodeInvalidState,
				"trip %s is completed but carries no seal", t.ID)
		}
		tripHashes = append(tripHashes, *t.Hash)
		totalMiles += t.DistanceMiles
		totalKm += t.DistanceKm

		if t.MapImagePath != nil {
			h, err := hashFile(*t.MapImagePath)
			if err != nil {
				log.Warnf("[Report] map image for trip %s not hashed: %v", t.ID, err)
				continue
			}
			mapHashes = append(mapHashes, h)
		}
	}

	rate, err := s.settings.RatePerMile()
	if err != nil {
		return nil, err
	}

	payload := integrity.ReportPayload{
		TripHashes:  tripHashes,
		VehicleID:   vehicleID,
		MonthYear:   monthYear,
		TotalMiles:  totalMiles,
		PhotoHashes: vehicle.PhotoHashes(),
		MapHashes:   mapHashes,
	}
	hash, err := integrity.HashReport(payload)
	if err != nil {
		return nil, err
	}

	signedAt := s.now().UTC()
	rep := &models.Report{
		VehicleID:  vehicleID,
		MonthYear:  monthYear,
		TotalMiles: totalMiles,
		TotalKm:    totalKm,
		TotalValue: totalMiles * rate,
		TripCount:  len(monthTrips),
		ReportHash: hash,
		Signature:  integrity.FormatSignature(hash, signedAt),
		SignedAt:   signedAt.UnixMilli(),
	}
	if err := s.reports.Create(rep); err != nil {
		return nil, err
	}

	log.Infof("[Report] sealed %s for vehicle %s (%s): %d trips, %.2f mi",
		rep.ID, vehicleID, monthYear, rep.TripCount, totalMiles)
	return rep, nil
}

// Export writes the report's verifiable document to dir and records the
// artifact path. The sealed row itself is untouched; exporting again writes
// a fresh file from the same seal.
func (s *Service) Export(ctx context.Context, reportID, dir string) (string, error) {
	doc, err := s.Document(ctx, reportID)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report document: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("report-%s-%s.json", doc.Report.MonthYear, doc.Report.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report document: %w", err)
	}

	if err := s.reports.SetExportPath(reportID, path); err != nil {
		return "", err
	}
	return path, nil
}

// Document rebuilds the exportable document for a sealed report from the
// store. The payload is reconstructed from current rows and re-verified
// against the seal, so post-seal tampering with trip rows is caught here.
func (s *Service) Document(ctx context.Context, reportID string) (*Document, error) {
	rep, err := s.reports.GetByID(reportID)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.vehicles.GetByID(rep.VehicleID)
	if err != nil {
		return nil, err
	}

	monthTrips, err := s.trips.ListCompletedForMonth(rep.VehicleID, rep.MonthYear)
	if err != nil {
		return nil, err
	}

	tripHashes := make([]string, 0, len(monthTrips))
	var mapHashes []string
	for i := range monthTrips {
		t := &monthTrips[i]
		if t.Hash != nil {
			tripHashes = append(tripHashes, *t.Hash)
		}
		if t.MapImagePath != nil {
			if h, err := hashFile(*t.MapImagePath); err == nil {
				mapHashes = append(mapHashes, h)
			}
		}
	}

	payload := integrity.ReportPayload{
		TripHashes:  tripHashes,
		VehicleID:   rep.VehicleID,
		MonthYear:   rep.MonthYear,
		TotalMiles:  rep.TotalMiles,
		PhotoHashes: vehicle.PhotoHashes(),
		MapHashes:   mapHashes,
	}
	if err := integrity.VerifyReport(payload, rep.ReportHash); err != nil {
		return nil, err
	}

	return &Document{Report: *rep, Payload: payload, Signature: rep.Signature}, nil
}

// VerifyFile checks an exported document. The payload embedded in the file
// is rehashed and compared to the sealed hash; any edit to the file's
// figures surfaces as an INTEGRITY_MISMATCH error.
func VerifyFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report document: %w", err)
	}

	if err := integrity.VerifyReport(doc.Payload, doc.Report.ReportHash); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SignatureQR renders the report's signature block as a PNG QR code.
func (s *Service) SignatureQR(reportID string, size int) ([]byte, error) {
	rep, err := s.reports.GetByID(reportID)
	if err != nil {
		return nil, err
	}
	return integrity.SignatureQR(rep.Signature, size)
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
