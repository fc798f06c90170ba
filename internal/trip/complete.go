package trip

import (
	"context"
	"fmt"

	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/internal/integrity"
	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	"github.com/willrad86/auditproof-mileage/internal/spatial"
)

// Complete seals an active trip with end as its final point: the point is
// appended unless already recorded, both distances are recomputed from the
// full sequence, the end address is resolved (fallback-tolerant), the content
// hash is computed over the finalized fields, and everything is persisted as
// one atomic update. Manual stop and auto-detection finalization share this
// path; auto-detection has usually persisted the finalizing sample already.
func Complete(
	ctx context.Context,
	trips *repository.TripRepository,
	resolver *geocode.Service,
	current *models.Trip,
	end models.Coordinate,
) (*models.Trip, error) {
	points := current.Points
	if current.LastPoint() != end {
		points = append(points, end)
	}
	miles := spatial.TotalDistance(points, spatial.Miles)
	km := spatial.TotalDistance(points, spatial.Kilometers)
	endAddress := resolver.ResolveOnCapture(ctx, end)
	status := models.TripStatusCompleted

	sealed := *current
	sealed.EndTime = &end.Timestamp
	sealed.EndLat = &end.Latitude
	sealed.EndLon = &end.Longitude
	sealed.DistanceMiles = miles
	sealed.DistanceKm = km
	sealed.Points = points

	hash, err := integrity.HashTrip(&sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to seal trip %s: %w", current.ID, err)
	}

	err = trips.Update(current.ID, models.TripUpdate{
		EndTime:       &end.Timestamp,
		EndLat:        &end.Latitude,
		EndLon:        &end.Longitude,
		DistanceMiles: &miles,
		DistanceKm:    &km,
		Points:        &points,
		EndAddress:    &endAddress,
		Hash:          &hash,
		Status:        &status,
	})
	if err != nil {
		return nil, err
	}

	return trips.GetByID(current.ID)
}
