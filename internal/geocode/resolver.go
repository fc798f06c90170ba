package geocode

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// TripStore is the slice of the local store the resolver needs.
type TripStore interface {
	ListNeedingLookup() ([]models.Trip, error)
	Update(id string, upd models.TripUpdate) error
}

// Service resolves trip addresses, degrading to offline fallback encodings
// when the provider is unreachable and backfilling them later.
type Service struct {
	geocoder Geocoder
	trips    TripStore
	timeout  time.Duration
}

// NewService creates an address resolution service.
func NewService(geocoder Geocoder, trips TripStore) *Service {
	return &Service{geocoder: geocoder, trips: trips, timeout: DefaultTimeout}
}

// ResolveOnCapture attempts a live reverse lookup for a just-captured
// coordinate. On any failure it returns the offline fallback encoding
// immediately; it never blocks trip creation or completion on network
// recovery.
func (s *Service) ResolveOnCapture(ctx context.Context, c models.Coordinate) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	address, err := s.geocoder.Reverse(ctx, c.Latitude, c.Longitude)
	if err != nil {
		log.Debugf("[Geocode] reverse lookup failed, using fallback: %v", err)
		return FallbackAddress(c)
	}
	return address
}

// ResolveResult summarizes one ResolvePending pass.
type ResolveResult struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

// ResolvePending re-attempts resolution for every trip flagged needs_lookup.
// A field that is already resolved, or absent, is satisfied without a network
// call. A trip counts as resolved only when all applicable fields succeed in
// this pass; only then is needs_lookup cleared. Safe to call repeatedly.
func (s *Service) ResolvePending(ctx context.Context) (ResolveResult, error) {
	trips, err := s.trips.ListNeedingLookup()
	if err != nil {
		return ResolveResult{}, err
	}

	result := ResolveResult{Total: len(trips)}

	for i := range trips {
		trip := &trips[i]
		upd := models.TripUpdate{}
		allResolved := true

		if IsFallback(trip.StartAddress) {
			if address, ok := s.reverse(ctx, trip.StartLat, trip.StartLon); ok {
				upd.StartAddress = &address
			} else {
				allResolved = false
			}
		}

		if IsFallback(trip.EndAddress) {
			if trip.EndLat != nil && trip.EndLon != nil {
				if address, ok := s.reverse(ctx, *trip.EndLat, *trip.EndLon); ok {
					upd.EndAddress = &address
				} else {
					allResolved = false
				}
			} else {
				// Fallback end address with no end coordinates cannot be
				// improved; treat the field as satisfied.
				log.Warnf("[Geocode] trip %s has fallback end address but no end coords", trip.ID)
			}
		}

		if allResolved {
			cleared := false
			upd.NeedsLookup = &cleared
			result.Resolved++
		} else {
			result.Failed++
		}

		if upd.StartAddress != nil || upd.EndAddress != nil || upd.NeedsLookup != nil {
			if err := s.trips.Update(trip.ID, upd); err != nil {
				log.Errorf("[Geocode] failed to persist resolved addresses for trip %s: %v", trip.ID, err)
				if allResolved {
					result.Resolved--
					result.Failed++
				}
			}
		}
	}

	log.Infof("[Geocode] resolve pass: %d pending, %d resolved, %d still flagged",
		result.Total, result.Resolved, result.Failed)

	return result, nil
}

func (s *Service) reverse(ctx context.Context, lat, lon float64) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	address, err := s.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return "", false
	}
	return address, true
}
