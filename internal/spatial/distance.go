package spatial

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// Unit selects the Earth radius used when converting angular distance.
type Unit int

const (
	Miles Unit = iota
	Kilometers
)

// Earth radius constants
const (
	EarthRadiusMiles = 3958.8
	EarthRadiusKm    = 6371.0
)

func (u Unit) radius() float64 {
	if u == Kilometers {
		return EarthRadiusKm
	}
	return EarthRadiusMiles
}

// Distance calculates the great-circle distance between two coordinates
// using the Haversine formula. Identical points return 0.
func Distance(a, b models.Coordinate, unit Unit) float64 {
	p1 := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	p2 := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return p1.Distance(p2).Radians() * unit.radius()
}

// TotalDistance sums pairwise Distance over consecutive points in sequence
// order. Fewer than 2 points yield 0. This is the authoritative distance of
// a point sequence; incremental accumulators must reconcile against it.
func TotalDistance(points []models.Coordinate, unit Unit) float64 {
	if len(points) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i], unit)
	}
	return total
}

// Bearing calculates the initial bearing (forward azimuth) from point a to b.
// Returns bearing in degrees (0-360), where 0 is North, 90 is East, etc.
func Bearing(a, b models.Coordinate) float64 {
	lat1Rad := a.Latitude * math.Pi / 180
	lat2Rad := b.Latitude * math.Pi / 180
	lonDiff := (b.Longitude - a.Longitude) * math.Pi / 180

	y := math.Sin(lonDiff) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lonDiff)
	bearing := math.Atan2(y, x)

	bearingDeg := bearing * 180 / math.Pi
	return math.Mod(bearingDeg+360, 360)
}
