package geocode

import (
	"fmt"
	"strings"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// OfflineMarker tags coordinate-derived fallback addresses so they are
// unambiguously distinguishable from real geocoded addresses.
const OfflineMarker = "(offline)"

// FallbackAddress renders a coordinate pair as a deterministic offline
// address. Five decimal places keep the encoding stable to ~1 meter.
func FallbackAddress(c models.Coordinate) string {
	return fmt.Sprintf("%.5f, %.5f %s", c.Latitude, c.Longitude, OfflineMarker)
}

// IsFallback reports whether address is an offline fallback encoding.
func IsFallback(address string) bool {
	return strings.Contains(address, OfflineMarker)
}
