package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/willrad86/auditproof-mileage/internal/models"
)

// Geocoder performs forward and reverse lookups against a remote provider.
// Both calls are expected to honor short deadlines; failure and "no result"
// both surface as errors since callers degrade the same way for either.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
	Forward(ctx context.Context, address string) (models.Coordinate, error)
}

// DefaultTimeout bounds a single provider round trip.
const DefaultTimeout = 5 * time.Second

// HTTPGeocoder is a Nominatim-style HTTP geocoding client.
type HTTPGeocoder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGeocoder creates a geocoder against baseURL (e.g. a Nominatim
// endpoint). The underlying client enforces DefaultTimeout.
func NewHTTPGeocoder(baseURL string) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Reverse looks up the display address for a coordinate pair.
func (g *HTTPGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	var resp reverseResponse
	if err := g.get(ctx, "/reverse", q, &resp); err != nil {
		return "", err
	}
	if resp.DisplayName == "" {
		return "", fmt.Errorf("reverse geocode returned no result for %f,%f", lat, lon)
	}
	return resp.DisplayName, nil
}

// Forward looks up coordinates for a free-text address.
func (g *HTTPGeocoder) Forward(ctx context.Context, address string) (models.Coordinate, error) {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	q.Set("q", address)

	var results []searchResult
	if err := g.get(ctx, "/search", q, &results); err != nil {
		return models.Coordinate{}, err
	}
	if len(results) == 0 {
		return models.Coordinate{}, fmt.Errorf("forward geocode returned no result for %q", address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid latitude in geocode result: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid longitude in geocode result: %w", err)
	}

	return models.Coordinate{Latitude: lat, Longitude: lon}, nil
}

func (g *HTTPGeocoder) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "auditproof-mileage/1.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geocode request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode geocode response: %w", err)
	}
	return nil
}
