package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"

	"activities-service/models"
	"activities-service/utils"

	"github.com/sony/gobreaker"
)

// GeocodeResult is the reverse-geocoded description of a coordinate.
type GeocodeResult struct {
	City       string `json:"city"`
	State      string `json:"state"`
	Locality   string `json:"locality"`
	URL        string `json:"url"`
	Identifier string `json:"identifier"`
}

// Place is one candidate returned by the places autocomplete lookup.
type Place struct {
	PlaceID  string          `json:"placeId"`
	Name     string          `json:"name"`
	Address  string          `json:"address"`
	Geopoint models.Geopoint `json:"geopoint"`
}

// MapsClient is the geocoding collaborator. Callers fall back to
// HaversineKilometers when a call fails; no maps failure may fail an
// activity write.
type MapsClient interface {
	ReverseGeocode(ctx context.Context, g models.Geopoint) (GeocodeResult, error)
	// Distance returns road distance in kilometers. Ordering matters:
	// from is the origin, to the destination.
	Distance(ctx context.Context, from, to models.Geopoint) (float64, error)
	PlacesAutocomplete(ctx context.Context, query string) ([]Place, error)
}

// HTTPMapsClient talks to the maps gateway over HTTP.
type HTTPMapsClient struct {
	baseURL string
	apiKey  string
	http    *utils.HTTPClient
	cb      *gobreaker.CircuitBreaker
}

func NewHTTPMapsClient(baseURL, apiKey string, httpClient *utils.HTTPClient, cb *gobreaker.CircuitBreaker) *HTTPMapsClient {
	return &HTTPMapsClient{baseURL: baseURL, apiKey: apiKey, http: httpClient, cb: cb}
}

func (c *HTTPMapsClient) ReverseGeocode(ctx context.Context, g models.Geopoint) (GeocodeResult, error) {
	endpoint := fmt.Sprintf("%s/geocode?latlng=%f,%f&key=%s", c.baseURL, g.Latitude, g.Longitude, url.QueryEscape(c.apiKey))

	status, body, err := c.http.Get(ctx, c.cb, endpoint)
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("reverse geocode failed: %v", err)
	}
	if status != http.StatusOK {
		return GeocodeResult{}, fmt.Errorf("reverse geocode returned status %d", status)
	}

	var result GeocodeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return GeocodeResult{}, fmt.Errorf("failed to decode geocode response: %v", err)
	}
	return result, nil
}

func (c *HTTPMapsClient) Distance(ctx context.Context, from, to models.Geopoint) (float64, error) {
	endpoint := fmt.Sprintf("%s/distancematrix?origins=%f,%f&destinations=%f,%f&key=%s",
		c.baseURL, from.Latitude, from.Longitude, to.Latitude, to.Longitude, url.QueryEscape(c.apiKey))

	status, body, err := c.http.Get(ctx, c.cb, endpoint)
	if err != nil {
		return 0, fmt.Errorf("distance matrix failed: %v", err)
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("distance matrix returned status %d", status)
	}

	var result struct {
		DistanceKilometers float64 `json:"distanceKilometers"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to decode distance response: %v", err)
	}
	return result.DistanceKilometers, nil
}

func (c *HTTPMapsClient) PlacesAutocomplete(ctx context.Context, query string) ([]Place, error) {
	endpoint := fmt.Sprintf("%s/places/autocomplete?query=%s&key=%s", c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey))

	status, body, err := c.http.Get(ctx, c.cb, endpoint)
	if err != nil {
		return nil, fmt.Errorf("places autocomplete failed: %v", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("places autocomplete returned status %d", status)
	}

	var result struct {
		Places []Place `json:"places"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode places response: %v", err)
	}
	return result.Places, nil
}

const earthRadiusKm = 6371.0

// HaversineKilometers is the great-circle distance between two points.
// Distances under half a kilometer are treated as no movement.
func HaversineKilometers(from, to models.Geopoint) float64 {
	lat1 := from.Latitude * math.Pi / 180
	lat2 := to.Latitude * math.Pi / 180
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180
	dLng := (to.Longitude - from.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	distance := earthRadiusKm * c
	if distance < 0.5 {
		return 0
	}
	return distance
}
