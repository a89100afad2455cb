package clients

import (
	"math"
	"testing"

	"activities-service/models"
)

func TestHaversineKilometers(t *testing.T) {
	delhi := models.Geopoint{Latitude: 28.6139, Longitude: 77.2090}
	mumbai := models.Geopoint{Latitude: 19.0760, Longitude: 72.8777}

	got := HaversineKilometers(delhi, mumbai)
	if math.Abs(got-1153) > 10 {
		t.Errorf("HaversineKilometers(delhi, mumbai) = %.1f, want about 1153", got)
	}

	if got := HaversineKilometers(delhi, delhi); got != 0 {
		t.Errorf("distance to self = %v, want 0", got)
	}
}

func TestHaversineKilometersClampsShortHops(t *testing.T) {
	// About 110 meters apart. GPS jitter at this scale should not count
	// as travel.
	a := models.Geopoint{Latitude: 28.6139, Longitude: 77.2090}
	b := models.Geopoint{Latitude: 28.6149, Longitude: 77.2090}

	if got := HaversineKilometers(a, b); got != 0 {
		t.Errorf("HaversineKilometers for a 110m hop = %v, want 0", got)
	}
}

func TestHaversineKilometersJustOverThreshold(t *testing.T) {
	// About 0.55 km along a meridian.
	a := models.Geopoint{Latitude: 28.6139, Longitude: 77.2090}
	b := models.Geopoint{Latitude: 28.6189, Longitude: 77.2090}

	got := HaversineKilometers(a, b)
	if got == 0 {
		t.Fatal("expected a distance above the half kilometer clamp")
	}
	if math.Abs(got-0.556) > 0.02 {
		t.Errorf("HaversineKilometers = %.3f, want about 0.556", got)
	}
}
