package services

import (
	"testing"
	"time"

	"activities-service/models"
)

func TestSanitizeOfficeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Globex Pvt Ltd", "globex"},
		{"Initech.com", "initech"},
		{"Vandelay Industries LLP", "vandelay industries"},
		{"Hooli Inc.", "hooli"},
		{"Plain Name", "plain name"},
	}

	for _, tt := range tests {
		if got := sanitizeOfficeName(tt.in); got != tt.want {
			t.Errorf("sanitizeOfficeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLeaveWindow(t *testing.T) {
	start := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.Local).UnixMilli()
	sameDayEnd := time.Date(2024, time.March, 15, 17, 0, 0, 0, time.Local).UnixMilli()
	laterEnd := time.Date(2024, time.March, 18, 17, 0, 0, 0, time.Local).UnixMilli()

	t.Run("single day stretches to end of day", func(t *testing.T) {
		activity := &models.Activity{
			Schedule: []models.Schedule{{Name: "Leave Dates", StartTime: start, EndTime: sameDayEnd}},
		}
		gotStart, gotEnd, ok := leaveWindow(activity)
		if !ok {
			t.Fatal("expected a usable window")
		}
		if gotStart != start {
			t.Errorf("start = %d, want %d", gotStart, start)
		}
		if gotEnd != EndOfDay(sameDayEnd) {
			t.Errorf("end = %d, want end of day %d", gotEnd, EndOfDay(sameDayEnd))
		}
	})

	t.Run("multi day window kept as is", func(t *testing.T) {
		activity := &models.Activity{
			Schedule: []models.Schedule{{Name: "Leave Dates", StartTime: start, EndTime: laterEnd}},
		}
		_, gotEnd, ok := leaveWindow(activity)
		if !ok {
			t.Fatal("expected a usable window")
		}
		if gotEnd != laterEnd {
			t.Errorf("end = %d, want %d", gotEnd, laterEnd)
		}
	})

	t.Run("no schedule", func(t *testing.T) {
		if _, _, ok := leaveWindow(&models.Activity{}); ok {
			t.Error("expected no window without a schedule")
		}
	})

	t.Run("inverted window", func(t *testing.T) {
		activity := &models.Activity{
			Schedule: []models.Schedule{{Name: "Leave Dates", StartTime: laterEnd, EndTime: start}},
		}
		if _, _, ok := leaveWindow(activity); ok {
			t.Error("expected no window when end precedes start")
		}
	})
}

func TestVenueWithin(t *testing.T) {
	office := models.Geopoint{Latitude: 28.6139, Longitude: 77.2090}
	venues := []models.Venue{
		{VenueDescriptor: "Venue"}, // unset geopoint, must be ignored
		{VenueDescriptor: "Site", Geopoint: office},
	}

	nearby := models.Geopoint{Latitude: 28.6145, Longitude: 77.2095}
	farAway := models.Geopoint{Latitude: 28.7139, Longitude: 77.2090}

	if !venueWithin(venues, nearby, 1.0) {
		t.Error("expected a point 100m away to match within 1km")
	}
	if venueWithin(venues, farAway, 1.0) {
		t.Error("expected a point 11km away not to match within 1km")
	}
	if venueWithin(nil, nearby, 1.0) {
		t.Error("expected no match without venues")
	}
}

func TestRoundTo2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.204, 1.2},
		{2.344, 2.34},
		{2.346, 2.35},
		{0, 0},
	}

	for _, tt := range tests {
		if got := roundTo2(tt.in); got != tt.want {
			t.Errorf("roundTo2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
