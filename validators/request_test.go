package validators

import (
	"testing"

	"activities-service/models"
)

var testGeopoint = models.Geopoint{Latitude: 28.6139, Longitude: 77.2090}

func TestValidateCreateRequest(t *testing.T) {
	base := models.CreateRequest{
		Template:  "leave",
		Office:    "Acme",
		Timestamp: 1700000000000,
		Geopoint:  testGeopoint,
	}

	tests := []struct {
		name      string
		mutate    func(r *models.CreateRequest)
		wantValid bool
	}{
		{"valid", func(r *models.CreateRequest) {}, true},
		{"negative timestamp", func(r *models.CreateRequest) { r.Timestamp = -1 }, false},
		{"bad geopoint", func(r *models.CreateRequest) { r.Geopoint.Latitude = 200 }, false},
		{"missing template", func(r *models.CreateRequest) { r.Template = " " }, false},
		{"missing office", func(r *models.CreateRequest) { r.Office = "" }, false},
		{"bad share phone", func(r *models.CreateRequest) { r.Share = []string{"12345"} }, false},
		{"valid share phone", func(r *models.CreateRequest) { r.Share = []string{"+918527801093"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			if result := ValidateCreateRequest(req); result.IsValid != tt.wantValid {
				t.Errorf("ValidateCreateRequest() IsValid = %v, want %v (message %q)", result.IsValid, tt.wantValid, result.Message)
			}
		})
	}
}

func TestValidateChangeStatusRequest(t *testing.T) {
	base := models.ChangeStatusRequest{
		ActivityID: "activity-1",
		Status:     models.StatusCancelled,
		Timestamp:  1700000000000,
		Geopoint:   testGeopoint,
	}

	tests := []struct {
		name      string
		mutate    func(r *models.ChangeStatusRequest)
		wantValid bool
	}{
		{"valid", func(r *models.ChangeStatusRequest) {}, true},
		{"missing activity id", func(r *models.ChangeStatusRequest) { r.ActivityID = "" }, false},
		{"unknown status", func(r *models.ChangeStatusRequest) { r.Status = "DONE" }, false},
		{"lowercase status", func(r *models.ChangeStatusRequest) { r.Status = "pending" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			if result := ValidateChangeStatusRequest(req); result.IsValid != tt.wantValid {
				t.Errorf("ValidateChangeStatusRequest() IsValid = %v, want %v (message %q)", result.IsValid, tt.wantValid, result.Message)
			}
		})
	}
}

func TestValidateShareRequest(t *testing.T) {
	base := models.ShareRequest{
		ActivityID: "activity-1",
		Share:      []string{"+918527801093"},
		Timestamp:  1700000000000,
		Geopoint:   testGeopoint,
	}

	tests := []struct {
		name      string
		mutate    func(r *models.ShareRequest)
		wantValid bool
	}{
		{"valid", func(r *models.ShareRequest) {}, true},
		{"empty share array", func(r *models.ShareRequest) { r.Share = nil }, false},
		{"invalid phone", func(r *models.ShareRequest) { r.Share = []string{"not-a-phone"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			if result := ValidateShareRequest(req); result.IsValid != tt.wantValid {
				t.Errorf("ValidateShareRequest() IsValid = %v, want %v (message %q)", result.IsValid, tt.wantValid, result.Message)
			}
		})
	}
}

func TestValidateRemoveRequest(t *testing.T) {
	req := models.RemoveRequest{
		ActivityID: "activity-1",
		Remove:     "+918527801093",
		Timestamp:  1700000000000,
		Geopoint:   testGeopoint,
	}
	if result := ValidateRemoveRequest(req); !result.IsValid {
		t.Fatalf("expected valid request, got %q", result.Message)
	}

	req.Remove = "8527801093"
	if result := ValidateRemoveRequest(req); result.IsValid {
		t.Fatal("expected non-E.164 remove phone to be rejected")
	}
}
