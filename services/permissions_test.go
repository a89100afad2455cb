package services

import (
	"testing"
	"time"

	"activities-service/models"
)

func TestGetCanEditValue(t *testing.T) {
	admins := map[string]bool{"+911111111111": true}
	employees := map[string]bool{"+912222222222": true}
	creator := "+913333333333"

	tests := []struct {
		name  string
		rule  string
		phone string
		want  bool
	}{
		{"all grants everyone", models.CanEditRuleAll, "+919999999999", true},
		{"none grants nobody", models.CanEditRuleNone, creator, false},
		{"creator matches", models.CanEditRuleCreator, creator, true},
		{"creator mismatch", models.CanEditRuleCreator, "+911111111111", false},
		{"admin matches", models.CanEditRuleAdmin, "+911111111111", true},
		{"admin mismatch", models.CanEditRuleAdmin, creator, false},
		{"employee matches", models.CanEditRuleEmployee, "+912222222222", true},
		{"employee mismatch", models.CanEditRuleEmployee, "+911111111111", false},
		{"unknown rule denies", "OWNER", creator, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetCanEditValue(tt.rule, tt.phone, creator, admins, employees)
			if got != tt.want {
				t.Errorf("GetCanEditValue(%q, %q) = %v, want %v", tt.rule, tt.phone, got, tt.want)
			}
		})
	}
}

func TestActivityName(t *testing.T) {
	creator := models.Creator{PhoneNumber: "+918527801093", DisplayName: "Asha"}

	tests := []struct {
		name       string
		template   string
		attachment models.Attachment
		want       string
	}{
		{
			name:       "name field wins",
			template:   "customer",
			attachment: models.Attachment{"Name": {Type: models.TypeString, Value: "Globex"}},
			want:       "CUSTOMER: Globex",
		},
		{
			name:       "admin field",
			template:   "admin",
			attachment: models.Attachment{"Admin": {Type: models.TypePhoneNumber, Value: "+911111111111"}},
			want:       "ADMIN: +911111111111",
		},
		{
			name:       "display name fallback",
			template:   "check-in",
			attachment: models.Attachment{},
			want:       "CHECK-IN: Asha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActivityName(tt.template, tt.attachment, creator); got != tt.want {
				t.Errorf("ActivityName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActivityNamePhoneFallback(t *testing.T) {
	creator := models.Creator{PhoneNumber: "+918527801093"}
	if got := ActivityName("leave", models.Attachment{}, creator); got != "LEAVE: +918527801093" {
		t.Errorf("ActivityName() = %q, want phone fallback", got)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  Gamma & Sons Pvt. Ltd.  ", "gamma-sons-pvt-ltd"},
		{"Already-Slugged", "already-slugged"},
		{"trailing!!!", "trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAdjustedGeopoint(t *testing.T) {
	g := models.Geopoint{Latitude: 28.61394567, Longitude: 77.20902345}
	if got := AdjustedGeopoint(g); got != "28.614,77.209" {
		t.Errorf("AdjustedGeopoint() = %q, want 28.614,77.209", got)
	}
}

func TestDateParts(t *testing.T) {
	ts := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.Local).UnixMilli()
	date, month, year := DateParts(ts)
	if date != 15 || month != 3 || year != 2024 {
		t.Errorf("DateParts() = (%d, %d, %d), want (15, 3, 2024)", date, month, year)
	}
}

func TestEndOfDayAndSameCalendarDay(t *testing.T) {
	morning := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.Local).UnixMilli()
	evening := time.Date(2024, time.March, 15, 21, 0, 0, 0, time.Local).UnixMilli()
	nextDay := time.Date(2024, time.March, 16, 0, 0, 1, 0, time.Local).UnixMilli()

	if !SameCalendarDay(morning, evening) {
		t.Error("expected same calendar day")
	}
	if SameCalendarDay(morning, nextDay) {
		t.Error("expected different calendar days")
	}

	end := EndOfDay(morning)
	if !SameCalendarDay(morning, end) {
		t.Error("EndOfDay left the original day")
	}
	if end <= evening {
		t.Error("EndOfDay is not past the evening of the same day")
	}
	if SameCalendarDay(end+1, morning) {
		t.Error("the millisecond after EndOfDay should be the next day")
	}
}

func TestScheduleDays(t *testing.T) {
	day := func(d int) int64 {
		return time.Date(2024, time.March, d, 10, 0, 0, 0, time.Local).UnixMilli()
	}

	tests := []struct {
		name      string
		schedules []models.Schedule
		want      int
	}{
		{"single day", []models.Schedule{{Name: "Leave Dates", StartTime: day(1), EndTime: day(1)}}, 1},
		{"three days", []models.Schedule{{Name: "Leave Dates", StartTime: day(1), EndTime: day(3)}}, 3},
		{"invalid window skipped", []models.Schedule{{Name: "Leave Dates", StartTime: day(3), EndTime: day(1)}}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScheduleDays(tt.schedules); got != tt.want {
				t.Errorf("ScheduleDays() = %d, want %d", got, tt.want)
			}
		})
	}
}
