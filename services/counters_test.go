package services

import (
	"reflect"
	"testing"

	"activities-service/models"
)

func TestDailyCounterIncrements(t *testing.T) {
	leave := &models.Activity{
		ID:       "leave-1",
		Office:   "Initech",
		Template: models.TemplateLeave,
	}

	t.Run("create with support request", func(t *testing.T) {
		c := &ChangeContext{
			After:    leave,
			Addendum: &models.Addendum{ID: "a-1", Action: models.ActionCreate, IsSupportRequest: true},
		}
		want := map[string]bool{
			"actionCounts.create":         true,
			"templateUsage.leave.create":  true,
			"totalActivities":             true,
			"totalByTemplate.leave":       true,
			"createCountByOffice.Initech": true,
			"withSupport":                 true,
		}
		inc := dailyCounterIncrements(c)
		if len(inc) != len(want) {
			t.Fatalf("got %d increments, want %d: %v", len(inc), len(want), inc)
		}
		for key := range want {
			if inc[key] != 1 {
				t.Errorf("missing increment %q", key)
			}
		}
	})

	t.Run("update on an existing activity", func(t *testing.T) {
		c := &ChangeContext{
			Before:   leave,
			After:    leave,
			Addendum: &models.Addendum{ID: "a-2", Action: models.ActionUpdate},
		}
		inc := dailyCounterIncrements(c)
		if len(inc) != 2 {
			t.Fatalf("got %d increments, want 2: %v", len(inc), inc)
		}
		if inc["actionCounts.update"] != 1 || inc["templateUsage.leave.update"] != 1 {
			t.Errorf("unexpected increments: %v", inc)
		}
	})
}

func TestUnflaggedDuties(t *testing.T) {
	duties := []models.ProfileActivity{
		{ActivityID: "duty-1"},
		{ActivityID: "duty-2"},
		{ActivityID: "duty-3"},
	}

	tests := []struct {
		name    string
		flagged []string
		want    []string
	}{
		{"nothing flagged yet", nil, []string{"duty-1", "duty-2", "duty-3"}},
		{"redelivery flags nothing twice", []string{"duty-1", "duty-2", "duty-3"}, []string{}},
		{"partial overlap", []string{"duty-2"}, []string{"duty-1", "duty-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]string, 0, len(duties))
			for _, duty := range unflaggedDuties(duties, tt.flagged) {
				got = append(got, duty.ActivityID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("unflagged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStampAddendum(t *testing.T) {
	activity := &models.Activity{ID: "act-1", Timestamp: 1000, AddendumDocRef: "old-addendum"}
	addendum := &models.Addendum{ID: "new-addendum", ActivityID: "act-1"}

	stampAddendum(activity, addendum, 2000)

	if activity.AddendumDocRef != "new-addendum" {
		t.Errorf("AddendumDocRef = %q, want %q", activity.AddendumDocRef, "new-addendum")
	}
	if activity.Timestamp != 2000 {
		t.Errorf("Timestamp = %d, want 2000", activity.Timestamp)
	}
}
