package services

import (
	"testing"

	"activities-service/models"
)

const (
	actorPhone    = "+911111111111"
	someoneElse   = "+912222222222"
	thirdAssignee = "+913333333333"
)

func TestComposeCommentCreate(t *testing.T) {
	addendum := &models.Addendum{
		User:            actorPhone,
		UserDisplayName: "Asha",
		Action:          models.ActionCreate,
		Template:        "leave",
	}

	if got := ComposeComment(addendum, nil, nil, actorPhone); got != "You created a leave" {
		t.Errorf("self view = %q, want %q", got, "You created a leave")
	}
	if got := ComposeComment(addendum, nil, nil, someoneElse); got != "Asha created a leave" {
		t.Errorf("other view = %q, want %q", got, "Asha created a leave")
	}
}

func TestComposeCommentCreateUsesArticleAn(t *testing.T) {
	addendum := &models.Addendum{
		User:            actorPhone,
		UserDisplayName: "Asha",
		Action:          models.ActionCreate,
		Template:        "admin",
	}

	if got := ComposeComment(addendum, nil, nil, someoneElse); got != "Asha created an admin" {
		t.Errorf("got %q, want %q", got, "Asha created an admin")
	}
}

func TestComposeCommentCheckInCreateNamesThePlace(t *testing.T) {
	addendum := &models.Addendum{
		User:            actorPhone,
		UserDisplayName: "Asha",
		Action:          models.ActionCreate,
		Template:        models.TemplateCheckIn,
		Identifier:      "Connaught Place",
	}

	want := "Asha created a check-in at Connaught Place"
	if got := ComposeComment(addendum, nil, nil, someoneElse); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComposeCommentChangeStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{models.StatusConfirmed, "Asha confirmed LEAVE: Asha"},
		{models.StatusCancelled, "Asha cancelled LEAVE: Asha"},
		{models.StatusPending, "Asha reversed LEAVE: Asha"},
	}

	for _, tt := range tests {
		addendum := &models.Addendum{
			User:            actorPhone,
			UserDisplayName: "Asha",
			Action:          models.ActionChangeStatus,
			Status:          tt.status,
			ActivityName:    "LEAVE: Asha",
		}
		if got := ComposeComment(addendum, nil, nil, someoneElse); got != tt.want {
			t.Errorf("status %s: got %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestComposeCommentShareUsesYouForRecipient(t *testing.T) {
	addendum := &models.Addendum{
		User:            actorPhone,
		UserDisplayName: "Asha",
		Action:          models.ActionShare,
		Share:           []string{someoneElse, thirdAssignee},
	}

	want := "Asha added you, " + thirdAssignee
	if got := ComposeComment(addendum, nil, nil, someoneElse); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComposeCommentRemove(t *testing.T) {
	addendum := &models.Addendum{
		User:            actorPhone,
		UserDisplayName: "Asha",
		Action:          models.ActionRemove,
		Remove:          someoneElse,
	}

	if got := ComposeComment(addendum, nil, nil, someoneElse); got != "Asha removed you" {
		t.Errorf("got %q, want %q", got, "Asha removed you")
	}
	if got := ComposeComment(addendum, nil, nil, thirdAssignee); got != "Asha removed "+someoneElse {
		t.Errorf("got %q", got)
	}
}

func TestComposeCommentUpdateListsChangedFields(t *testing.T) {
	old := &models.Activity{
		Schedule: []models.Schedule{{Name: "Leave Dates", StartTime: 1000, EndTime: 2000}},
		Attachment: models.Attachment{
			"Reason": {Type: models.TypeString, Value: "sick"},
		},
	}
	current := &models.Activity{
		Schedule: []models.Schedule{{Name: "Leave Dates", StartTime: 1000, EndTime: 3000}},
		Attachment: models.Attachment{
			"Reason": {Type: models.TypeString, Value: "sick"},
		},
	}
	addendum := &models.Addendum{
		User:            actorPhone,
		UserDisplayName: "Asha",
		Action:          models.ActionUpdate,
		ActivityName:    "LEAVE: Asha",
	}

	if got := ComposeComment(addendum, old, current, someoneElse); got != "Asha updated Leave Dates" {
		t.Errorf("got %q, want %q", got, "Asha updated Leave Dates")
	}
}

func TestComposeCommentCommentPassthrough(t *testing.T) {
	addendum := &models.Addendum{
		User:    actorPhone,
		Action:  models.ActionComment,
		Comment: "running late, start without me",
	}

	if got := ComposeComment(addendum, nil, nil, someoneElse); got != "running late, start without me" {
		t.Errorf("got %q", got)
	}
}

func TestUpdatedFieldNames(t *testing.T) {
	old := &models.Activity{
		Schedule: []models.Schedule{{Name: "Window", StartTime: 1000, EndTime: 2000}},
		Venue: []models.Venue{{
			VenueDescriptor: "Venue",
			Address:         "12 Main St",
			Geopoint:        models.Geopoint{Latitude: 1, Longitude: 1},
		}},
		Attachment: models.Attachment{
			"Name":  {Type: models.TypeString, Value: "Globex"},
			"Photo": {Type: models.TypeBase64, Value: "https://cdn.example.com/old.jpg"},
		},
	}
	current := &models.Activity{
		Schedule: []models.Schedule{{Name: "Window", StartTime: 1000, EndTime: 2000}},
		Venue: []models.Venue{{
			VenueDescriptor: "Venue",
			Address:         "14 Main St",
			Geopoint:        models.Geopoint{Latitude: 1, Longitude: 1},
		}},
		Attachment: models.Attachment{
			"Name":  {Type: models.TypeString, Value: "Globex"},
			"Photo": {Type: models.TypeBase64, Value: "https://cdn.example.com/new.jpg"},
		},
	}

	fields := UpdatedFieldNames(old, current)
	if len(fields) != 1 || fields[0] != "Venue" {
		t.Errorf("UpdatedFieldNames() = %v, want [Venue]", fields)
	}
}

func TestUpdatedFieldNamesNilActivities(t *testing.T) {
	if fields := UpdatedFieldNames(nil, &models.Activity{}); fields != nil {
		t.Errorf("expected nil for missing old activity, got %v", fields)
	}
}
