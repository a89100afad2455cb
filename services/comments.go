package services

import (
	"fmt"
	"strings"

	"activities-service/models"
)

// commentName resolves how an actor is named in a comment shown to a
// given recipient.
func commentName(phone, displayName, recipient string) string {
	if phone == recipient {
		return "you"
	}
	if displayName != "" {
		return displayName
	}
	return phone
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func article(word string) string {
	if word == "" {
		return "a"
	}
	switch word[0] {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return "an"
	}
	return "a"
}

// ComposeComment renders the feed line one recipient sees for an
// addendum. Old is the pre-change activity for update actions.
func ComposeComment(addendum *models.Addendum, old, current *models.Activity, recipient string) string {
	actor := commentName(addendum.User, addendum.UserDisplayName, recipient)

	switch addendum.Action {
	case models.ActionCreate:
		comment := fmt.Sprintf("%s created %s %s", actor, article(addendum.Template), addendum.Template)
		if addendum.Template == models.TemplateCheckIn && addendum.Identifier != "" {
			comment = fmt.Sprintf("%s at %s", comment, addendum.Identifier)
		}
		return capitalize(comment)
	case models.ActionChangeStatus:
		verb := "updated"
		switch addendum.Status {
		case models.StatusConfirmed:
			verb = "confirmed"
		case models.StatusCancelled:
			verb = "cancelled"
		case models.StatusPending:
			verb = "reversed"
		}
		return capitalize(fmt.Sprintf("%s %s %s", actor, verb, addendum.ActivityName))
	case models.ActionShare:
		names := make([]string, 0, len(addendum.Share))
		for _, phone := range addendum.Share {
			if phone == recipient {
				names = append(names, "you")
			} else {
				names = append(names, phone)
			}
		}
		return capitalize(fmt.Sprintf("%s added %s", actor, strings.Join(names, ", ")))
	case models.ActionRemove:
		removed := addendum.Remove
		if removed == recipient {
			removed = "you"
		}
		return capitalize(fmt.Sprintf("%s removed %s", actor, removed))
	case models.ActionUpdate:
		fields := UpdatedFieldNames(old, current)
		if len(fields) == 0 {
			return capitalize(fmt.Sprintf("%s updated %s", actor, addendum.ActivityName))
		}
		return capitalize(fmt.Sprintf("%s updated %s", actor, strings.Join(fields, ", ")))
	case models.ActionComment:
		return addendum.Comment
	case models.ActionCheckIn:
		return capitalize(fmt.Sprintf("%s checked in", actor))
	}
	return capitalize(fmt.Sprintf("%s did %s", actor, addendum.Action))
}

// UpdatedFieldNames lists what an update actually changed: schedule
// names, venue descriptors and attachment fields. Photo fields are
// skipped; a new image is not worth a feed line.
func UpdatedFieldNames(old, current *models.Activity) []string {
	if old == nil || current == nil {
		return nil
	}
	var fields []string

	oldSchedules := make(map[string]models.Schedule, len(old.Schedule))
	for _, s := range old.Schedule {
		oldSchedules[s.Name] = s
	}
	for _, s := range current.Schedule {
		previous, ok := oldSchedules[s.Name]
		if !ok || previous.StartTime != s.StartTime || previous.EndTime != s.EndTime {
			fields = append(fields, s.Name)
		}
	}

	oldVenues := make(map[string]models.Venue, len(old.Venue))
	for _, v := range old.Venue {
		oldVenues[v.VenueDescriptor] = v
	}
	for _, v := range current.Venue {
		previous, ok := oldVenues[v.VenueDescriptor]
		if !ok || previous.Address != v.Address || previous.Location != v.Location || previous.Geopoint != v.Geopoint {
			fields = append(fields, v.VenueDescriptor)
		}
	}

	for name, field := range current.Attachment {
		if field.Type == models.TypeBase64 {
			continue
		}
		previous, ok := old.Attachment[name]
		if !ok || previous.Value != field.Value {
			fields = append(fields, name)
		}
	}

	return fields
}
