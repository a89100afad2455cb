package services

import (
	"fmt"
	"strings"
	"time"

	"activities-service/models"
)

// GetCanEditValue resolves one assignee's edit permission under the
// activity's canEditRule.
func GetCanEditValue(rule, phoneNumber, creator string, admins, employees map[string]bool) bool {
	switch rule {
	case models.CanEditRuleAll:
		return true
	case models.CanEditRuleNone:
		return false
	case models.CanEditRuleCreator:
		return phoneNumber == creator
	case models.CanEditRuleAdmin:
		return admins[phoneNumber]
	case models.CanEditRuleEmployee:
		return employees[phoneNumber]
	}
	return false
}

// ActivityName derives the display name shown in feeds. The first
// naming attachment field wins; the creator is the fallback.
func ActivityName(template string, attachment models.Attachment, creator models.Creator) string {
	prefix := strings.ToUpper(template)
	for _, field := range []string{"Name", "Number", "Admin", "Subscriber"} {
		if value := attachment.StringValue(field); value != "" {
			return fmt.Sprintf("%s: %s", prefix, value)
		}
	}
	if creator.DisplayName != "" {
		return fmt.Sprintf("%s: %s", prefix, creator.DisplayName)
	}
	return fmt.Sprintf("%s: %s", prefix, creator.PhoneNumber)
}

// AdjustedGeopoint renders a coordinate at reduced precision so nearby
// reports of the same place compare equal.
func AdjustedGeopoint(g models.Geopoint) string {
	return fmt.Sprintf("%.3f,%.3f", g.Latitude, g.Longitude)
}

// DateParts splits a unix millisecond timestamp into day of month,
// month and year.
func DateParts(ts int64) (date, month, year int) {
	t := time.UnixMilli(ts)
	return t.Day(), int(t.Month()), t.Year()
}

// EndOfDay returns the last millisecond of the day ts falls in.
func EndOfDay(ts int64) int64 {
	t := time.UnixMilli(ts)
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
	return end.UnixMilli()
}

// SameCalendarDay reports whether two timestamps fall on the same day.
func SameCalendarDay(a, b int64) bool {
	ta, tb := time.UnixMilli(a), time.UnixMilli(b)
	return ta.Year() == tb.Year() && ta.Month() == tb.Month() && ta.Day() == tb.Day()
}

// Slug normalizes a name for use in URLs and office paths.
func Slug(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// uniquePhones merges phone number lists, dropping empties and
// duplicates while preserving first-seen order.
func uniquePhones(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, phone := range list {
			if phone == "" || seen[phone] {
				continue
			}
			seen[phone] = true
			out = append(out, phone)
		}
	}
	return out
}

// ScheduleDays counts the calendar days covered by the schedule windows.
func ScheduleDays(schedules []models.Schedule) int {
	const dayMs = 24 * 60 * 60 * 1000
	total := 0
	for _, s := range schedules {
		if s.StartTime <= 0 || s.EndTime < s.StartTime {
			continue
		}
		total += int((EndOfDay(s.EndTime)-s.StartTime)/dayMs) + 1
	}
	return total
}
