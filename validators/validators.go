package validators

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"activities-service/models"
)

// Result carries the outcome of a structural validation. Message is set
// only when IsValid is false and describes the first failure found.
type Result struct {
	IsValid bool
	Message string
}

func valid() Result {
	return Result{IsValid: true}
}

func invalid(format string, args ...interface{}) Result {
	return Result{IsValid: false, Message: fmt.Sprintf(format, args...)}
}

var (
	phoneRegexp = regexp.MustCompile(`^\+[1-9]\d{4,14}$`)
	emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	hhmmRegexp  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

var weekdays = map[string]bool{
	"monday":    true,
	"tuesday":   true,
	"wednesday": true,
	"thursday":  true,
	"friday":    true,
	"saturday":  true,
	"sunday":    true,
}

var statuses = map[string]bool{
	models.StatusPending:   true,
	models.StatusConfirmed: true,
	models.StatusCancelled: true,
}

var canEditRules = map[string]bool{
	models.CanEditRuleAll:      true,
	models.CanEditRuleNone:     true,
	models.CanEditRuleAdmin:    true,
	models.CanEditRuleCreator:  true,
	models.CanEditRuleEmployee: true,
}

// IsValidDate reports whether ts is a usable unix millisecond
// timestamp. Zero means the date is unset, which is allowed.
func IsValidDate(ts int64) bool {
	return ts >= 0
}

// IsValidGeopoint reports whether g is a finite coordinate within WGS84
// bounds.
func IsValidGeopoint(g models.Geopoint) bool {
	if math.IsNaN(g.Latitude) || math.IsInf(g.Latitude, 0) {
		return false
	}
	if math.IsNaN(g.Longitude) || math.IsInf(g.Longitude, 0) {
		return false
	}
	if g.Latitude < -90 || g.Latitude > 90 {
		return false
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return false
	}
	return true
}

func IsNonEmptyString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsE164PhoneNumber reports whether s is a phone number in E.164 form.
func IsE164PhoneNumber(s string) bool {
	return phoneRegexp.MatchString(s)
}

func IsValidEmail(s string) bool {
	return emailRegexp.MatchString(s)
}

// IsHHMMFormat reports whether s is a 24-hour HH:MM time string.
func IsHHMMFormat(s string) bool {
	return hhmmRegexp.MatchString(s)
}

func IsValidWeekday(s string) bool {
	return weekdays[strings.ToLower(s)]
}

func IsValidStatus(s string) bool {
	return statuses[s]
}

func IsValidCanEditRule(s string) bool {
	return canEditRules[s]
}

// ValidateSchedules checks the schedule array against the names the
// template requires. The first failure wins.
func ValidateSchedules(schedules []models.Schedule, names []string) Result {
	if len(schedules) != len(names) {
		return invalid("Expected %d schedule object(s) in the request body. Found %d", len(names), len(schedules))
	}

	allowed := make(map[string]bool, len(names))
	for _, name := range names {
		allowed[name] = true
	}

	seen := make(map[string]bool, len(schedules))
	for _, schedule := range schedules {
		if !IsNonEmptyString(schedule.Name) || !allowed[schedule.Name] {
			return invalid("The schedule name '%s' is invalid. Use: %s", schedule.Name, strings.Join(names, ", "))
		}
		if seen[schedule.Name] {
			return invalid("Duplicate schedule name '%s' in the request body", schedule.Name)
		}
		seen[schedule.Name] = true
		if !IsValidDate(schedule.StartTime) {
			return invalid("The startTime of the schedule '%s' is invalid", schedule.Name)
		}
		if !IsValidDate(schedule.EndTime) {
			return invalid("The endTime of the schedule '%s' is invalid", schedule.Name)
		}
		// Open-ended schedules leave one or both times unset; ordering
		// only applies when both are present.
		if schedule.StartTime > 0 && schedule.EndTime > 0 && schedule.StartTime > schedule.EndTime {
			return invalid("The startTime of the schedule '%s' is greater than its endTime", schedule.Name)
		}
	}

	return valid()
}

// ValidateVenues checks the venue array against the descriptors the
// template requires. The first failure wins.
func ValidateVenues(venues []models.Venue, descriptors []string) Result {
	if len(venues) != len(descriptors) {
		return invalid("Expected %d venue object(s) in the request body. Found %d", len(descriptors), len(venues))
	}

	allowed := make(map[string]bool, len(descriptors))
	for _, descriptor := range descriptors {
		allowed[descriptor] = true
	}

	seen := make(map[string]bool, len(venues))
	for _, venue := range venues {
		if !IsNonEmptyString(venue.VenueDescriptor) || !allowed[venue.VenueDescriptor] {
			return invalid("The venueDescriptor '%s' is invalid. Use: %s", venue.VenueDescriptor, strings.Join(descriptors, ", "))
		}
		if seen[venue.VenueDescriptor] {
			return invalid("Duplicate venueDescriptor '%s' in the request body", venue.VenueDescriptor)
		}
		seen[venue.VenueDescriptor] = true
		if !IsValidGeopoint(venue.Geopoint) {
			return invalid("The geopoint of the venue '%s' is invalid", venue.VenueDescriptor)
		}
	}

	return valid()
}
