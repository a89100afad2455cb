package attachments

import (
	"fmt"
	"sort"
	"strings"

	"activities-service/models"
	"activities-service/validators"
)

// Query describes a lookup the caller must run against the activities
// collection before accepting the attachment.
type Query struct {
	Template string
	Office   string
	Field    string
	Value    string
}

// FilterResult is the outcome of filtering a request attachment against
// its template. The existence checks are returned as query descriptors
// so the filter itself stays free of storage access.
type FilterResult struct {
	IsValid bool
	Message string
	// PhoneNumbers are the values of phoneNumber-typed fields; they
	// become assignees of the activity.
	PhoneNumbers []string
	// ShouldNotExist lists uniqueness queries; a match rejects the
	// request as a duplicate.
	ShouldNotExist []Query
	// ShouldExist lists reference queries; a miss rejects the request.
	ShouldExist []Query
	// TemplateChecks lists template names that must exist.
	TemplateChecks []string
	// ProfileChecks lists phone numbers that must belong to registered
	// users.
	ProfileChecks []string
}

func reject(format string, args ...interface{}) FilterResult {
	return FilterResult{IsValid: false, Message: fmt.Sprintf(format, args...)}
}

// directTypes are attachment value types validated in place. Any other
// type names a template whose activity must already exist in the office.
var directTypes = map[string]bool{
	models.TypeString:      true,
	models.TypeOffice:      true,
	models.TypeWeekday:     true,
	models.TypePhoneNumber: true,
	models.TypeTemplate:    true,
	models.TypeHHMM:        true,
	models.TypeEmail:       true,
	models.TypeNumber:      true,
	models.TypeBase64:      true,
}

// FilterAttachment validates the request attachment against the shape
// the template declares and collects the follow-up existence queries.
func FilterAttachment(body models.Attachment, template *models.Template, office string) FilterResult {
	if len(body) != len(template.Attachment) {
		return reject("Expected %d attachment field(s) in the request body. Found %d", len(template.Attachment), len(body))
	}

	result := FilterResult{IsValid: true}

	// Fields are scanned in a fixed order so the first error reported
	// for a given body is always the same one.
	fields := make([]string, 0, len(template.Attachment))
	for field := range template.Attachment {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		templateField := template.Attachment[field]
		bodyField, ok := body[field]
		if !ok {
			return reject("The attachment field '%s' is missing from the request body", field)
		}
		if bodyField.Type != templateField.Type {
			return reject("The attachment field '%s' has an invalid type. Expected '%s'", field, templateField.Type)
		}

		value, isString := bodyField.Value.(string)
		if !isString && bodyField.Type != models.TypeNumber {
			return reject("The attachment field '%s' has an invalid value", field)
		}

		switch bodyField.Type {
		case models.TypePhoneNumber:
			if value != "" {
				if !validators.IsE164PhoneNumber(value) {
					return reject("The phone number '%s' in the attachment field '%s' is invalid", value, field)
				}
				result.PhoneNumbers = append(result.PhoneNumbers, value)
			}
		case models.TypeWeekday:
			if value != "" && !validators.IsValidWeekday(value) {
				return reject("'%s' in the attachment field '%s' is not a weekday", value, field)
			}
		case models.TypeHHMM:
			if value != "" && !validators.IsHHMMFormat(value) {
				return reject("'%s' in the attachment field '%s' is not a valid HH:MM time", value, field)
			}
		case models.TypeEmail:
			if value != "" && !validators.IsValidEmail(value) {
				return reject("'%s' in the attachment field '%s' is not a valid email", value, field)
			}
		case models.TypeBase64:
			if value != "" && !strings.HasPrefix(value, "data:image/jpg;base64,") && !strings.HasPrefix(value, "https://") {
				return reject("The attachment field '%s' has an invalid image value", field)
			}
		case models.TypeNumber:
			if _, ok := bodyField.Value.(float64); !ok {
				if _, ok := bodyField.Value.(int); !ok {
					return reject("The attachment field '%s' should be a number", field)
				}
			}
		}

		// Name and Number identify the activity within its office and
		// must be unique among non-cancelled activities.
		if field == "Name" || field == "Number" {
			if value == "" {
				return reject("The attachment field '%s' cannot be empty", field)
			}
			result.ShouldNotExist = append(result.ShouldNotExist, Query{
				Template: template.Name,
				Office:   office,
				Field:    field,
				Value:    value,
			})
		}

		if !directTypes[bodyField.Type] && value != "" {
			result.ShouldExist = append(result.ShouldExist, Query{
				Template: bodyField.Type,
				Office:   office,
				Field:    "Name",
				Value:    value,
			})
		}
	}

	switch template.Name {
	case models.TemplateSubscription:
		templateValue := body.StringValue("Template")
		if templateValue == models.TemplateOffice {
			return reject("Subscription to the template 'office' is not allowed")
		}
		if templateValue != "" {
			result.TemplateChecks = append(result.TemplateChecks, templateValue)
		}
		subscriber := body.StringValue("Subscriber")
		if !validators.IsE164PhoneNumber(subscriber) {
			return reject("The Subscriber '%s' is not a valid phone number", subscriber)
		}
	case models.TemplateAdmin:
		admin := body.StringValue("Admin")
		if !validators.IsE164PhoneNumber(admin) {
			return reject("The Admin '%s' is not a valid phone number", admin)
		}
		result.ProfileChecks = append(result.ProfileChecks, admin)
	}

	return result
}
