package validators

import "activities-service/models"

func validateEnvelope(timestamp int64, geopoint models.Geopoint) Result {
	if !IsValidDate(timestamp) {
		return invalid("The timestamp in the request body is invalid")
	}
	if !IsValidGeopoint(geopoint) {
		return invalid("The geopoint in the request body is invalid")
	}
	return valid()
}

func validateActivityID(activityID string) Result {
	if !IsNonEmptyString(activityID) {
		return invalid("The activityId in the request body is missing or invalid")
	}
	return valid()
}

// ValidateCreateRequest checks the create body envelope. Schedule, venue
// and attachment are validated later against the template.
func ValidateCreateRequest(req models.CreateRequest) Result {
	if r := validateEnvelope(req.Timestamp, req.Geopoint); !r.IsValid {
		return r
	}
	if !IsNonEmptyString(req.Template) {
		return invalid("The template in the request body is missing or invalid")
	}
	if !IsNonEmptyString(req.Office) {
		return invalid("The office in the request body is missing or invalid")
	}
	for _, phone := range req.Share {
		if !IsE164PhoneNumber(phone) {
			return invalid("The phone number '%s' in the share array is invalid", phone)
		}
	}
	return valid()
}

func ValidateUpdateRequest(req models.UpdateRequest) Result {
	if r := validateEnvelope(req.Timestamp, req.Geopoint); !r.IsValid {
		return r
	}
	return validateActivityID(req.ActivityID)
}

func ValidateChangeStatusRequest(req models.ChangeStatusRequest) Result {
	if r := validateEnvelope(req.Timestamp, req.Geopoint); !r.IsValid {
		return r
	}
	if r := validateActivityID(req.ActivityID); !r.IsValid {
		return r
	}
	if !IsValidStatus(req.Status) {
		return invalid("'%s' is not a valid status", req.Status)
	}
	return valid()
}

func ValidateShareRequest(req models.ShareRequest) Result {
	if r := validateEnvelope(req.Timestamp, req.Geopoint); !r.IsValid {
		return r
	}
	if r := validateActivityID(req.ActivityID); !r.IsValid {
		return r
	}
	if len(req.Share) == 0 {
		return invalid("The share array in the request body is missing or empty")
	}
	for _, phone := range req.Share {
		if !IsE164PhoneNumber(phone) {
			return invalid("The phone number '%s' in the share array is invalid", phone)
		}
	}
	return valid()
}

func ValidateRemoveRequest(req models.RemoveRequest) Result {
	if r := validateEnvelope(req.Timestamp, req.Geopoint); !r.IsValid {
		return r
	}
	if r := validateActivityID(req.ActivityID); !r.IsValid {
		return r
	}
	if !IsE164PhoneNumber(req.Remove) {
		return invalid("The phone number '%s' in the remove field is invalid", req.Remove)
	}
	return valid()
}

func ValidateCommentRequest(req models.CommentRequest) Result {
	if r := validateEnvelope(req.Timestamp, req.Geopoint); !r.IsValid {
		return r
	}
	if r := validateActivityID(req.ActivityID); !r.IsValid {
		return r
	}
	if !IsNonEmptyString(req.Comment) {
		return invalid("The comment in the request body is missing or invalid")
	}
	return valid()
}
