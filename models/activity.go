package models

// Activity statuses. Every activity is in exactly one of these.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Edit permission rules carried by templates and activities.
const (
	CanEditRuleAll      = "ALL"
	CanEditRuleNone     = "NONE"
	CanEditRuleAdmin    = "ADMIN"
	CanEditRuleCreator  = "CREATOR"
	CanEditRuleEmployee = "EMPLOYEE"
)

// Actions recorded on addendums.
const (
	ActionCreate            = "create"
	ActionUpdate            = "update"
	ActionChangeStatus      = "change-status"
	ActionShare             = "share"
	ActionRemove            = "remove"
	ActionComment           = "comment"
	ActionCheckIn           = "check-in"
	ActionInstall           = "install"
	ActionSignup            = "signup"
	ActionBranchView        = "branch-view"
	ActionProductView       = "product-view"
	ActionVideoPlay         = "video-play"
	ActionUpdatePhoneNumber = "update-phone-number"
)

// Template names the reactive engine dispatches on.
const (
	TemplateOffice         = "office"
	TemplateEmployee       = "employee"
	TemplateSubscription   = "subscription"
	TemplateAdmin          = "admin"
	TemplateLeave          = "leave"
	TemplateCheckIn        = "check-in"
	TemplateClaim          = "claim"
	TemplateBranch         = "branch"
	TemplateCustomer       = "customer"
	TemplateDuty           = "duty"
	TemplateDailyAllowance = "daily allowance"
	TemplateKmAllowance    = "km allowance"
	TemplateRecipient      = "recipient"
)

// Geopoint is a WGS84 coordinate as sent by clients. Accuracy is in
// meters and optional.
type Geopoint struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
	Accuracy  float64 `bson:"accuracy,omitempty" json:"accuracy,omitempty"`
	Provider  string  `bson:"provider,omitempty" json:"provider,omitempty"`
}

// Schedule is a named time window on an activity.
type Schedule struct {
	Name      string `bson:"name" json:"name"`
	StartTime int64  `bson:"startTime" json:"startTime"`
	EndTime   int64  `bson:"endTime" json:"endTime"`
}

// Venue is a named place on an activity.
type Venue struct {
	VenueDescriptor string   `bson:"venueDescriptor" json:"venueDescriptor"`
	Address         string   `bson:"address" json:"address"`
	Location        string   `bson:"location" json:"location"`
	Geopoint        Geopoint `bson:"geopoint" json:"geopoint"`
}

// AttachmentField is one typed field of an activity attachment.
type AttachmentField struct {
	Type  string      `bson:"type" json:"type"`
	Value interface{} `bson:"value" json:"value"`
}

// Attachment maps field names to typed values.
type Attachment map[string]AttachmentField

// StringValue returns the field value as a string, or "" when the field
// is missing or not a string.
func (a Attachment) StringValue(field string) string {
	f, ok := a[field]
	if !ok {
		return ""
	}
	s, ok := f.Value.(string)
	if !ok {
		return ""
	}
	return s
}

// NumberValue returns the field value as a float64, or 0 when the field
// is missing or not numeric.
func (a Attachment) NumberValue(field string) float64 {
	f, ok := a[field]
	if !ok {
		return 0
	}
	switch v := f.Value.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	}
	return 0
}

// PhoneNumbers collects the values of all phoneNumber-typed fields.
func (a Attachment) PhoneNumbers() []string {
	var phones []string
	for _, field := range a {
		if field.Type != TypePhoneNumber {
			continue
		}
		if s, ok := field.Value.(string); ok && s != "" {
			phones = append(phones, s)
		}
	}
	return phones
}

// Creator identifies who created an activity.
type Creator struct {
	PhoneNumber string `bson:"phoneNumber" json:"phoneNumber"`
	DisplayName string `bson:"displayName" json:"displayName"`
	PhotoURL    string `bson:"photoURL" json:"photoURL"`
}

// Activity is the root activity document.
type Activity struct {
	ID                string     `bson:"_id" json:"activityId"`
	Office            string     `bson:"office" json:"office"`
	OfficeID          string     `bson:"officeId" json:"officeId"`
	Template          string     `bson:"template" json:"template"`
	Status            string     `bson:"status" json:"status"`
	CanEditRule       string     `bson:"canEditRule" json:"canEditRule"`
	ActivityName      string     `bson:"activityName" json:"activityName"`
	Hidden            int        `bson:"hidden" json:"hidden"`
	Creator           Creator    `bson:"creator" json:"creator"`
	Schedule          []Schedule `bson:"schedule" json:"schedule"`
	Venue             []Venue    `bson:"venue" json:"venue"`
	Attachment        Attachment `bson:"attachment" json:"attachment"`
	Timestamp         int64      `bson:"timestamp" json:"timestamp"`
	AddendumDocRef    string     `bson:"addendumDocRef" json:"-"`
	AdjustedGeopoints string     `bson:"adjustedGeopoints,omitempty" json:"-"`
	RelevantTime      int64      `bson:"relevantTime,omitempty" json:"relevantTime,omitempty"`
	CheckIns          []int64    `bson:"checkIns,omitempty" json:"-"`
	ConflictingDuties []string   `bson:"conflictingDuties,omitempty" json:"-"`
	CreationTimestamp int64      `bson:"creationTimestamp,omitempty" json:"-"`
	CreationDate      int        `bson:"creationDate,omitempty" json:"-"`
	CreationMonth     int        `bson:"creationMonth,omitempty" json:"-"`
	CreationYear      int        `bson:"creationYear,omitempty" json:"-"`
	// Fields below are set only on the office-scoped copy.
	IsCancelled   bool     `bson:"isCancelled,omitempty" json:"-"`
	AdminsCanEdit []string `bson:"adminsCanEdit,omitempty" json:"-"`
	Slug          string   `bson:"slug,omitempty" json:"-"`
}

// Assignee links a phone number to an activity with its edit permission.
type Assignee struct {
	ActivityID   string `bson:"activityId" json:"activityId"`
	PhoneNumber  string `bson:"phoneNumber" json:"phoneNumber"`
	CanEdit      bool   `bson:"canEdit" json:"canEdit"`
	AddToInclude bool   `bson:"addToInclude" json:"addToInclude"`
}

// AssigneeDetail is the auth-enriched roster entry denormalized onto
// per-user activity copies.
type AssigneeDetail struct {
	PhoneNumber string `bson:"phoneNumber" json:"phoneNumber"`
	DisplayName string `bson:"displayName" json:"displayName"`
	PhotoURL    string `bson:"photoURL" json:"photoURL"`
}

// ProfileActivity is the per-user denormalized view of an activity.
type ProfileActivity struct {
	PhoneNumber  string           `bson:"phoneNumber" json:"phoneNumber"`
	ActivityID   string           `bson:"activityId" json:"activityId"`
	Office       string           `bson:"office" json:"office"`
	OfficeID     string           `bson:"officeId" json:"officeId"`
	Template     string           `bson:"template" json:"template"`
	Status       string           `bson:"status" json:"status"`
	ActivityName string           `bson:"activityName" json:"activityName"`
	Creator      Creator          `bson:"creator" json:"creator"`
	Schedule     []Schedule       `bson:"schedule" json:"schedule"`
	Venue        []Venue          `bson:"venue" json:"venue"`
	Attachment   Attachment       `bson:"attachment" json:"attachment"`
	CanEdit      bool             `bson:"canEdit" json:"canEdit"`
	Assignees    []AssigneeDetail `bson:"assignees" json:"assignees"`
	Timestamp    int64            `bson:"timestamp" json:"timestamp"`
	RelevantTime int64            `bson:"relevantTime,omitempty" json:"relevantTime,omitempty"`
	Type         string           `bson:"type,omitempty" json:"type,omitempty"`
}

// ChangeEvent is one persisted activity change handed to the reactive
// engine. Before is nil on create. Depth counts how many engine-made
// writes led to this event; events from the HTTP commands carry zero.
type ChangeEvent struct {
	Before     *Activity
	After      *Activity
	AddendumID string
	Depth      int
}
