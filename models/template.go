package models

// Attachment field types. Values typed with anything outside this set
// reference another activity of that template and are resolved with an
// existence query.
const (
	TypeString      = "string"
	TypeOffice      = "office"
	TypeWeekday     = "weekday"
	TypePhoneNumber = "phoneNumber"
	TypeTemplate    = "template"
	TypeHHMM        = "HH:MM"
	TypeEmail       = "email"
	TypeNumber      = "number"
	TypeBase64      = "base64"
)

// Template describes the shape of activities created from it.
type Template struct {
	Name             string     `bson:"name" json:"name"`
	Comment          string     `bson:"comment,omitempty" json:"comment,omitempty"`
	StatusOnCreate   string     `bson:"statusOnCreate" json:"statusOnCreate"`
	CanEditRule      string     `bson:"canEditRule" json:"canEditRule"`
	Hidden           int        `bson:"hidden" json:"hidden"`
	ScheduleNames    []string   `bson:"schedule" json:"schedule"`
	VenueDescriptors []string   `bson:"venue" json:"venue"`
	Attachment       Attachment `bson:"attachment" json:"attachment"`
}
