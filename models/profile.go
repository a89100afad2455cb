package models

// Profile is one phone number known to the platform. A profile exists
// for every assignee ever seen, registered or not; UID is empty until
// the person signs up.
type Profile struct {
	PhoneNumber       string            `bson:"_id" json:"phoneNumber"`
	UID               string            `bson:"uid,omitempty" json:"uid,omitempty"`
	DisplayName       string            `bson:"displayName,omitempty" json:"displayName,omitempty"`
	PhotoURL          string            `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	RegistrationToken string            `bson:"registrationToken,omitempty" json:"-"`
	EmployeeOf        map[string]string `bson:"employeeOf,omitempty" json:"employeeOf,omitempty"`
}

// Subscription is a user's copy of a subscription activity. It controls
// which templates the subscriber can create activities from and carries
// the default include list.
type Subscription struct {
	ActivityID       string     `bson:"_id" json:"activityId"`
	Subscriber       string     `bson:"subscriber" json:"subscriber"`
	Office           string     `bson:"office" json:"office"`
	OfficeID         string     `bson:"officeId" json:"officeId"`
	Template         string     `bson:"template" json:"template"`
	Status           string     `bson:"status" json:"status"`
	CanEditRule      string     `bson:"canEditRule" json:"canEditRule"`
	Include          []string   `bson:"include" json:"include"`
	ScheduleNames    []string   `bson:"schedule" json:"schedule"`
	VenueDescriptors []string   `bson:"venue" json:"venue"`
	Attachment       Attachment `bson:"attachment,omitempty" json:"attachment,omitempty"`
	AddendumDocRef   string     `bson:"addendumDocRef,omitempty" json:"-"`
}
