package models

// Requester identifies the authenticated caller, resolved from the JWT
// by the auth middleware.
type Requester struct {
	PhoneNumber  string   `json:"phoneNumber"`
	UID          string   `json:"uid"`
	DisplayName  string   `json:"displayName"`
	PhotoURL     string   `json:"photoURL"`
	IsSupport    bool     `json:"isSupport"`
	AdminOffices []string `json:"adminOffices"`
}

// CreateRequest is the body of POST /api/activities/create.
type CreateRequest struct {
	Template   string     `json:"template"`
	Timestamp  int64      `json:"timestamp"`
	Geopoint   Geopoint   `json:"geopoint"`
	Office     string     `json:"office"`
	Schedule   []Schedule `json:"schedule"`
	Venue      []Venue    `json:"venue"`
	Attachment Attachment `json:"attachment"`
	Share      []string   `json:"share"`
}

// UpdateRequest is the body of POST /api/activities/update.
type UpdateRequest struct {
	ActivityID string     `json:"activityId"`
	Timestamp  int64      `json:"timestamp"`
	Geopoint   Geopoint   `json:"geopoint"`
	Schedule   []Schedule `json:"schedule"`
	Venue      []Venue    `json:"venue"`
	Attachment Attachment `json:"attachment"`
}

// ChangeStatusRequest is the body of POST /api/activities/change-status.
type ChangeStatusRequest struct {
	ActivityID string   `json:"activityId"`
	Timestamp  int64    `json:"timestamp"`
	Geopoint   Geopoint `json:"geopoint"`
	Status     string   `json:"status"`
}

// ShareRequest is the body of POST /api/activities/share.
type ShareRequest struct {
	ActivityID string   `json:"activityId"`
	Timestamp  int64    `json:"timestamp"`
	Geopoint   Geopoint `json:"geopoint"`
	Share      []string `json:"share"`
}

// RemoveRequest is the body of POST /api/activities/remove.
type RemoveRequest struct {
	ActivityID string   `json:"activityId"`
	Timestamp  int64    `json:"timestamp"`
	Geopoint   Geopoint `json:"geopoint"`
	Remove     string   `json:"remove"`
}

// CommentRequest is the body of POST /api/activities/comment.
type CommentRequest struct {
	ActivityID string   `json:"activityId"`
	Timestamp  int64    `json:"timestamp"`
	Geopoint   Geopoint `json:"geopoint"`
	Comment    string   `json:"comment"`
}
