package models

// Attendance is the monthly per-person attendance document seeded when a
// check-in subscription is created and updated on every check-in.
type Attendance struct {
	Office           string `bson:"office" json:"office"`
	OfficeID         string `bson:"officeId" json:"officeId"`
	PhoneNumber      string `bson:"phoneNumber" json:"phoneNumber"`
	Month            int    `bson:"month" json:"month"`
	Year             int    `bson:"year" json:"year"`
	FirstCheckIn     int64  `bson:"firstCheckIn,omitempty" json:"firstCheckIn,omitempty"`
	LastCheckIn      int64  `bson:"lastCheckIn,omitempty" json:"lastCheckIn,omitempty"`
	NumberOfCheckIns int    `bson:"numberOfCheckIns" json:"numberOfCheckIns"`
}

// Reimbursement is one claim entry in a day's status ledger, keyed by
// the claiming activity's id. Amount is in the smallest currency unit.
type Reimbursement struct {
	ActivityID        string  `bson:"activityId" json:"activityId"`
	Template          string  `bson:"template" json:"template"`
	Name              string  `bson:"name,omitempty" json:"name,omitempty"`
	Amount            int64   `bson:"amount" json:"amount"`
	Currency          string  `bson:"currency" json:"currency"`
	Status            string  `bson:"status" json:"status"`
	ConfirmedBy       string  `bson:"confirmedBy,omitempty" json:"confirmedBy,omitempty"`
	ApprovalTimestamp int64   `bson:"approvalTimestamp,omitempty" json:"approvalTimestamp,omitempty"`
	Distance          float64 `bson:"distance,omitempty" json:"distance,omitempty"`
	IsLocal           bool    `bson:"isLocal,omitempty" json:"isLocal,omitempty"`
	IsTravel          bool    `bson:"isTravel,omitempty" json:"isTravel,omitempty"`
	IncludeBranch     bool    `bson:"includeBranch,omitempty" json:"includeBranch,omitempty"`
}

// DayStatus holds everything recorded against one calendar day.
type DayStatus struct {
	Reimbursements map[string]Reimbursement `bson:"reimbursements,omitempty" json:"reimbursements,omitempty"`
}

// MonthlyStatus is the per-person per-month ledger document.
type MonthlyStatus struct {
	Office       string               `bson:"office" json:"office"`
	OfficeID     string               `bson:"officeId" json:"officeId"`
	PhoneNumber  string               `bson:"phoneNumber" json:"phoneNumber"`
	Month        int                  `bson:"month" json:"month"`
	Year         int                  `bson:"year" json:"year"`
	StatusObject map[string]DayStatus `bson:"statusObject,omitempty" json:"statusObject,omitempty"`
}

// PayrollCalendar maps each person to the template occupying each day of
// the month. Used to flag overlapping leave and duty entries.
type PayrollCalendar struct {
	Office       string                    `bson:"office" json:"office"`
	OfficeID     string                    `bson:"officeId" json:"officeId"`
	Report       string                    `bson:"report" json:"report"`
	Month        int                       `bson:"month" json:"month"`
	Year         int                       `bson:"year" json:"year"`
	MonthDateMap map[string]map[string]string `bson:"monthDateMap,omitempty" json:"monthDateMap,omitempty"`
}

// Recipient configures who receives a given office report.
type Recipient struct {
	ActivityID string   `bson:"_id" json:"activityId"`
	Office     string   `bson:"office" json:"office"`
	OfficeID   string   `bson:"officeId" json:"officeId"`
	Report     string   `bson:"report" json:"report"`
	Include    []string `bson:"include" json:"include"`
	CC         string   `bson:"cc,omitempty" json:"cc,omitempty"`
}

// DailyCounters is the production-only daily usage document.
type DailyCounters struct {
	Report            string                    `bson:"report" json:"report"`
	Date              int                       `bson:"date" json:"date"`
	Month             int                       `bson:"month" json:"month"`
	Year              int                       `bson:"year" json:"year"`
	TotalActivities   int                       `bson:"totalActivities" json:"totalActivities"`
	ActionCounts      map[string]int            `bson:"actionCounts,omitempty" json:"actionCounts,omitempty"`
	TotalByTemplate   map[string]int            `bson:"totalByTemplate,omitempty" json:"totalByTemplate,omitempty"`
	CreateCountByOffice map[string]int          `bson:"createCountByOffice,omitempty" json:"createCountByOffice,omitempty"`
	WithSupport       int                       `bson:"withSupport" json:"withSupport"`
	TemplateUsage     map[string]map[string]int `bson:"templateUsage,omitempty" json:"templateUsage,omitempty"`
}
