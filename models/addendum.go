package models

// Addendum records one action on an activity. One addendum is written in
// the same batch as every activity change, then enriched asynchronously
// by the post-processor.
type Addendum struct {
	ID                  string    `bson:"_id" json:"addendumId"`
	ActivityID          string    `bson:"activityId" json:"activityId"`
	User                string    `bson:"user" json:"user"`
	UserDisplayName     string    `bson:"userDisplayName" json:"userDisplayName"`
	Action              string    `bson:"action" json:"action"`
	Status              string    `bson:"status,omitempty" json:"status,omitempty"`
	Share               []string  `bson:"share,omitempty" json:"share,omitempty"`
	Remove              string    `bson:"remove,omitempty" json:"remove,omitempty"`
	Comment             string    `bson:"comment,omitempty" json:"comment,omitempty"`
	ActivityName        string    `bson:"activityName" json:"activityName"`
	Template            string    `bson:"template" json:"template"`
	Office              string    `bson:"office" json:"office"`
	OfficeID            string    `bson:"officeId" json:"officeId"`
	IsSupportRequest    bool      `bson:"isSupportRequest,omitempty" json:"-"`
	Location            Geopoint  `bson:"location" json:"location"`
	UserDeviceTimestamp int64     `bson:"userDeviceTimestamp" json:"userDeviceTimestamp"`
	Timestamp           int64     `bson:"timestamp" json:"timestamp"`
	ActivityOld         *Activity `bson:"activityOld,omitempty" json:"-"`

	// Post-processor output.
	Date                int     `bson:"date,omitempty" json:"date,omitempty"`
	Month               int     `bson:"month,omitempty" json:"month,omitempty"`
	Year                int     `bson:"year,omitempty" json:"year,omitempty"`
	City                string  `bson:"city,omitempty" json:"city,omitempty"`
	State               string  `bson:"state,omitempty" json:"state,omitempty"`
	Locality            string  `bson:"locality,omitempty" json:"locality,omitempty"`
	URL                 string  `bson:"url,omitempty" json:"url,omitempty"`
	Identifier          string  `bson:"identifier,omitempty" json:"identifier,omitempty"`
	DistanceTravelled   float64 `bson:"distanceTravelled,omitempty" json:"distanceTravelled,omitempty"`
	AccumulatedDistance float64 `bson:"accumulatedDistance,omitempty" json:"accumulatedDistance,omitempty"`
	AdjustedGeopoint    string  `bson:"adjustedGeopoint,omitempty" json:"adjustedGeopoint,omitempty"`
	DistanceAccurate    bool    `bson:"distanceAccurate,omitempty" json:"distanceAccurate,omitempty"`
	VenueQuery          string  `bson:"venueQuery,omitempty" json:"venueQuery,omitempty"`
	Processed           bool    `bson:"processed,omitempty" json:"-"`
}
