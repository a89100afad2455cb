package services

import (
	"context"
	"fmt"
	"time"

	"activities-service/clients"
	"activities-service/models"
	"activities-service/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

const checkInWindowMs = int64(24 * time.Hour / time.Millisecond)
const checkInRadiusKm = 1.0

func (t *TriggerService) handleCheckIn(ctx context.Context, c *ChangeContext) error {
	if !c.IsCreate() {
		return nil
	}
	if err := t.matchRelevantTimeActivities(ctx, c); err != nil {
		return err
	}
	return t.recordAttendance(ctx, c)
}

// matchRelevantTimeActivities attaches the check-in to activities of
// the same person that are due within a day and whose venue is within
// walking distance of where the check-in happened.
func (t *TriggerService) matchRelevantTimeActivities(ctx context.Context, c *ChangeContext) error {
	if c.Addendum == nil {
		return nil
	}
	location := c.Addendum.Location
	now := c.After.Timestamp

	cursor, err := t.store.Collection(store.ProfileActivities).Find(ctx, bson.M{
		"phoneNumber":  c.After.Creator.PhoneNumber,
		"office":       c.After.Office,
		"template":     bson.M{"$ne": models.TemplateCheckIn},
		"status":       bson.M{"$ne": models.StatusCancelled},
		"relevantTime": bson.M{"$gte": now - checkInWindowMs, "$lte": now + checkInWindowMs},
	})
	if err != nil {
		return fmt.Errorf("failed to query relevant activities: %v", err)
	}

	var candidates []models.ProfileActivity
	if err := cursor.All(ctx, &candidates); err != nil {
		return fmt.Errorf("failed to decode relevant activities: %v", err)
	}

	batch := store.NewBatch()
	for _, candidate := range candidates {
		if !venueWithin(candidate.Venue, location, checkInRadiusKm) {
			continue
		}
		batch.Update(store.Activities, bson.M{"_id": candidate.ActivityID}, bson.M{
			"$push": bson.M{"checkIns": now},
			"$set":  bson.M{"relevantTime": now},
		})
		batch.Update(store.ProfileActivities,
			bson.M{"activityId": candidate.ActivityID, "phoneNumber": candidate.PhoneNumber},
			bson.M{"$set": bson.M{"relevantTime": now}})
		batch.Insert(store.Addendums, &models.Addendum{
			ID:              uuid.NewString(),
			ActivityID:      candidate.ActivityID,
			User:            c.After.Creator.PhoneNumber,
			UserDisplayName: c.After.Creator.DisplayName,
			Action:          models.ActionCheckIn,
			Comment:         fmt.Sprintf("%s checked in for '%s'", c.After.Creator.PhoneNumber, candidate.ActivityName),
			ActivityName:    candidate.ActivityName,
			Template:        candidate.Template,
			Office:          candidate.Office,
			OfficeID:        candidate.OfficeID,
			Location:        location,
			Timestamp:       now,
			Processed:       true,
		})
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.store.Commit(ctx, batch)
}

func venueWithin(venues []models.Venue, location models.Geopoint, radiusKm float64) bool {
	for _, venue := range venues {
		if venue.Geopoint.Latitude == 0 && venue.Geopoint.Longitude == 0 {
			continue
		}
		if clients.HaversineKilometers(location, venue.Geopoint) <= radiusKm {
			return true
		}
	}
	return false
}

// recordAttendance maintains the month's first/last check-in times and
// count. Each check-in is counted at most once, so a re-delivered
// event cannot inflate the count.
func (t *TriggerService) recordAttendance(ctx context.Context, c *ChangeContext) error {
	if c.Addendum == nil {
		return nil
	}

	_, month, year := DateParts(c.After.Timestamp)
	key := bson.M{
		"office":      c.After.Office,
		"phoneNumber": c.After.Creator.PhoneNumber,
		"month":       month,
		"year":        year,
	}

	batch := store.NewBatch()
	batch.Upsert(store.Attendances, key, bson.M{
		"$setOnInsert": bson.M{"officeId": c.After.OfficeID},
		"$min":         bson.M{"firstCheckIn": c.After.Timestamp},
		"$max":         bson.M{"lastCheckIn": c.After.Timestamp},
	})
	// The count only moves when this check-in has not been counted yet;
	// ordered bulk writes keep it behind the upsert above.
	batch.Update(store.Attendances, bson.M{
		"office":          c.After.Office,
		"phoneNumber":     c.After.Creator.PhoneNumber,
		"month":           month,
		"year":            year,
		"countedCheckIns": bson.M{"$ne": c.After.ID},
	}, bson.M{
		"$inc":  bson.M{"numberOfCheckIns": 1},
		"$push": bson.M{"countedCheckIns": c.After.ID},
	})
	return t.store.Commit(ctx, batch)
}
