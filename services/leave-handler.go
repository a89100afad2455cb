package services

import (
	"context"
	"fmt"
	"time"

	"activities-service/models"
	"activities-service/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (t *TriggerService) handleLeave(ctx context.Context, c *ChangeContext) error {
	if err := t.detectLeaveDutyConflicts(ctx, c); err != nil {
		return err
	}
	return t.resolveLeaveDutyConflicts(ctx, c)
}

// leaveWindow is the time range a leave blocks. A single-day leave
// covers the whole day.
func leaveWindow(activity *models.Activity) (int64, int64, bool) {
	if len(activity.Schedule) == 0 {
		return 0, 0, false
	}
	start := activity.Schedule[0].StartTime
	end := activity.Schedule[0].EndTime
	if start <= 0 || end < start {
		return 0, 0, false
	}
	if SameCalendarDay(start, end) {
		end = EndOfDay(end)
	}
	return start, end, true
}

// detectLeaveDutyConflicts flags duties of the leave taker that fall
// inside the leave window. Already-flagged duties are skipped so a
// re-delivered event cannot flag twice.
func (t *TriggerService) detectLeaveDutyConflicts(ctx context.Context, c *ChangeContext) error {
	if c.Action() == models.ActionComment {
		return nil
	}
	// A leave born cancelled (for example over the annual limit) blocks
	// nothing.
	if c.IsCreate() && c.After.Status == models.StatusCancelled {
		return nil
	}
	if c.After.Status == models.StatusCancelled {
		return nil
	}

	start, end, ok := leaveWindow(c.After)
	if !ok {
		return nil
	}

	creator := c.After.Creator.PhoneNumber
	cursor, err := t.store.Collection(store.ProfileActivities).Find(ctx, bson.M{
		"phoneNumber":  creator,
		"office":       c.After.Office,
		"template":     models.TemplateDuty,
		"status":       bson.M{"$ne": models.StatusCancelled},
		"relevantTime": bson.M{"$gte": start, "$lte": end},
	})
	if err != nil {
		return fmt.Errorf("failed to query duties: %v", err)
	}

	var duties []models.ProfileActivity
	if err := cursor.All(ctx, &duties); err != nil {
		return fmt.Errorf("failed to decode duties: %v", err)
	}

	// The stored conflict list is authoritative; the event snapshot is
	// stale when the same change is delivered twice.
	flaggedIDs := c.After.ConflictingDuties
	var current models.Activity
	switch err := t.store.Collection(store.Activities).FindOne(ctx, bson.M{"_id": c.After.ID}).Decode(&current); {
	case err == nil:
		flaggedIDs = current.ConflictingDuties
	case err != mongo.ErrNoDocuments:
		return fmt.Errorf("failed to fetch leave %s: %v", c.After.ID, err)
	}

	batch := store.NewBatch()
	for _, duty := range unflaggedDuties(duties, flaggedIDs) {
		batch.Update(store.Activities, bson.M{"_id": c.After.ID},
			bson.M{"$addToSet": bson.M{"conflictingDuties": duty.ActivityID}})
		t.queueConflictComment(batch, c, c.After.ID,
			fmt.Sprintf("Leave conflict with duty '%s'", duty.ActivityName))
		t.queueConflictComment(batch, c, duty.ActivityID,
			fmt.Sprintf("Duty conflict with leave '%s'", c.After.ActivityName))
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.store.Commit(ctx, batch)
}

// unflaggedDuties drops duties already on the conflict list.
func unflaggedDuties(duties []models.ProfileActivity, flaggedIDs []string) []models.ProfileActivity {
	flagged := make(map[string]bool, len(flaggedIDs))
	for _, id := range flaggedIDs {
		flagged[id] = true
	}
	kept := make([]models.ProfileActivity, 0, len(duties))
	for _, duty := range duties {
		if !flagged[duty.ActivityID] {
			kept = append(kept, duty)
		}
	}
	return kept
}

// resolveLeaveDutyConflicts clears flags whose duty no longer overlaps
// the (possibly rescheduled) leave.
func (t *TriggerService) resolveLeaveDutyConflicts(ctx context.Context, c *ChangeContext) error {
	if c.Before == nil || len(c.After.ConflictingDuties) == 0 {
		return nil
	}
	// A change to the conflict list itself is not a reschedule.
	if len(c.Before.ConflictingDuties) != len(c.After.ConflictingDuties) {
		return nil
	}

	start, end, windowOK := leaveWindow(c.After)
	leaveCancelled := c.After.Status == models.StatusCancelled

	batch := store.NewBatch()
	for _, dutyID := range c.After.ConflictingDuties {
		var duty models.Activity
		err := t.store.Collection(store.Activities).FindOne(ctx, bson.M{"_id": dutyID}).Decode(&duty)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to fetch duty %s: %v", dutyID, err)
		}

		resolved := leaveCancelled ||
			duty.Status == models.StatusCancelled ||
			!windowOK ||
			duty.RelevantTime < start || duty.RelevantTime > end

		if !resolved {
			continue
		}

		batch.Update(store.Activities, bson.M{"_id": c.After.ID},
			bson.M{"$pull": bson.M{"conflictingDuties": dutyID}})
		t.queueConflictComment(batch, c, c.After.ID,
			fmt.Sprintf("Removed leave conflict with duty '%s'", duty.ActivityName))
		t.queueConflictComment(batch, c, dutyID,
			fmt.Sprintf("Removed duty conflict with leave '%s'", c.After.ActivityName))
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.store.Commit(ctx, batch)
}

// queueConflictComment writes a system comment addendum onto an
// activity. Conflict comments do not re-enter the engine.
func (t *TriggerService) queueConflictComment(batch *store.Batch, c *ChangeContext, activityID, comment string) {
	batch.Insert(store.Addendums, &models.Addendum{
		ID:              uuid.NewString(),
		ActivityID:      activityID,
		User:            c.After.Creator.PhoneNumber,
		UserDisplayName: c.After.Creator.DisplayName,
		Action:          models.ActionComment,
		Comment:         comment,
		ActivityName:    c.After.ActivityName,
		Template:        c.After.Template,
		Office:          c.After.Office,
		OfficeID:        c.After.OfficeID,
		Timestamp:       time.Now().UnixMilli(),
		Processed:       true,
	})
}
