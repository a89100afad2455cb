package services

import (
	"context"
	"time"

	"activities-service/attachments"
	"activities-service/models"
	"activities-service/store"
	"activities-service/validators"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *ActivityService) newAddendum(activity *models.Activity, requester models.Requester, action string, timestamp int64, geopoint models.Geopoint) *models.Addendum {
	return &models.Addendum{
		ID:                  uuid.NewString(),
		ActivityID:          activity.ID,
		User:                requester.PhoneNumber,
		UserDisplayName:     requester.DisplayName,
		Action:              action,
		ActivityName:        activity.ActivityName,
		Template:            activity.Template,
		Office:              activity.Office,
		OfficeID:            activity.OfficeID,
		IsSupportRequest:    requester.IsSupport,
		Location:            geopoint,
		UserDeviceTimestamp: timestamp,
		Timestamp:           time.Now().UnixMilli(),
	}
}

// stampAddendum points the activity at its newest addendum. Every
// command goes through here so readers can always resolve the latest
// change from the activity document alone.
func stampAddendum(activity *models.Activity, addendum *models.Addendum, now int64) {
	activity.Timestamp = now
	activity.AddendumDocRef = addendum.ID
}

// Update handles POST /api/activities/update. Schedule, venue and
// attachment are replaced wholesale after validation.
func (s *ActivityService) Update(ctx context.Context, requester models.Requester, req models.UpdateRequest) error {
	if r := validators.ValidateUpdateRequest(req); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	activity, err := s.fetchActivity(ctx, req.ActivityID)
	if err != nil {
		return err
	}
	if err := s.requireAssignee(ctx, activity.ID, requester, true); err != nil {
		return err
	}

	template, err := s.fetchTemplate(ctx, activity.Template)
	if err != nil {
		return err
	}

	if r := validators.ValidateSchedules(req.Schedule, template.ScheduleNames); !r.IsValid {
		return badRequest("%s", r.Message)
	}
	if r := validators.ValidateVenues(req.Venue, template.VenueDescriptors); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	filter := attachments.FilterAttachment(req.Attachment, template, activity.Office)
	if !filter.IsValid {
		return badRequest("%s", filter.Message)
	}
	// Unchanged naming fields must not trip their own uniqueness check.
	var shouldNotExist []attachments.Query
	for _, q := range filter.ShouldNotExist {
		if activity.Attachment.StringValue(q.Field) == q.Value {
			continue
		}
		shouldNotExist = append(shouldNotExist, q)
	}
	filter.ShouldNotExist = shouldNotExist
	if err := s.resolveFilterChecks(ctx, filter); err != nil {
		return err
	}

	before := *activity
	now := time.Now().UnixMilli()

	addendum := s.newAddendum(activity, requester, models.ActionUpdate, req.Timestamp, req.Geopoint)
	addendum.ActivityOld = &before

	activity.Schedule = req.Schedule
	activity.Venue = req.Venue
	activity.Attachment = req.Attachment
	activity.ActivityName = ActivityName(activity.Template, req.Attachment, activity.Creator)
	stampAddendum(activity, addendum, now)
	addendum.ActivityName = activity.ActivityName

	batch := store.NewBatch()
	batch.Set(store.Activities, bson.M{"_id": activity.ID}, activity)
	batch.Insert(store.Addendums, addendum)

	if err := s.store.Commit(ctx, batch); err != nil {
		return err
	}

	s.events <- models.ChangeEvent{Before: &before, After: activity, AddendumID: addendum.ID}
	return nil
}

// ChangeStatus handles POST /api/activities/change-status.
func (s *ActivityService) ChangeStatus(ctx context.Context, requester models.Requester, req models.ChangeStatusRequest) error {
	if r := validators.ValidateChangeStatusRequest(req); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	activity, err := s.fetchActivity(ctx, req.ActivityID)
	if err != nil {
		return err
	}
	if err := s.requireAssignee(ctx, activity.ID, requester, true); err != nil {
		return err
	}
	if activity.Status == req.Status {
		return conflict("The activity status is already '%s'", req.Status)
	}

	before := *activity
	now := time.Now().UnixMilli()

	addendum := s.newAddendum(activity, requester, models.ActionChangeStatus, req.Timestamp, req.Geopoint)
	addendum.Status = req.Status

	activity.Status = req.Status
	stampAddendum(activity, addendum, now)

	batch := store.NewBatch()
	batch.Set(store.Activities, bson.M{"_id": activity.ID}, activity)
	batch.Insert(store.Addendums, addendum)

	if err := s.store.Commit(ctx, batch); err != nil {
		return err
	}

	s.events <- models.ChangeEvent{Before: &before, After: activity, AddendumID: addendum.ID}
	return nil
}

// Share handles POST /api/activities/share. New phone numbers become
// assignees; numbers already assigned are left untouched.
func (s *ActivityService) Share(ctx context.Context, requester models.Requester, req models.ShareRequest) error {
	if r := validators.ValidateShareRequest(req); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	activity, err := s.fetchActivity(ctx, req.ActivityID)
	if err != nil {
		return err
	}
	if err := s.requireAssignee(ctx, activity.ID, requester, true); err != nil {
		return err
	}

	existing, err := s.listAssignees(ctx, activity.ID)
	if err != nil {
		return err
	}
	assigned := make(map[string]bool, len(existing))
	for _, a := range existing {
		assigned[a.PhoneNumber] = true
	}

	newPhones := make([]string, 0, len(req.Share))
	for _, phone := range uniquePhones(req.Share) {
		if !assigned[phone] {
			newPhones = append(newPhones, phone)
		}
	}

	admins := map[string]bool{}
	employees := map[string]bool{}
	if activity.CanEditRule == models.CanEditRuleAdmin {
		admins, err = s.adminPhones(ctx, activity.Office, newPhones)
		if err != nil {
			return err
		}
	}
	if activity.CanEditRule == models.CanEditRuleEmployee {
		employees, err = s.employeePhones(ctx, activity.Office, newPhones)
		if err != nil {
			return err
		}
	}

	before := *activity
	now := time.Now().UnixMilli()

	addendum := s.newAddendum(activity, requester, models.ActionShare, req.Timestamp, req.Geopoint)
	addendum.Share = req.Share

	stampAddendum(activity, addendum, now)

	batch := store.NewBatch()
	batch.Set(store.Activities, bson.M{"_id": activity.ID}, activity)
	for _, phone := range newPhones {
		batch.Set(store.Assignees, bson.M{"activityId": activity.ID, "phoneNumber": phone}, models.Assignee{
			ActivityID:  activity.ID,
			PhoneNumber: phone,
			CanEdit:     GetCanEditValue(activity.CanEditRule, phone, activity.Creator.PhoneNumber, admins, employees),
		})
	}
	batch.Insert(store.Addendums, addendum)

	if err := s.store.Commit(ctx, batch); err != nil {
		return err
	}

	s.events <- models.ChangeEvent{Before: &before, After: activity, AddendumID: addendum.ID}
	return nil
}

// Remove handles POST /api/activities/remove. The last assignee can
// never be removed.
func (s *ActivityService) Remove(ctx context.Context, requester models.Requester, req models.RemoveRequest) error {
	if r := validators.ValidateRemoveRequest(req); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	activity, err := s.fetchActivity(ctx, req.ActivityID)
	if err != nil {
		return err
	}
	if err := s.requireAssignee(ctx, activity.ID, requester, true); err != nil {
		return err
	}

	target, err := s.assigneeDoc(ctx, activity.ID, req.Remove)
	if err != nil {
		return err
	}
	if target == nil {
		return badRequest("The phone number '%s' is not an assignee of this activity", req.Remove)
	}

	assignees, err := s.listAssignees(ctx, activity.ID)
	if err != nil {
		return err
	}
	if len(assignees) <= 1 {
		return forbidden("Cannot remove the last assignee of an activity")
	}

	before := *activity
	now := time.Now().UnixMilli()

	addendum := s.newAddendum(activity, requester, models.ActionRemove, req.Timestamp, req.Geopoint)
	addendum.Remove = req.Remove

	stampAddendum(activity, addendum, now)

	batch := store.NewBatch()
	batch.Set(store.Activities, bson.M{"_id": activity.ID}, activity)
	batch.Delete(store.Assignees, bson.M{"activityId": activity.ID, "phoneNumber": req.Remove})
	batch.Delete(store.ProfileActivities, bson.M{"activityId": activity.ID, "phoneNumber": req.Remove})
	batch.Insert(store.Addendums, addendum)

	if err := s.store.Commit(ctx, batch); err != nil {
		return err
	}

	s.events <- models.ChangeEvent{Before: &before, After: activity, AddendumID: addendum.ID}
	return nil
}

// Comment handles POST /api/activities/comment. Comments require
// assignee-ness but not edit permission. Beyond the addendum stamp the
// activity state is untouched.
func (s *ActivityService) Comment(ctx context.Context, requester models.Requester, req models.CommentRequest) error {
	if r := validators.ValidateCommentRequest(req); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	activity, err := s.fetchActivity(ctx, req.ActivityID)
	if err != nil {
		return err
	}
	if err := s.requireAssignee(ctx, activity.ID, requester, false); err != nil {
		return err
	}

	before := *activity
	now := time.Now().UnixMilli()

	addendum := s.newAddendum(activity, requester, models.ActionComment, req.Timestamp, req.Geopoint)
	addendum.Comment = req.Comment

	stampAddendum(activity, addendum, now)

	batch := store.NewBatch()
	batch.Set(store.Activities, bson.M{"_id": activity.ID}, activity)
	batch.Insert(store.Addendums, addendum)

	if err := s.store.Commit(ctx, batch); err != nil {
		return err
	}

	s.events <- models.ChangeEvent{Before: &before, After: activity, AddendumID: addendum.ID}
	return nil
}
