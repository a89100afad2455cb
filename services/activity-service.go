package services

import (
	"context"
	"fmt"
	"time"

	"activities-service/attachments"
	"activities-service/clients"
	"activities-service/logging"
	"activities-service/models"
	"activities-service/store"
	"activities-service/validators"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ActivityService implements the activity write commands. Every
// successful command persists one atomic batch and enqueues a change
// event for the reactive engine.
type ActivityService struct {
	store    *store.Store
	identity clients.IdentityProvider
	events   chan<- models.ChangeEvent
}

func NewActivityService(st *store.Store, identity clients.IdentityProvider, events chan<- models.ChangeEvent) *ActivityService {
	return &ActivityService{
		store:    st,
		identity: identity,
		events:   events,
	}
}

func (s *ActivityService) fetchTemplate(ctx context.Context, name string) (*models.Template, error) {
	var template models.Template
	err := s.store.Collection(store.Templates).FindOne(ctx, bson.M{"name": name}).Decode(&template)
	if err == mongo.ErrNoDocuments {
		return nil, badRequest("Template '%s' does not exist", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template '%s': %v", name, err)
	}
	return &template, nil
}

func (s *ActivityService) fetchActivity(ctx context.Context, activityID string) (*models.Activity, error) {
	var activity models.Activity
	err := s.store.Collection(store.Activities).FindOne(ctx, bson.M{"_id": activityID}).Decode(&activity)
	if err == mongo.ErrNoDocuments {
		return nil, notFound("The activity '%s' does not exist", activityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity '%s': %v", activityID, err)
	}
	return &activity, nil
}

func (s *ActivityService) fetchOffice(ctx context.Context, officeName string) (*models.Activity, error) {
	var office models.Activity
	err := s.store.Collection(store.Activities).FindOne(ctx, bson.M{
		"template": models.TemplateOffice,
		"office":   officeName,
	}).Decode(&office)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch office '%s': %v", officeName, err)
	}
	return &office, nil
}

func (s *ActivityService) assigneeDoc(ctx context.Context, activityID, phone string) (*models.Assignee, error) {
	var assignee models.Assignee
	err := s.store.Collection(store.Assignees).FindOne(ctx, bson.M{
		"activityId":  activityID,
		"phoneNumber": phone,
	}).Decode(&assignee)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch assignee: %v", err)
	}
	return &assignee, nil
}

func (s *ActivityService) listAssignees(ctx context.Context, activityID string) ([]models.Assignee, error) {
	cursor, err := s.store.Collection(store.Assignees).Find(ctx, bson.M{"activityId": activityID})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignees: %v", err)
	}
	defer cursor.Close(ctx)

	var assignees []models.Assignee
	if err := cursor.All(ctx, &assignees); err != nil {
		return nil, fmt.Errorf("failed to decode assignees: %v", err)
	}
	return assignees, nil
}

// requireAssignee checks the caller may act on the activity. Support
// requests bypass the assignee requirement.
func (s *ActivityService) requireAssignee(ctx context.Context, activityID string, requester models.Requester, needEdit bool) error {
	if requester.IsSupport {
		return nil
	}
	assignee, err := s.assigneeDoc(ctx, activityID, requester.PhoneNumber)
	if err != nil {
		return err
	}
	if assignee == nil {
		return forbidden("You are not an assignee of this activity")
	}
	if needEdit && !assignee.CanEdit {
		return forbidden("You cannot edit this activity")
	}
	return nil
}

// adminPhones returns which of the candidates hold a non-cancelled
// admin activity in the office.
func (s *ActivityService) adminPhones(ctx context.Context, office string, candidates []string) (map[string]bool, error) {
	return s.phonesWithActivity(ctx, office, models.TemplateAdmin, "Admin", candidates)
}

// employeePhones returns which of the candidates are employees of the
// office.
func (s *ActivityService) employeePhones(ctx context.Context, office string, candidates []string) (map[string]bool, error) {
	return s.phonesWithActivity(ctx, office, models.TemplateEmployee, "Employee Contact", candidates)
}

func (s *ActivityService) phonesWithActivity(ctx context.Context, office, template, field string, candidates []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(candidates) == 0 {
		return result, nil
	}

	key := fmt.Sprintf("attachment.%s.value", field)
	cursor, err := s.store.Collection(store.Activities).Find(ctx, bson.M{
		"office":   office,
		"template": template,
		"status":   bson.M{"$ne": models.StatusCancelled},
		key:        bson.M{"$in": candidates},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s activities: %v", template, err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var activity models.Activity
		if err := cursor.Decode(&activity); err != nil {
			return nil, fmt.Errorf("failed to decode %s activity: %v", template, err)
		}
		if phone := activity.Attachment.StringValue(field); phone != "" {
			result[phone] = true
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}
	return result, nil
}

// resolveFilterChecks runs the existence queries the attachment filter
// collected.
func (s *ActivityService) resolveFilterChecks(ctx context.Context, filter attachments.FilterResult) error {
	for _, q := range filter.ShouldNotExist {
		count, err := s.store.Collection(store.Activities).CountDocuments(ctx, bson.M{
			"office":   q.Office,
			"template": q.Template,
			"status":   bson.M{"$ne": models.StatusCancelled},
			fmt.Sprintf("attachment.%s.value", q.Field): q.Value,
		})
		if err != nil {
			return fmt.Errorf("uniqueness query failed: %v", err)
		}
		if count > 0 {
			return conflict("The %s '%s' is already in use", q.Field, q.Value)
		}
	}

	for _, q := range filter.ShouldExist {
		count, err := s.store.Collection(store.Activities).CountDocuments(ctx, bson.M{
			"office":   q.Office,
			"template": q.Template,
			"status":   bson.M{"$ne": models.StatusCancelled},
			fmt.Sprintf("attachment.%s.value", q.Field): q.Value,
		})
		if err != nil {
			return fmt.Errorf("reference query failed: %v", err)
		}
		if count == 0 {
			return badRequest("The %s '%s' does not exist in the office '%s'", q.Template, q.Value, q.Office)
		}
	}

	for _, name := range filter.TemplateChecks {
		count, err := s.store.Collection(store.Templates).CountDocuments(ctx, bson.M{"name": name})
		if err != nil {
			return fmt.Errorf("template query failed: %v", err)
		}
		if count == 0 {
			return badRequest("Template '%s' does not exist", name)
		}
	}

	for _, phone := range filter.ProfileChecks {
		record, err := s.identity.LookupByPhone(ctx, phone)
		if err != nil {
			return fmt.Errorf("identity lookup failed: %v", err)
		}
		if record.UID == "" {
			return badRequest("The user with the phone number '%s' is not registered", phone)
		}
	}

	return nil
}

// Create handles POST /api/activities/create.
func (s *ActivityService) Create(ctx context.Context, requester models.Requester, req models.CreateRequest) error {
	if r := validators.ValidateCreateRequest(req); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	template, err := s.fetchTemplate(ctx, req.Template)
	if err != nil {
		return err
	}

	var officeDoc *models.Activity
	officeName := req.Office

	if template.Name == models.TemplateOffice {
		officeName = req.Attachment.StringValue("Name")
		existing, err := s.fetchOffice(ctx, officeName)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status != models.StatusCancelled {
			return conflict("An office with the name '%s' already exists", officeName)
		}
	} else {
		officeDoc, err = s.fetchOffice(ctx, officeName)
		if err != nil {
			return err
		}
		if officeDoc == nil {
			return forbidden("The office '%s' does not exist", officeName)
		}
		if officeDoc.Status == models.StatusCancelled {
			return forbidden("The office '%s' is inactive", officeName)
		}
	}

	var subscription *models.Subscription
	if template.Name != models.TemplateOffice && !requester.IsSupport {
		var sub models.Subscription
		err := s.store.Collection(store.Subscriptions).FindOne(ctx, bson.M{
			"subscriber": requester.PhoneNumber,
			"office":     officeName,
			"attachment.Template.value": template.Name,
		}).Decode(&sub)
		if err == mongo.ErrNoDocuments {
			return forbidden("You do not have a subscription to the template '%s'", template.Name)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch subscription: %v", err)
		}
		if sub.Status == models.StatusCancelled {
			return forbidden("Your subscription to the template '%s' is cancelled", template.Name)
		}
		subscription = &sub
	}

	if r := validators.ValidateSchedules(req.Schedule, template.ScheduleNames); !r.IsValid {
		return badRequest("%s", r.Message)
	}
	if r := validators.ValidateVenues(req.Venue, template.VenueDescriptors); !r.IsValid {
		return badRequest("%s", r.Message)
	}

	filter := attachments.FilterAttachment(req.Attachment, template, officeName)
	if !filter.IsValid {
		return badRequest("%s", filter.Message)
	}
	if err := s.resolveFilterChecks(ctx, filter); err != nil {
		return err
	}

	var include []string
	if subscription != nil {
		include = subscription.Include
	}
	assigneeList := uniquePhones(include, req.Share, filter.PhoneNumbers, []string{requester.PhoneNumber})

	admins := map[string]bool{}
	employees := map[string]bool{}
	if template.CanEditRule == models.CanEditRuleAdmin {
		admins, err = s.adminPhones(ctx, officeName, assigneeList)
		if err != nil {
			return err
		}
	}
	if template.CanEditRule == models.CanEditRuleEmployee {
		employees, err = s.employeePhones(ctx, officeName, assigneeList)
		if err != nil {
			return err
		}
	}

	now := time.Now().UnixMilli()
	creator := models.Creator{
		PhoneNumber: requester.PhoneNumber,
		DisplayName: requester.DisplayName,
		PhotoURL:    requester.PhotoURL,
	}

	activity := &models.Activity{
		ID:                uuid.NewString(),
		Office:            officeName,
		Template:          template.Name,
		Status:            template.StatusOnCreate,
		CanEditRule:       template.CanEditRule,
		Hidden:            template.Hidden,
		Creator:           creator,
		Schedule:          req.Schedule,
		Venue:             req.Venue,
		Attachment:        req.Attachment,
		Timestamp:         now,
		CreationTimestamp: now,
	}
	activity.CreationDate, activity.CreationMonth, activity.CreationYear = DateParts(now)
	activity.ActivityName = ActivityName(template.Name, req.Attachment, creator)

	if template.Name == models.TemplateOffice {
		activity.OfficeID = activity.ID
	} else {
		activity.OfficeID = officeDoc.ID
	}

	switch template.Name {
	case models.TemplateCheckIn, models.TemplateLeave, models.TemplateDuty:
		if len(req.Schedule) > 0 {
			activity.RelevantTime = req.Schedule[0].StartTime
		} else {
			activity.RelevantTime = now
		}
	default:
		for _, venue := range req.Venue {
			if venue.Geopoint.Latitude != 0 || venue.Geopoint.Longitude != 0 {
				activity.AdjustedGeopoints = AdjustedGeopoint(venue.Geopoint)
				break
			}
		}
	}

	addendum := &models.Addendum{
		ID:                  uuid.NewString(),
		ActivityID:          activity.ID,
		User:                requester.PhoneNumber,
		UserDisplayName:     requester.DisplayName,
		Action:              models.ActionCreate,
		Share:               req.Share,
		ActivityName:        activity.ActivityName,
		Template:            activity.Template,
		Office:              activity.Office,
		OfficeID:            activity.OfficeID,
		IsSupportRequest:    requester.IsSupport,
		Location:            req.Geopoint,
		UserDeviceTimestamp: req.Timestamp,
		Timestamp:           now,
	}
	activity.AddendumDocRef = addendum.ID

	if template.Name == models.TemplateLeave {
		if err := s.applyLeaveLimit(ctx, requester, activity, addendum); err != nil {
			return err
		}
	}

	batch := store.NewBatch()
	batch.Insert(store.Activities, activity)
	for _, phone := range assigneeList {
		batch.Set(store.Assignees, bson.M{"activityId": activity.ID, "phoneNumber": phone}, models.Assignee{
			ActivityID:  activity.ID,
			PhoneNumber: phone,
			CanEdit:     GetCanEditValue(activity.CanEditRule, phone, creator.PhoneNumber, admins, employees),
		})
	}
	batch.Insert(store.Addendums, addendum)

	if template.Name == models.TemplateLeave || template.Name == models.TemplateDuty {
		s.updatePayrollCalendar(ctx, batch, activity)
	}

	if err := s.store.Commit(ctx, batch); err != nil {
		return err
	}

	s.events <- models.ChangeEvent{After: activity, AddendumID: addendum.ID}
	return nil
}

// applyLeaveLimit cancels a leave on creation when it would exceed the
// leave type's annual limit. The leave is still created.
func (s *ActivityService) applyLeaveLimit(ctx context.Context, requester models.Requester, activity *models.Activity, addendum *models.Addendum) error {
	leaveType := activity.Attachment.StringValue("Leave Type")
	if leaveType == "" {
		return nil
	}

	var leaveTypeDoc models.Activity
	err := s.store.Collection(store.Activities).FindOne(ctx, bson.M{
		"office":                activity.Office,
		"template":              "leave-type",
		"attachment.Name.value": leaveType,
		"status":                bson.M{"$ne": models.StatusCancelled},
	}).Decode(&leaveTypeDoc)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch leave type: %v", err)
	}

	limit := int(leaveTypeDoc.Attachment.NumberValue("Annual Limit"))
	if limit <= 0 {
		return nil
	}

	cursor, err := s.store.Collection(store.Activities).Find(ctx, bson.M{
		"office":               activity.Office,
		"template":             models.TemplateLeave,
		"creator.phoneNumber":  requester.PhoneNumber,
		"creationYear":         activity.CreationYear,
		"status":               bson.M{"$ne": models.StatusCancelled},
		"attachment.Leave Type.value": leaveType,
	})
	if err != nil {
		return fmt.Errorf("failed to query existing leaves: %v", err)
	}
	defer cursor.Close(ctx)

	leavesTaken := 0
	for cursor.Next(ctx) {
		var leave models.Activity
		if err := cursor.Decode(&leave); err != nil {
			return fmt.Errorf("failed to decode leave: %v", err)
		}
		leavesTaken += ScheduleDays(leave.Schedule)
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error: %v", err)
	}

	requested := ScheduleDays(activity.Schedule)
	if leavesTaken+requested > limit {
		activity.Status = models.StatusCancelled
		left := limit - leavesTaken
		if left < 0 {
			left = 0
		}
		addendum.Comment = fmt.Sprintf("LEAVE LIMIT EXCEEDED. Leaves left: %d", left)
	}
	return nil
}

// updatePayrollCalendar books the activity's days into the office's
// monthly payroll calendar. Overlaps are logged, not rejected.
func (s *ActivityService) updatePayrollCalendar(ctx context.Context, batch *store.Batch, activity *models.Activity) {
	phone := activity.Creator.PhoneNumber

	for _, schedule := range activity.Schedule {
		if schedule.StartTime <= 0 || schedule.EndTime < schedule.StartTime {
			continue
		}

		const dayMs = int64(24 * 60 * 60 * 1000)
		for ts := schedule.StartTime; ts <= schedule.EndTime; ts += dayMs {
			date, month, year := DateParts(ts)
			filter := bson.M{
				"office": activity.Office,
				"report": "payroll",
				"month":  month,
				"year":   year,
			}

			var calendar models.PayrollCalendar
			err := s.store.Collection(store.Inits).FindOne(ctx, filter).Decode(&calendar)
			if err == nil {
				if days, ok := calendar.MonthDateMap[phone]; ok {
					key := fmt.Sprintf("%d", date)
					if existing, ok := days[key]; ok && existing != activity.Template {
						logging.Logger.Infof("Event ID: PAYROLL_CONFLICT, Description: %s has both '%s' and '%s' on %d-%d-%d in office '%s'",
							phone, existing, activity.Template, year, month, date, activity.Office)
					}
				}
			} else if err != mongo.ErrNoDocuments {
				logging.Logger.Errorf("Event ID: PAYROLL_READ_FAILED, Description: Failed to read payroll calendar: %v", err)
				continue
			}

			batch.Upsert(store.Inits, filter, bson.M{
				"$set": bson.M{
					fmt.Sprintf("monthDateMap.%s.%d", phone, date): activity.Template,
					"officeId": activity.OfficeID,
				},
			})
		}
	}
}
