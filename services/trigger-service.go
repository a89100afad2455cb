package services

import (
	"context"
	"fmt"
	"strings"

	"activities-service/clients"
	"activities-service/logging"
	"activities-service/models"
	"activities-service/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AssigneeRecord is one assignee enriched with identity data. Auth.UID
// is empty when the number has no account.
type AssigneeRecord struct {
	models.Assignee
	Auth clients.AuthRecord
}

// ChangeContext carries everything a template handler needs about one
// activity change. It is assembled once per event and never mutated by
// handlers.
type ChangeContext struct {
	Before    *models.Activity
	After     *models.Activity
	Addendum  *models.Addendum
	Assignees []AssigneeRecord
	Admins    map[string]bool
	Depth     int
}

// IsCreate reports whether this change created the activity.
func (c *ChangeContext) IsCreate() bool {
	return c.Before == nil
}

// WasCancelled reports whether this change moved the activity into the
// cancelled state.
func (c *ChangeContext) WasCancelled() bool {
	if c.After.Status != models.StatusCancelled {
		return false
	}
	return c.Before == nil || c.Before.Status != models.StatusCancelled
}

// Action returns the addendum action, or "" when the addendum is gone.
func (c *ChangeContext) Action() string {
	if c.Addendum == nil {
		return ""
	}
	return c.Addendum.Action
}

type templateHandler func(ctx context.Context, c *ChangeContext) error

// TriggerService is the reactive engine. It consumes change events from
// the write commands and maintains every derived document. Handlers are
// idempotent; a re-delivered event converges to the same state.
type TriggerService struct {
	store       *store.Store
	identity    clients.IdentityProvider
	maps        clients.MapsClient
	addendums   *AddendumService
	environment string
	handlers    map[string]templateHandler
}

func NewTriggerService(st *store.Store, identity clients.IdentityProvider, maps clients.MapsClient, addendums *AddendumService, environment string) *TriggerService {
	t := &TriggerService{
		store:       st,
		identity:    identity,
		maps:        maps,
		addendums:   addendums,
		environment: environment,
	}
	t.handlers = map[string]templateHandler{
		models.TemplateEmployee:     t.handleEmployee,
		models.TemplateOffice:       t.handleOffice,
		models.TemplateSubscription: t.handleSubscription,
		models.TemplateAdmin:        t.handleAdmin,
		models.TemplateLeave:        t.handleLeave,
		models.TemplateCheckIn:      t.handleCheckIn,
		models.TemplateClaim:        t.handleClaim,
		models.TemplateBranch:       t.handleBranch,
		models.TemplateCustomer:     t.handleCustomer,
		"region":                    t.handleRegion,
		"department":                t.handleDepartment,
	}
	return t
}

// Run consumes events until the context is cancelled. A failed event is
// logged and dropped; the write that produced it has already committed.
func (t *TriggerService) Run(ctx context.Context, events <-chan models.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := t.Process(ctx, event); err != nil {
				logging.Logger.Errorf("Event ID: TRIGGER_FAILED, Description: Processing change for activity %s failed: %v", event.After.ID, err)
			}
		}
	}
}

// Process handles one activity change end to end.
func (t *TriggerService) Process(ctx context.Context, event models.ChangeEvent) error {
	c, err := t.buildContext(ctx, event)
	if err != nil {
		return err
	}

	// Comments change no activity state; only the feed work runs.
	if c.Action() != models.ActionComment {
		if err := t.fanOutProfileActivities(ctx, c); err != nil {
			return err
		}
		if err := t.copyToOffice(ctx, c); err != nil {
			return err
		}
		if err := t.seedProfiles(ctx, c); err != nil {
			return err
		}

		handler := t.dispatch(c.After.Template)
		if err := handler(ctx, c); err != nil {
			return err
		}

		if t.environment == "production" {
			if err := t.recordDailyCounters(ctx, c); err != nil {
				logging.Logger.Errorf("Event ID: COUNTERS_FAILED, Description: Daily counters for %s failed: %v", c.After.ID, err)
			}
		}
	}

	if c.Addendum != nil {
		if err := t.addendums.Process(ctx, c); err != nil {
			return err
		}
	}

	// Allowance accounting reads the enriched addendum, so it runs
	// after post-processing.
	if c.After.Template == models.TemplateCheckIn && c.IsCreate() && c.Action() != models.ActionComment {
		if err := t.handleAllowances(ctx, c); err != nil {
			logging.Logger.Errorf("Event ID: ALLOWANCE_FAILED, Description: Allowance accounting for %s failed: %v", c.After.ID, err)
		}
	}
	return nil
}

// maxCascadeDepth bounds how many times the engine may re-enter itself
// for activities it created or cancelled on its own.
const maxCascadeDepth = 4

// cascade re-enters the engine for an activity the engine itself wrote,
// so the write gets the same fan-out and claims handling as one made
// through the HTTP commands.
func (t *TriggerService) cascade(ctx context.Context, c *ChangeContext, before, after *models.Activity) error {
	if c.Depth+1 > maxCascadeDepth {
		logging.Logger.Errorf("Event ID: CASCADE_DEPTH_EXCEEDED, Description: Dropping engine change for activity %s at depth %d", after.ID, c.Depth+1)
		return nil
	}
	return t.Process(ctx, models.ChangeEvent{Before: before, After: after, Depth: c.Depth + 1})
}

// dispatch picks the template handler. Catalog templates share one
// handler; everything unknown is a no-op.
func (t *TriggerService) dispatch(template string) templateHandler {
	if handler, ok := t.handlers[template]; ok {
		return handler
	}
	if strings.HasSuffix(template, "-type") {
		return t.handleTypeActivity
	}
	return func(ctx context.Context, c *ChangeContext) error { return nil }
}

func (t *TriggerService) buildContext(ctx context.Context, event models.ChangeEvent) (*ChangeContext, error) {
	c := &ChangeContext{
		Before: event.Before,
		After:  event.After,
		Admins: make(map[string]bool),
		Depth:  event.Depth,
	}

	if event.AddendumID != "" {
		var addendum models.Addendum
		err := t.store.Collection(store.Addendums).FindOne(ctx, bson.M{"_id": event.AddendumID}).Decode(&addendum)
		if err == nil {
			c.Addendum = &addendum
		} else if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("failed to fetch addendum %s: %v", event.AddendumID, err)
		}
	}

	cursor, err := t.store.Collection(store.Assignees).Find(ctx, bson.M{"activityId": c.After.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list assignees: %v", err)
	}
	var assignees []models.Assignee
	if err := cursor.All(ctx, &assignees); err != nil {
		return nil, fmt.Errorf("failed to decode assignees: %v", err)
	}

	for _, assignee := range assignees {
		record := AssigneeRecord{Assignee: assignee}
		auth, err := t.identity.LookupByPhone(ctx, assignee.PhoneNumber)
		if err != nil {
			// Treat a failed lookup like an unregistered number.
			logging.Logger.Errorf("Event ID: AUTH_LOOKUP_FAILED, Description: Lookup for %s failed: %v", assignee.PhoneNumber, err)
			auth = clients.AuthRecord{PhoneNumber: assignee.PhoneNumber}
		}
		record.Auth = auth
		c.Assignees = append(c.Assignees, record)
	}

	adminCursor, err := t.store.Collection(store.Activities).Find(ctx, bson.M{
		"office":   c.After.Office,
		"template": models.TemplateAdmin,
		"status":   bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %v", err)
	}
	defer adminCursor.Close(ctx)
	for adminCursor.Next(ctx) {
		var admin models.Activity
		if err := adminCursor.Decode(&admin); err != nil {
			return nil, fmt.Errorf("failed to decode admin: %v", err)
		}
		if phone := admin.Attachment.StringValue("Admin"); phone != "" {
			c.Admins[phone] = true
		}
	}
	if err := adminCursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return c, nil
}

// roster is the denormalized assignee list written onto every per-user
// copy.
func roster(c *ChangeContext) []models.AssigneeDetail {
	details := make([]models.AssigneeDetail, 0, len(c.Assignees))
	for _, a := range c.Assignees {
		details = append(details, models.AssigneeDetail{
			PhoneNumber: a.PhoneNumber,
			DisplayName: a.Auth.DisplayName,
			PhotoURL:    a.Auth.PhotoURL,
		})
	}
	return details
}

// fanOutProfileActivities writes each assignee's personal copy of the
// activity. Check-ins are only visible to registered assignees.
func (t *TriggerService) fanOutProfileActivities(ctx context.Context, c *ChangeContext) error {
	details := roster(c)
	activity := c.After

	batch := store.NewBatch()
	for _, assignee := range c.Assignees {
		if activity.Template == models.TemplateCheckIn && assignee.Auth.UID == "" {
			continue
		}
		copyDoc := models.ProfileActivity{
			PhoneNumber:  assignee.PhoneNumber,
			ActivityID:   activity.ID,
			Office:       activity.Office,
			OfficeID:     activity.OfficeID,
			Template:     activity.Template,
			Status:       activity.Status,
			ActivityName: activity.ActivityName,
			Creator:      activity.Creator,
			Schedule:     activity.Schedule,
			Venue:        activity.Venue,
			Attachment:   activity.Attachment,
			CanEdit:      assignee.CanEdit,
			Assignees:    details,
			Timestamp:    activity.Timestamp,
			RelevantTime: activity.RelevantTime,
		}
		batch.Set(store.ProfileActivities, bson.M{
			"activityId":  activity.ID,
			"phoneNumber": assignee.PhoneNumber,
		}, copyDoc)
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.store.Commit(ctx, batch)
}

// copyToOffice maintains the office-scoped copy with its derived fields.
func (t *TriggerService) copyToOffice(ctx context.Context, c *ChangeContext) error {
	activity := *c.After

	activity.IsCancelled = activity.Status == models.StatusCancelled
	activity.AddendumDocRef = ""

	var adminsCanEdit []string
	for _, assignee := range c.Assignees {
		if c.Admins[assignee.PhoneNumber] {
			adminsCanEdit = append(adminsCanEdit, assignee.PhoneNumber)
		}
	}
	activity.AdminsCanEdit = adminsCanEdit

	if activity.Template == models.TemplateOffice {
		activity.Slug = Slug(activity.Office)
	}

	batch := store.NewBatch()
	batch.Set(store.OfficeActivities, bson.M{"_id": activity.ID}, &activity)
	return t.store.Commit(ctx, batch)
}

// seedProfiles creates a profile for every assignee seen for the first
// time and refreshes identity fields on the rest.
func (t *TriggerService) seedProfiles(ctx context.Context, c *ChangeContext) error {
	batch := store.NewBatch()
	for _, assignee := range c.Assignees {
		set := bson.M{}
		if assignee.Auth.UID != "" {
			set["uid"] = assignee.Auth.UID
			set["displayName"] = assignee.Auth.DisplayName
			set["photoURL"] = assignee.Auth.PhotoURL
		}
		update := bson.M{"$setOnInsert": bson.M{"_id": assignee.PhoneNumber}}
		if len(set) > 0 {
			update["$set"] = set
		}
		batch.Upsert(store.Profiles, bson.M{"_id": assignee.PhoneNumber}, update)
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.store.Commit(ctx, batch)
}

// handleTypeActivity runs for catalog templates like leave-type or
// customer-type. Changing a catalog entry invalidates the cached
// addendum reference on subscriptions of the owning template.
func (t *TriggerService) handleTypeActivity(ctx context.Context, c *ChangeContext) error {
	parent := strings.TrimSuffix(c.After.Template, "-type")

	_, err := t.store.Collection(store.Subscriptions).UpdateMany(ctx, bson.M{
		"office":                    c.After.Office,
		"attachment.Template.value": parent,
	}, bson.M{
		"$set": bson.M{"addendumDocRef": ""},
	})
	if err != nil {
		return fmt.Errorf("failed to reset subscription addendum refs: %v", err)
	}
	return nil
}

// dailyCounterIncrements computes the counter bumps one change
// contributes to the daily report.
func dailyCounterIncrements(c *ChangeContext) bson.M {
	action := c.Action()
	if action == "" {
		action = models.ActionUpdate
	}

	inc := bson.M{
		fmt.Sprintf("actionCounts.%s", action):                       1,
		fmt.Sprintf("templateUsage.%s.%s", c.After.Template, action): 1,
	}
	if c.IsCreate() {
		inc["totalActivities"] = 1
		inc[fmt.Sprintf("totalByTemplate.%s", c.After.Template)] = 1
		inc[fmt.Sprintf("createCountByOffice.%s", c.After.Office)] = 1
		if c.Addendum != nil && c.Addendum.IsSupportRequest {
			inc["withSupport"] = 1
		}
	}
	return inc
}

// recordDailyCounters maintains the production usage document. Each
// addendum is counted at most once, so a re-delivered event cannot
// inflate the counters.
func (t *TriggerService) recordDailyCounters(ctx context.Context, c *ChangeContext) error {
	if c.Addendum == nil {
		return nil
	}
	date, month, year := DateParts(c.After.Timestamp)

	batch := store.NewBatch()
	batch.Upsert(store.Inits, bson.M{
		"report": "dailyStatusReport",
		"date":   date,
		"month":  month,
		"year":   year,
	}, bson.M{"$setOnInsert": bson.M{
		"report": "dailyStatusReport",
		"date":   date,
		"month":  month,
		"year":   year,
	}})
	// The increment only lands when the addendum has not been counted
	// yet; ordered bulk writes keep it behind the upsert above.
	batch.Update(store.Inits, bson.M{
		"report":           "dailyStatusReport",
		"date":             date,
		"month":            month,
		"year":             year,
		"countedAddendums": bson.M{"$ne": c.Addendum.ID},
	}, bson.M{
		"$inc":  dailyCounterIncrements(c),
		"$push": bson.M{"countedAddendums": c.Addendum.ID},
	})
	return t.store.Commit(ctx, batch)
}
