package services

import (
	"context"
	"fmt"

	"activities-service/logging"
	"activities-service/models"
	"activities-service/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	renamePageSize = 100
	cancelPageSize = 250
	maxFanOutPages = 1000
)

var supervisorFields = []string{"First Supervisor", "Second Supervisor", "Third Supervisor"}

// phoneAttachmentFields are the attachment fields that can reference an
// employee's phone number and must follow a rename.
var phoneAttachmentFields = []string{
	"Employee Contact", "First Supervisor", "Second Supervisor",
	"Third Supervisor", "Subscriber", "Admin",
}

func (t *TriggerService) handleEmployee(ctx context.Context, c *ChangeContext) error {
	phone := c.After.Attachment.StringValue("Employee Contact")
	if phone == "" {
		return nil
	}

	if err := t.syncEmployeeOf(ctx, c, phone); err != nil {
		return err
	}

	if c.Before != nil {
		oldPhone := c.Before.Attachment.StringValue("Employee Contact")
		if oldPhone != "" && oldPhone != phone {
			if err := t.renameEmployeePhone(ctx, c, oldPhone, phone); err != nil {
				return err
			}
		}
		if err := t.reconcileSupervisors(ctx, c); err != nil {
			return err
		}
	}

	if c.WasCancelled() {
		return t.cancelEmployee(ctx, c, phone)
	}

	if c.IsCreate() {
		include := make([]string, 0, len(supervisorFields))
		for _, field := range supervisorFields {
			if supervisor := c.After.Attachment.StringValue(field); supervisor != "" {
				include = append(include, supervisor)
			}
		}
		for _, templateName := range []string{models.TemplateCheckIn, models.TemplateLeave, "attendance regularization"} {
			if err := t.createAutoSubscription(ctx, c.After.Office, c.After.OfficeID, phone, templateName, include); err != nil {
				return err
			}
		}
	}

	return nil
}

// syncEmployeeOf keeps the profile's office membership map and the
// office employee directory current.
func (t *TriggerService) syncEmployeeOf(ctx context.Context, c *ChangeContext, phone string) error {
	key := fmt.Sprintf("employeeOf.%s", c.After.Office)
	update := bson.M{
		"$setOnInsert": bson.M{"_id": phone},
		"$set":         bson.M{key: c.After.ID},
	}
	directoryKey := fmt.Sprintf("employees.%s", phone)
	directoryUpdate := bson.M{
		"$setOnInsert": bson.M{"_id": directoryDocID(c.After.OfficeID)},
		"$set": bson.M{
			"office":   c.After.Office,
			"officeId": c.After.OfficeID,
			directoryKey: bson.M{
				"activityId":   c.After.ID,
				"name":         c.After.Attachment.StringValue("Name"),
				"baseLocation": c.After.Attachment.StringValue("Base Location"),
			},
		},
	}
	if c.After.Status == models.StatusCancelled {
		update = bson.M{
			"$setOnInsert": bson.M{"_id": phone},
			"$unset":       bson.M{key: ""},
		}
		directoryUpdate = bson.M{
			"$setOnInsert": bson.M{"_id": directoryDocID(c.After.OfficeID)},
			"$unset":       bson.M{directoryKey: ""},
		}
	}

	batch := store.NewBatch()
	batch.Upsert(store.Profiles, bson.M{"_id": phone}, update)
	batch.Upsert(store.Inits, bson.M{"_id": directoryDocID(c.After.OfficeID)}, directoryUpdate)
	return t.store.Commit(ctx, batch)
}

func directoryDocID(officeID string) string {
	return fmt.Sprintf("directory--%s", officeID)
}

// renameEmployeePhone moves every document referencing the old number
// to the new one. The per-activity copies are walked in id-ordered
// pages; the page count is bounded so a bad cursor cannot loop forever.
func (t *TriggerService) renameEmployeePhone(ctx context.Context, c *ChangeContext, oldPhone, newPhone string) error {
	office := c.After.Office

	lastID := ""
	for page := 0; page < maxFanOutPages; page++ {
		filter := bson.M{"phoneNumber": oldPhone, "office": office}
		if lastID != "" {
			filter["_id"] = bson.M{"$gt": lastID}
		}

		cursor, err := t.store.Collection(store.ProfileActivities).Find(ctx, filter,
			options.Find().SetSort(bson.M{"_id": 1}).SetLimit(renamePageSize))
		if err != nil {
			return fmt.Errorf("failed to page activities for rename: %v", err)
		}

		var docs []bson.M
		if err := cursor.All(ctx, &docs); err != nil {
			return fmt.Errorf("failed to decode rename page: %v", err)
		}
		if len(docs) == 0 {
			break
		}

		batch := store.NewBatch()
		for _, doc := range docs {
			activityID, _ := doc["activityId"].(string)
			if activityID == "" {
				continue
			}
			batch.Update(store.Assignees,
				bson.M{"activityId": activityID, "phoneNumber": oldPhone},
				bson.M{"$set": bson.M{"phoneNumber": newPhone}})
			batch.Update(store.ProfileActivities,
				bson.M{"activityId": activityID, "phoneNumber": oldPhone},
				bson.M{"$set": bson.M{"phoneNumber": newPhone}})
		}
		if err := t.store.Commit(ctx, batch); err != nil {
			return err
		}

		if id, ok := docs[len(docs)-1]["_id"].(string); ok {
			lastID = id
		} else if oid, ok := docs[len(docs)-1]["_id"].(fmt.Stringer); ok {
			lastID = oid.String()
		} else {
			break
		}
		if len(docs) < renamePageSize {
			break
		}
	}

	// Creator and attachment references move in bulk.
	if _, err := t.store.Collection(store.Activities).UpdateMany(ctx,
		bson.M{"office": office, "creator.phoneNumber": oldPhone},
		bson.M{"$set": bson.M{"creator.phoneNumber": newPhone}}); err != nil {
		return fmt.Errorf("failed to rename creator references: %v", err)
	}
	for _, field := range phoneAttachmentFields {
		key := fmt.Sprintf("attachment.%s.value", field)
		if _, err := t.store.Collection(store.Activities).UpdateMany(ctx,
			bson.M{"office": office, key: oldPhone},
			bson.M{"$set": bson.M{key: newPhone}}); err != nil {
			return fmt.Errorf("failed to rename attachment references: %v", err)
		}
	}
	if _, err := t.store.Collection(store.Subscriptions).UpdateMany(ctx,
		bson.M{"office": office, "subscriber": oldPhone},
		bson.M{"$set": bson.M{"subscriber": newPhone}}); err != nil {
		return fmt.Errorf("failed to rename subscriptions: %v", err)
	}

	// The directory entry moves under the new number; syncEmployeeOf has
	// already written it, so only the stale key is dropped here.
	if _, err := t.store.Collection(store.Inits).UpdateOne(ctx,
		bson.M{"_id": directoryDocID(c.After.OfficeID)},
		bson.M{"$unset": bson.M{fmt.Sprintf("employees.%s", oldPhone): ""}}); err != nil {
		return fmt.Errorf("failed to drop the old directory entry: %v", err)
	}

	// The old number's account goes away so the new number can sign up.
	oldAuth, err := t.identity.LookupByPhone(ctx, oldPhone)
	if err != nil {
		logging.Logger.Errorf("Event ID: AUTH_LOOKUP_FAILED, Description: Lookup for %s failed: %v", oldPhone, err)
		return nil
	}
	if oldAuth.UID != "" {
		if err := t.identity.DeleteUser(ctx, oldAuth.UID); err != nil {
			logging.Logger.Errorf("Event ID: AUTH_DELETE_FAILED, Description: Deleting account for %s failed: %v", oldPhone, err)
		}
	}
	return nil
}

// reconcileSupervisors swaps supervisor assignees when the supervisor
// fields change.
func (t *TriggerService) reconcileSupervisors(ctx context.Context, c *ChangeContext) error {
	batch := store.NewBatch()
	changed := false

	for _, field := range supervisorFields {
		oldSupervisor := c.Before.Attachment.StringValue(field)
		newSupervisor := c.After.Attachment.StringValue(field)
		if oldSupervisor == newSupervisor {
			continue
		}
		changed = true
		if oldSupervisor != "" {
			batch.Delete(store.Assignees, bson.M{"activityId": c.After.ID, "phoneNumber": oldSupervisor})
			batch.Delete(store.ProfileActivities, bson.M{"activityId": c.After.ID, "phoneNumber": oldSupervisor})
		}
		if newSupervisor != "" {
			batch.Set(store.Assignees, bson.M{"activityId": c.After.ID, "phoneNumber": newSupervisor}, models.Assignee{
				ActivityID:  c.After.ID,
				PhoneNumber: newSupervisor,
				CanEdit:     GetCanEditValue(c.After.CanEditRule, newSupervisor, c.After.Creator.PhoneNumber, c.Admins, nil),
			})
		}
	}

	if !changed {
		return nil
	}
	return t.store.Commit(ctx, batch)
}

// cancelEmployee runs the departure cascade: the person's admin and
// subscription grants in the office are cancelled and they are removed
// as assignee from everything else.
func (t *TriggerService) cancelEmployee(ctx context.Context, c *ChangeContext, phone string) error {
	office := c.After.Office

	lastID := ""
	for page := 0; page < maxFanOutPages; page++ {
		filter := bson.M{"phoneNumber": phone, "office": office}
		if lastID != "" {
			filter["_id"] = bson.M{"$gt": lastID}
		}

		cursor, err := t.store.Collection(store.ProfileActivities).Find(ctx, filter,
			options.Find().SetSort(bson.M{"_id": 1}).SetLimit(cancelPageSize))
		if err != nil {
			return fmt.Errorf("failed to page activities for cancellation: %v", err)
		}

		var docs []models.ProfileActivity
		if err := cursor.All(ctx, &docs); err != nil {
			return fmt.Errorf("failed to decode cancellation page: %v", err)
		}
		if len(docs) == 0 {
			break
		}

		batch := store.NewBatch()
		for _, doc := range docs {
			if doc.ActivityID == c.After.ID {
				continue
			}
			switch doc.Template {
			case models.TemplateAdmin:
				// Handled after the loop so the revocation re-enters
				// the engine and clears the custom claims.
			case models.TemplateSubscription:
				cancel := bson.M{"$set": bson.M{"status": models.StatusCancelled}}
				batch.Update(store.Activities, bson.M{"_id": doc.ActivityID}, cancel)
				batch.Update(store.OfficeActivities, bson.M{"_id": doc.ActivityID},
					bson.M{"$set": bson.M{"status": models.StatusCancelled, "isCancelled": true}})
				batch.Update(store.ProfileActivities,
					bson.M{"activityId": doc.ActivityID, "phoneNumber": phone}, cancel)
				batch.Update(store.Subscriptions, bson.M{"_id": doc.ActivityID}, cancel)
			default:
				batch.Delete(store.Assignees, bson.M{"activityId": doc.ActivityID, "phoneNumber": phone})
				batch.Delete(store.ProfileActivities, bson.M{"activityId": doc.ActivityID, "phoneNumber": phone})
			}
		}
		if err := t.store.Commit(ctx, batch); err != nil {
			return err
		}

		if len(docs) < cancelPageSize {
			break
		}
	}

	return t.cancelAdminGrants(ctx, c, office, phone)
}

// createAutoSubscription grants the default subscription for a template
// unless an active one already exists.
func (t *TriggerService) createAutoSubscription(ctx context.Context, office, officeID, subscriber, templateName string, include []string) error {
	count, err := t.store.Collection(store.Subscriptions).CountDocuments(ctx, bson.M{
		"subscriber":                subscriber,
		"office":                    office,
		"attachment.Template.value": templateName,
		"status":                    bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return fmt.Errorf("failed to check existing subscription: %v", err)
	}
	if count > 0 {
		return nil
	}

	template, errTemplate := t.fetchTemplateDoc(ctx, templateName)
	if errTemplate != nil {
		logging.Logger.Errorf("Event ID: AUTO_SUBSCRIPTION_SKIPPED, Description: Template '%s' missing: %v", templateName, errTemplate)
		return nil
	}

	subscription := models.Subscription{
		ActivityID:       uuid.NewString(),
		Subscriber:       subscriber,
		Office:           office,
		OfficeID:         officeID,
		Template:         models.TemplateSubscription,
		Status:           models.StatusConfirmed,
		CanEditRule:      template.CanEditRule,
		Include:          include,
		ScheduleNames:    template.ScheduleNames,
		VenueDescriptors: template.VenueDescriptors,
		Attachment: models.Attachment{
			"Template":   {Type: models.TypeTemplate, Value: templateName},
			"Subscriber": {Type: models.TypePhoneNumber, Value: subscriber},
		},
	}

	batch := store.NewBatch()
	batch.Set(store.Subscriptions, bson.M{"_id": subscription.ActivityID}, subscription)
	return t.store.Commit(ctx, batch)
}

func (t *TriggerService) fetchTemplateDoc(ctx context.Context, name string) (*models.Template, error) {
	var template models.Template
	err := t.store.Collection(store.Templates).FindOne(ctx, bson.M{"name": name}).Decode(&template)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("template '%s' does not exist", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template '%s': %v", name, err)
	}
	return &template, nil
}
