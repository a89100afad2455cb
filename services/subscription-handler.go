package services

import (
	"context"
	"fmt"
	"time"

	"activities-service/logging"
	"activities-service/models"
	"activities-service/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (t *TriggerService) handleSubscription(ctx context.Context, c *ChangeContext) error {
	subscriber := c.After.Attachment.StringValue("Subscriber")
	templateName := c.After.Attachment.StringValue("Template")
	if subscriber == "" || templateName == "" {
		return nil
	}

	template, err := t.fetchTemplateDoc(ctx, templateName)
	if err != nil {
		logging.Logger.Errorf("Event ID: SUBSCRIPTION_SKIPPED, Description: %v", err)
		return nil
	}

	var include []string
	for _, assignee := range c.Assignees {
		if assignee.AddToInclude && assignee.PhoneNumber != subscriber {
			include = append(include, assignee.PhoneNumber)
		}
	}

	subscription := models.Subscription{
		ActivityID:       c.After.ID,
		Subscriber:       subscriber,
		Office:           c.After.Office,
		OfficeID:         c.After.OfficeID,
		Template:         c.After.Template,
		Status:           c.After.Status,
		CanEditRule:      template.CanEditRule,
		Include:          include,
		ScheduleNames:    template.ScheduleNames,
		VenueDescriptors: template.VenueDescriptors,
		Attachment:       c.After.Attachment,
		AddendumDocRef:   c.After.AddendumDocRef,
	}

	batch := store.NewBatch()
	batch.Set(store.Subscriptions, bson.M{"_id": c.After.ID}, subscription)
	if err := t.store.Commit(ctx, batch); err != nil {
		return err
	}

	if template.CanEditRule == models.CanEditRuleAdmin {
		if err := t.reconcileAdminGrant(ctx, c, subscriber); err != nil {
			return err
		}
	}

	if c.IsCreate() {
		if err := t.seedAttendance(ctx, c, subscriber); err != nil {
			return err
		}
	}

	return t.copyCatalogActivities(ctx, c, subscriber, templateName)
}

// reconcileAdminGrant keeps the subscriber's admin activity in step
// with their ADMIN-rule subscriptions.
func (t *TriggerService) reconcileAdminGrant(ctx context.Context, c *ChangeContext, subscriber string) error {
	office := c.After.Office

	if c.After.Status != models.StatusCancelled {
		count, err := t.store.Collection(store.Activities).CountDocuments(ctx, bson.M{
			"office":                 office,
			"template":               models.TemplateAdmin,
			"attachment.Admin.value": subscriber,
			"status":                 bson.M{"$ne": models.StatusCancelled},
		})
		if err != nil {
			return fmt.Errorf("failed to check admin grant: %v", err)
		}
		if count > 0 {
			return nil
		}

		admin := models.Activity{
			ID:          uuid.NewString(),
			Office:      office,
			OfficeID:    c.After.OfficeID,
			Template:    models.TemplateAdmin,
			Status:      models.StatusConfirmed,
			CanEditRule: models.CanEditRuleNone,
			Creator:     c.After.Creator,
			Attachment: models.Attachment{
				"Admin": {Type: models.TypePhoneNumber, Value: subscriber},
			},
			Timestamp: time.Now().UnixMilli(),
		}
		admin.ActivityName = ActivityName(models.TemplateAdmin, admin.Attachment, admin.Creator)

		batch := store.NewBatch()
		batch.Insert(store.Activities, &admin)
		batch.Set(store.Assignees, bson.M{"activityId": admin.ID, "phoneNumber": subscriber}, models.Assignee{
			ActivityID:  admin.ID,
			PhoneNumber: subscriber,
		})
		if err := t.store.Commit(ctx, batch); err != nil {
			return err
		}
		// The grant is an engine-made write; re-enter so the admin
		// handler sets the custom claims.
		return t.cascade(ctx, c, nil, &admin)
	}

	// Cancellation path: the grant survives while any other ADMIN-rule
	// subscription remains.
	count, err := t.store.Collection(store.Subscriptions).CountDocuments(ctx, bson.M{
		"_id":         bson.M{"$ne": c.After.ID},
		"office":      office,
		"subscriber":  subscriber,
		"canEditRule": models.CanEditRuleAdmin,
		"status":      bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return fmt.Errorf("failed to count admin subscriptions: %v", err)
	}
	if count > 0 {
		return nil
	}

	return t.cancelAdminGrants(ctx, c, office, subscriber)
}

// cancelAdminGrants cancels every active admin activity naming the
// phone number in the office, re-entering the engine per grant so the
// custom claims and derived copies follow.
func (t *TriggerService) cancelAdminGrants(ctx context.Context, c *ChangeContext, office, phone string) error {
	cursor, err := t.store.Collection(store.Activities).Find(ctx, bson.M{
		"office":                 office,
		"template":               models.TemplateAdmin,
		"attachment.Admin.value": phone,
		"status":                 bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return fmt.Errorf("failed to list admin grants: %v", err)
	}
	var grants []models.Activity
	if err := cursor.All(ctx, &grants); err != nil {
		return fmt.Errorf("failed to decode admin grants: %v", err)
	}

	for _, grant := range grants {
		before := grant
		after := grant
		after.Status = models.StatusCancelled
		if _, err := t.store.Collection(store.Activities).UpdateOne(ctx,
			bson.M{"_id": grant.ID},
			bson.M{"$set": bson.M{"status": models.StatusCancelled}}); err != nil {
			return fmt.Errorf("failed to cancel admin grant %s: %v", grant.ID, err)
		}
		if err := t.cascade(ctx, c, &before, &after); err != nil {
			return err
		}
	}
	return nil
}

// seedAttendance creates the subscriber's attendance and status ledger
// documents for the current month if they are not there yet.
func (t *TriggerService) seedAttendance(ctx context.Context, c *ChangeContext, subscriber string) error {
	_, month, year := DateParts(time.Now().UnixMilli())

	batch := store.NewBatch()
	batch.Upsert(store.Attendances, bson.M{
		"office":      c.After.Office,
		"phoneNumber": subscriber,
		"month":       month,
		"year":        year,
	}, bson.M{
		"$setOnInsert": bson.M{
			"officeId":         c.After.OfficeID,
			"numberOfCheckIns": 0,
		},
	})
	batch.Upsert(store.Statuses, bson.M{
		"office":      c.After.Office,
		"phoneNumber": subscriber,
		"month":       month,
		"year":        year,
	}, bson.M{
		"$setOnInsert": bson.M{
			"officeId":     c.After.OfficeID,
			"statusObject": bson.M{},
		},
	})
	return t.store.Commit(ctx, batch)
}

// copyCatalogActivities copies the template's catalog entries into the
// subscriber's profile so pickers work offline.
func (t *TriggerService) copyCatalogActivities(ctx context.Context, c *ChangeContext, subscriber, templateName string) error {
	catalogTemplate := fmt.Sprintf("%s-type", templateName)

	cursor, err := t.store.Collection(store.Activities).Find(ctx, bson.M{
		"office":   c.After.Office,
		"template": catalogTemplate,
		"status":   bson.M{"$ne": models.StatusCancelled},
	}, options.Find().SetLimit(store.MaxBatchOps))
	if err != nil {
		return fmt.Errorf("failed to query catalog activities: %v", err)
	}

	var catalog []models.Activity
	if err := cursor.All(ctx, &catalog); err != nil {
		return fmt.Errorf("failed to decode catalog activities: %v", err)
	}
	if len(catalog) == 0 {
		return nil
	}

	batch := store.NewBatch()
	for _, entry := range catalog {
		batch.Set(store.ProfileActivities, bson.M{
			"activityId":  entry.ID,
			"phoneNumber": subscriber,
		}, models.ProfileActivity{
			PhoneNumber:  subscriber,
			ActivityID:   entry.ID,
			Office:       entry.Office,
			OfficeID:     entry.OfficeID,
			Template:     entry.Template,
			Status:       entry.Status,
			ActivityName: entry.ActivityName,
			Creator:      entry.Creator,
			Attachment:   entry.Attachment,
			Timestamp:    entry.Timestamp,
			Type:         catalogTemplate,
		})
	}
	return t.store.Commit(ctx, batch)
}

func (t *TriggerService) handleAdmin(ctx context.Context, c *ChangeContext) error {
	phone := c.After.Attachment.StringValue("Admin")
	if phone == "" {
		return nil
	}

	auth, err := t.identity.LookupByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("identity lookup for admin %s failed: %v", phone, err)
	}
	// Claims attach to accounts; an unregistered admin gets them on
	// first sign-in instead.
	if auth.UID == "" {
		return nil
	}

	office := c.After.Office
	offices := make([]string, 0, len(auth.AdminOffices)+1)
	for _, o := range auth.AdminOffices {
		if o != office {
			offices = append(offices, o)
		}
	}
	if c.After.Status != models.StatusCancelled {
		offices = append(offices, office)
	}

	return t.identity.SetAdminClaims(ctx, auth.UID, offices)
}
