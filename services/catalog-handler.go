package services

import (
	"context"
	"fmt"

	"activities-service/models"
	"activities-service/store"

	"go.mongodb.org/mongo-driver/bson"
)

// handleBranch cascades branch renames and cancellations into employee
// base locations.
func (t *TriggerService) handleBranch(ctx context.Context, c *ChangeContext) error {
	return t.cascadeEmployeeField(ctx, c, "Base Location")
}

// handleRegion cascades region renames into employee records.
func (t *TriggerService) handleRegion(ctx context.Context, c *ChangeContext) error {
	return t.cascadeEmployeeField(ctx, c, "Region")
}

// handleDepartment cascades department renames into employee records.
func (t *TriggerService) handleDepartment(ctx context.Context, c *ChangeContext) error {
	return t.cascadeEmployeeField(ctx, c, "Department")
}

// handleCustomer refreshes the customer's reduced-precision geopoint so
// check-in matching keeps working after the venue moves.
func (t *TriggerService) handleCustomer(ctx context.Context, c *ChangeContext) error {
	for _, venue := range c.After.Venue {
		if venue.Geopoint.Latitude == 0 && venue.Geopoint.Longitude == 0 {
			continue
		}
		adjusted := AdjustedGeopoint(venue.Geopoint)
		if adjusted == c.After.AdjustedGeopoints {
			return nil
		}
		_, err := t.store.Collection(store.Activities).UpdateOne(ctx,
			bson.M{"_id": c.After.ID},
			bson.M{"$set": bson.M{"adjustedGeopoints": adjusted}})
		if err != nil {
			return fmt.Errorf("failed to refresh adjusted geopoint: %v", err)
		}
		return nil
	}
	return nil
}

// cascadeEmployeeField rewrites employee attachments that reference a
// renamed or cancelled catalog activity.
func (t *TriggerService) cascadeEmployeeField(ctx context.Context, c *ChangeContext, field string) error {
	if c.Before == nil {
		return nil
	}

	oldName := c.Before.Attachment.StringValue("Name")
	newName := c.After.Attachment.StringValue("Name")
	if oldName == "" {
		return nil
	}

	replacement := ""
	switch {
	case c.WasCancelled():
		// Cancelled entries are cleared from employees.
	case oldName != newName:
		replacement = newName
	default:
		return nil
	}

	key := fmt.Sprintf("attachment.%s.value", field)
	update := bson.M{"$set": bson.M{key: replacement}}

	if _, err := t.store.Collection(store.Activities).UpdateMany(ctx, bson.M{
		"office":   c.After.Office,
		"template": models.TemplateEmployee,
		key:        oldName,
	}, update); err != nil {
		return fmt.Errorf("failed to cascade %s rename: %v", field, err)
	}
	if _, err := t.store.Collection(store.ProfileActivities).UpdateMany(ctx, bson.M{
		"office":   c.After.Office,
		"template": models.TemplateEmployee,
		key:        oldName,
	}, update); err != nil {
		return fmt.Errorf("failed to cascade %s rename to profiles: %v", field, err)
	}
	return nil
}
