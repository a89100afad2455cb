package services

import (
	"context"
	"fmt"
	"strings"

	"activities-service/logging"
	"activities-service/models"
	"activities-service/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

var contactFields = []string{"First Contact", "Second Contact"}

func (t *TriggerService) handleOffice(ctx context.Context, c *ChangeContext) error {
	if c.Before != nil {
		if err := t.reconcileOfficeContacts(ctx, c); err != nil {
			return err
		}
	}

	if !c.IsCreate() {
		return nil
	}

	office := c.After.Office
	officeID := c.After.ID

	batch := store.NewBatch()

	var contacts []string
	for _, field := range contactFields {
		if contact := c.After.Attachment.StringValue(field); contact != "" {
			contacts = append(contacts, contact)
		}
	}

	batch.Set(store.Recipients, bson.M{"_id": officeID}, models.Recipient{
		ActivityID: officeID,
		Office:     office,
		OfficeID:   officeID,
		Report:     "footprints",
		Include:    contacts,
	})

	batch.Upsert(store.Inits, bson.M{"report": "sitemap", "officeId": officeID}, bson.M{
		"$set": bson.M{
			"office": office,
			"slug":   Slug(office),
		},
	})

	if err := t.store.Commit(ctx, batch); err != nil {
		return err
	}

	for _, contact := range contacts {
		if err := t.createAutoSubscription(ctx, office, officeID, contact, models.TemplateSubscription, nil); err != nil {
			return err
		}
	}

	if err := t.discoverBranches(ctx, c); err != nil {
		// Branch discovery is best effort; the office stands without it.
		logging.Logger.Errorf("Event ID: BRANCH_DISCOVERY_FAILED, Description: Branch discovery for '%s' failed: %v", office, err)
	}
	return nil
}

// reconcileOfficeContacts revokes the grants of a replaced contact.
func (t *TriggerService) reconcileOfficeContacts(ctx context.Context, c *ChangeContext) error {
	office := c.After.Office

	current := make(map[string]bool)
	for _, field := range contactFields {
		if contact := c.After.Attachment.StringValue(field); contact != "" {
			current[contact] = true
		}
	}

	for _, field := range contactFields {
		oldContact := c.Before.Attachment.StringValue(field)
		if oldContact == "" || current[oldContact] {
			continue
		}

		if _, err := t.store.Collection(store.Subscriptions).UpdateMany(ctx,
			bson.M{"office": office, "subscriber": oldContact},
			bson.M{"$set": bson.M{"status": models.StatusCancelled}}); err != nil {
			return fmt.Errorf("failed to cancel subscriptions of %s: %v", oldContact, err)
		}
		if err := t.cancelAdminGrants(ctx, c, office, oldContact); err != nil {
			return err
		}
	}
	return nil
}

// discoverBranches seeds branch activities from the places lookup. A
// miss is retried once with the legal suffixes stripped from the name.
func (t *TriggerService) discoverBranches(ctx context.Context, c *ChangeContext) error {
	office := c.After.Office

	places, err := t.maps.PlacesAutocomplete(ctx, office)
	if err != nil {
		return err
	}
	if len(places) == 0 {
		sanitized := sanitizeOfficeName(office)
		if sanitized != office {
			places, err = t.maps.PlacesAutocomplete(ctx, sanitized)
			if err != nil {
				return err
			}
		}
	}
	if len(places) == 0 {
		return nil
	}

	batch := store.NewBatch()
	branches := make([]models.Activity, 0, len(places))
	for _, place := range places {
		branch := models.Activity{
			ID:          uuid.NewString(),
			Office:      office,
			OfficeID:    c.After.ID,
			Template:    models.TemplateBranch,
			Status:      models.StatusConfirmed,
			CanEditRule: models.CanEditRuleAdmin,
			Creator:     c.After.Creator,
			Venue: []models.Venue{{
				VenueDescriptor: "Branch Office",
				Address:         place.Address,
				Location:        place.Name,
				Geopoint:        place.Geopoint,
			}},
			Attachment: models.Attachment{
				"Name": {Type: models.TypeString, Value: place.Name},
			},
			Timestamp: c.After.Timestamp,
		}
		branch.ActivityName = ActivityName(models.TemplateBranch, branch.Attachment, branch.Creator)
		batch.Insert(store.Activities, &branch)
		branches = append(branches, branch)
	}
	if err := t.store.Commit(ctx, batch); err != nil {
		return err
	}

	// Branches are engine-made writes; re-enter so each one picks up
	// its assignees, office copy and fan-out like a user-created one.
	for i := range branches {
		if err := t.cascade(ctx, c, nil, &branches[i]); err != nil {
			return err
		}
	}
	return nil
}

var officeNameNoise = []string{"ltd", "limited", "pvt", "private", "llp", "inc"}

// sanitizeOfficeName strips legal suffixes and domain endings that sink
// places lookups for registered company names.
func sanitizeOfficeName(name string) string {
	lowered := strings.ToLower(name)
	for _, tld := range []string{".com", ".in", ".co", ".org", ".net", ".io"} {
		lowered = strings.ReplaceAll(lowered, tld, "")
	}

	words := strings.Fields(lowered)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		trimmed := strings.Trim(word, ".,&()")
		skip := false
		for _, noise := range officeNameNoise {
			if trimmed == noise {
				skip = true
				break
			}
		}
		if !skip && trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}
