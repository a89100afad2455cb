package services

import (
	"context"
	"fmt"
	"math"

	"activities-service/clients"
	"activities-service/logging"
	"activities-service/models"
	"activities-service/repositories"
	"activities-service/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Actions that only need date bucketing, no location work or comments.
var skippableActions = map[string]bool{
	models.ActionInstall:           true,
	models.ActionSignup:            true,
	models.ActionBranchView:        true,
	models.ActionProductView:       true,
	models.ActionVideoPlay:         true,
	models.ActionUpdatePhoneNumber: true,
}

// AddendumService enriches addendums with location context and fans the
// resulting comment out to every registered assignee's feed.
type AddendumService struct {
	store   *store.Store
	maps    clients.MapsClient
	push    clients.PushNotifier
	updates *repositories.UpdatesRepo
}

func NewAddendumService(st *store.Store, maps clients.MapsClient, push clients.PushNotifier, updates *repositories.UpdatesRepo) *AddendumService {
	return &AddendumService{
		store:   st,
		maps:    maps,
		push:    push,
		updates: updates,
	}
}

// Process enriches one addendum and distributes its comment. Re-running
// on an already processed addendum is a no-op.
func (a *AddendumService) Process(ctx context.Context, c *ChangeContext) error {
	addendum := c.Addendum
	if addendum == nil || addendum.Processed {
		return nil
	}

	addendum.Date, addendum.Month, addendum.Year = DateParts(addendum.Timestamp)

	if skippableActions[addendum.Action] {
		addendum.Processed = true
		return a.save(ctx, addendum)
	}

	a.enrichLocation(ctx, addendum, c.After)

	if err := a.accumulateDistance(ctx, addendum); err != nil {
		return err
	}

	addendum.Processed = true
	if err := a.save(ctx, addendum); err != nil {
		return err
	}

	return a.fanOutComments(ctx, c)
}

func (a *AddendumService) save(ctx context.Context, addendum *models.Addendum) error {
	_, err := a.store.Collection(store.Addendums).ReplaceOne(ctx, bson.M{"_id": addendum.ID}, addendum)
	if err != nil {
		return fmt.Errorf("failed to save addendum %s: %v", addendum.ID, err)
	}
	return nil
}

// enrichLocation fills the reverse-geocoded place fields and checks the
// reported position against the activity's venues.
func (a *AddendumService) enrichLocation(ctx context.Context, addendum *models.Addendum, activity *models.Activity) {
	location := addendum.Location
	addendum.AdjustedGeopoint = AdjustedGeopoint(location)

	geo, err := a.maps.ReverseGeocode(ctx, location)
	if err != nil {
		logging.Logger.Errorf("Event ID: GEOCODE_FAILED, Description: Reverse geocode for addendum %s failed: %v", addendum.ID, err)
		addendum.URL = fmt.Sprintf("https://maps.google.com/?q=%f,%f", location.Latitude, location.Longitude)
	} else {
		addendum.City = geo.City
		addendum.State = geo.State
		addendum.Locality = geo.Locality
		addendum.URL = geo.URL
		addendum.Identifier = geo.Identifier
	}

	// Accurate fixes get a tight venue tolerance, coarse ones a loose
	// one.
	tolerance := 1.0
	if addendum.Location.Accuracy > 0 && addendum.Location.Accuracy < 350 {
		tolerance = 0.5
	}
	for _, venue := range activity.Venue {
		if venue.Geopoint.Latitude == 0 && venue.Geopoint.Longitude == 0 {
			continue
		}
		if clients.HaversineKilometers(location, venue.Geopoint) <= tolerance {
			addendum.DistanceAccurate = true
			addendum.VenueQuery = venue.Location
			break
		}
	}
}

// accumulateDistance extends the user's travel odometer by the distance
// from their previous movement record.
func (a *AddendumService) accumulateDistance(ctx context.Context, addendum *models.Addendum) error {
	var previous models.Addendum
	err := a.store.Collection(store.Addendums).FindOne(ctx, bson.M{
		"user":      addendum.User,
		"_id":       bson.M{"$ne": addendum.ID},
		"timestamp": bson.M{"$lt": addendum.Timestamp},
	}, options.FindOne().SetSort(bson.M{"timestamp": -1})).Decode(&previous)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch previous addendum: %v", err)
	}

	distance, err := a.maps.Distance(ctx, previous.Location, addendum.Location)
	if err != nil {
		distance = clients.HaversineKilometers(previous.Location, addendum.Location)
	}

	addendum.DistanceTravelled = roundTo2(distance)
	addendum.AccumulatedDistance = roundTo2(previous.AccumulatedDistance + distance)
	return nil
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// fanOutComments writes the rendered comment into each registered
// assignee's updates feed and pushes to their device.
func (a *AddendumService) fanOutComments(ctx context.Context, c *ChangeContext) error {
	addendum := c.Addendum
	var old *models.Activity
	if addendum.ActivityOld != nil {
		old = addendum.ActivityOld
	} else {
		old = c.Before
	}

	for _, assignee := range c.Assignees {
		if assignee.Auth.UID == "" {
			continue
		}

		comment := ComposeComment(addendum, old, c.After, assignee.PhoneNumber)
		if comment == "" {
			continue
		}

		err := a.updates.CreateUpdate(&repositories.Update{
			UID:        assignee.Auth.UID,
			ActivityID: addendum.ActivityID,
			Action:     addendum.Action,
			UserPhone:  addendum.User,
			Comment:    comment,
		})
		if err != nil {
			logging.Logger.Errorf("Event ID: FEED_WRITE_FAILED, Description: Feed write for %s failed: %v", assignee.PhoneNumber, err)
			continue
		}

		a.notify(ctx, assignee.PhoneNumber, comment)
	}
	return nil
}

// notify sends a best-effort push. Failures never bubble up.
func (a *AddendumService) notify(ctx context.Context, phone, comment string) {
	var profile models.Profile
	err := a.store.Collection(store.Profiles).FindOne(ctx, bson.M{"_id": phone}).Decode(&profile)
	if err != nil || profile.RegistrationToken == "" {
		return
	}
	if err := a.push.Send(ctx, profile.RegistrationToken, comment); err != nil {
		logging.Logger.Errorf("Event ID: PUSH_FAILED, Description: Push to %s failed: %v", phone, err)
	}
}
