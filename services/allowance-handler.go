package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"activities-service/clients"
	"activities-service/models"
	"activities-service/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// handleAllowances books daily and kilometer allowances triggered by a
// check-in.
func (t *TriggerService) handleAllowances(ctx context.Context, c *ChangeContext) error {
	if err := t.bookDailyAllowances(ctx, c); err != nil {
		return err
	}
	return t.bookKmAllowance(ctx, c)
}

// bookDailyAllowances matches the check-in time against the user's
// daily allowance windows.
func (t *TriggerService) bookDailyAllowances(ctx context.Context, c *ChangeContext) error {
	user := c.After.Creator.PhoneNumber
	checkInTime := time.UnixMilli(c.After.Timestamp).Format("15:04")

	cursor, err := t.store.Collection(store.ProfileActivities).Find(ctx, bson.M{
		"phoneNumber": user,
		"office":      c.After.Office,
		"template":    models.TemplateDailyAllowance,
		"status":      bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return fmt.Errorf("failed to query daily allowances: %v", err)
	}

	var allowances []models.ProfileActivity
	if err := cursor.All(ctx, &allowances); err != nil {
		return fmt.Errorf("failed to decode daily allowances: %v", err)
	}

	date, month, year := DateParts(c.After.Timestamp)
	batch := store.NewBatch()
	for _, allowance := range allowances {
		startTime := allowance.Attachment.StringValue("Start Time")
		endTime := allowance.Attachment.StringValue("End Time")
		if startTime == "" || endTime == "" {
			continue
		}
		if checkInTime < startTime || checkInTime > endTime {
			continue
		}

		batch.Upsert(store.Statuses, bson.M{
			"office":      c.After.Office,
			"phoneNumber": user,
			"month":       month,
			"year":        year,
		}, bson.M{
			"$setOnInsert": bson.M{"officeId": c.After.OfficeID},
			"$set": bson.M{
				fmt.Sprintf("statusObject.%d.reimbursements.%s", date, allowance.ActivityID): models.Reimbursement{
					ActivityID: allowance.ActivityID,
					Template:   models.TemplateDailyAllowance,
					Name:       allowance.Attachment.StringValue("Name"),
					Amount:     int64(allowance.Attachment.NumberValue("Amount")),
					Currency:   "INR",
					Status:     models.StatusPending,
				},
			},
		})
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.store.Commit(ctx, batch)
}

// bookKmAllowance books travel distance since the previous movement
// record, capped at the allowance's daily limit.
func (t *TriggerService) bookKmAllowance(ctx context.Context, c *ChangeContext) error {
	if c.Addendum == nil {
		return nil
	}
	user := c.After.Creator.PhoneNumber

	var allowance models.ProfileActivity
	err := t.store.Collection(store.ProfileActivities).FindOne(ctx, bson.M{
		"phoneNumber": user,
		"office":      c.After.Office,
		"template":    models.TemplateKmAllowance,
		"status":      bson.M{"$ne": models.StatusCancelled},
	}).Decode(&allowance)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch km allowance: %v", err)
	}

	var previous models.Addendum
	err = t.store.Collection(store.Addendums).FindOne(ctx, bson.M{
		"user":      user,
		"timestamp": bson.M{"$lt": c.Addendum.Timestamp},
	}, options.FindOne().SetSort(bson.M{"timestamp": -1})).Decode(&previous)
	if err == mongo.ErrNoDocuments {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch previous addendum: %v", err)
	}

	distance, err := t.maps.Distance(ctx, previous.Location, c.Addendum.Location)
	if err != nil {
		distance = clients.HaversineKilometers(previous.Location, c.Addendum.Location)
	}
	if distance <= 0 {
		return nil
	}

	rate := allowance.Attachment.NumberValue("Rate")
	amount := int64(rate * distance)
	if amount <= 0 {
		return nil
	}

	date, month, year := DateParts(c.After.Timestamp)

	// The day's entry accumulates across check-ins and is capped at the
	// allowance's daily limit.
	otherClaims, existing, err := t.claimedToday(ctx, c, user, allowance.ActivityID, date, month, year)
	if err != nil {
		return err
	}
	amount += existing
	if dailyLimit := int64(allowance.Attachment.NumberValue("Daily Limit")); dailyLimit > 0 {
		if otherClaims+amount > dailyLimit {
			amount = dailyLimit - otherClaims
		}
		if amount <= 0 {
			return nil
		}
	}

	isLocal := previous.City != "" && previous.City == c.Addendum.City

	batch := store.NewBatch()
	batch.Upsert(store.Statuses, bson.M{
		"office":      c.After.Office,
		"phoneNumber": user,
		"month":       month,
		"year":        year,
	}, bson.M{
		"$setOnInsert": bson.M{"officeId": c.After.OfficeID},
		"$set": bson.M{
			fmt.Sprintf("statusObject.%d.reimbursements.%s", date, allowance.ActivityID): models.Reimbursement{
				ActivityID:    allowance.ActivityID,
				Template:      models.TemplateKmAllowance,
				Name:          allowance.Attachment.StringValue("Name"),
				Amount:        amount,
				Currency:      "INR",
				Status:        models.StatusPending,
				Distance:      distance,
				IsLocal:       isLocal,
				IsTravel:      !isLocal,
				IncludeBranch: strings.HasSuffix(c.Addendum.VenueQuery, "BRANCH"),
			},
		},
	})
	return t.store.Commit(ctx, batch)
}

// claimedToday splits the day's km allowance bookings into this
// allowance's own entry and everything else.
func (t *TriggerService) claimedToday(ctx context.Context, c *ChangeContext, user, allowanceID string, date, month, year int) (otherClaims, existing int64, err error) {
	var ledger models.MonthlyStatus
	findErr := t.store.Collection(store.Statuses).FindOne(ctx, bson.M{
		"office":      c.After.Office,
		"phoneNumber": user,
		"month":       month,
		"year":        year,
	}).Decode(&ledger)
	if findErr == mongo.ErrNoDocuments {
		return 0, 0, nil
	}
	if findErr != nil {
		return 0, 0, fmt.Errorf("failed to fetch status ledger: %v", findErr)
	}

	day, ok := ledger.StatusObject[fmt.Sprintf("%d", date)]
	if !ok {
		return 0, 0, nil
	}
	for id, r := range day.Reimbursements {
		if r.Template != models.TemplateKmAllowance {
			continue
		}
		if id == allowanceID {
			existing = r.Amount
		} else {
			otherClaims += r.Amount
		}
	}
	return otherClaims, existing, nil
}
