package services

import (
	"context"
	"fmt"

	"activities-service/models"
	"activities-service/store"

	"go.mongodb.org/mongo-driver/bson"
)

// handleClaim upserts the claim into the claimant's day ledger, keyed
// by activity id so a re-delivered event overwrites its own entry.
func (t *TriggerService) handleClaim(ctx context.Context, c *ChangeContext) error {
	ts := c.After.Timestamp
	if len(c.After.Schedule) > 0 && c.After.Schedule[0].StartTime > 0 {
		ts = c.After.Schedule[0].StartTime
	}
	date, month, year := DateParts(ts)

	reimbursement := models.Reimbursement{
		ActivityID: c.After.ID,
		Template:   c.After.Template,
		Name:       c.After.Attachment.StringValue("Claim Type"),
		Amount:     int64(c.After.Attachment.NumberValue("Amount")),
		Currency:   "INR",
		Status:     c.After.Status,
	}
	if c.Action() == models.ActionChangeStatus && c.After.Status == models.StatusConfirmed {
		reimbursement.ConfirmedBy = c.Addendum.User
		reimbursement.ApprovalTimestamp = c.Addendum.Timestamp
	}

	batch := store.NewBatch()
	batch.Upsert(store.Statuses, bson.M{
		"office":      c.After.Office,
		"phoneNumber": c.After.Creator.PhoneNumber,
		"month":       month,
		"year":        year,
	}, bson.M{
		"$setOnInsert": bson.M{"officeId": c.After.OfficeID},
		"$set": bson.M{
			fmt.Sprintf("statusObject.%d.reimbursements.%s", date, c.After.ID): reimbursement,
		},
	})
	return t.store.Commit(ctx, batch)
}
