package store

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestBatchLen(t *testing.T) {
	b := NewBatch()
	if b.Len() != 0 {
		t.Fatalf("new batch Len = %d, want 0", b.Len())
	}

	b.Insert(Activities, bson.M{"_id": "a1"})
	b.Set(Assignees, bson.M{"_id": "a1--+911111111111"}, bson.M{"activityId": "a1"})
	b.Update(Profiles, bson.M{"_id": "+911111111111"}, bson.M{"$set": bson.M{"uid": "u1"}})
	b.Upsert(Attendances, bson.M{"_id": "att1"}, bson.M{"$inc": bson.M{"numberOfCheckIns": 1}})
	b.Delete(ProfileActivities, bson.M{"_id": "pa1"})

	if b.Len() != 5 {
		t.Errorf("Len = %d, want 5", b.Len())
	}
}

func TestBatchModelKinds(t *testing.T) {
	b := NewBatch()
	b.Insert(Activities, bson.M{"_id": "a1"})
	b.Set(Activities, bson.M{"_id": "a1"}, bson.M{"_id": "a1"})
	b.Upsert(Activities, bson.M{"_id": "a1"}, bson.M{"$set": bson.M{"status": "PENDING"}})
	b.Delete(Activities, bson.M{"_id": "a1"})

	if _, ok := b.ops[0].model.(*mongo.InsertOneModel); !ok {
		t.Errorf("Insert queued %T, want *mongo.InsertOneModel", b.ops[0].model)
	}
	replace, ok := b.ops[1].model.(*mongo.ReplaceOneModel)
	if !ok {
		t.Fatalf("Set queued %T, want *mongo.ReplaceOneModel", b.ops[1].model)
	}
	if replace.Upsert == nil || !*replace.Upsert {
		t.Error("Set should queue an upserting replace")
	}
	update, ok := b.ops[2].model.(*mongo.UpdateOneModel)
	if !ok {
		t.Fatalf("Upsert queued %T, want *mongo.UpdateOneModel", b.ops[2].model)
	}
	if update.Upsert == nil || !*update.Upsert {
		t.Error("Upsert should set the upsert flag")
	}
	if _, ok := b.ops[3].model.(*mongo.DeleteOneModel); !ok {
		t.Errorf("Delete queued %T, want *mongo.DeleteOneModel", b.ops[3].model)
	}
}

func TestBatchPreservesQueueOrder(t *testing.T) {
	b := NewBatch()
	b.Insert(Activities, bson.M{"_id": "a1"})
	b.Insert(Addendums, bson.M{"_id": "ad1"})
	b.Insert(Activities, bson.M{"_id": "a2"})

	collections := []string{b.ops[0].collection, b.ops[1].collection, b.ops[2].collection}
	want := []string{Activities, Addendums, Activities}
	for i := range want {
		if collections[i] != want[i] {
			t.Fatalf("ops[%d] collection = %s, want %s", i, collections[i], want[i])
		}
	}
}

func TestCommitEmptyBatch(t *testing.T) {
	// No operations means no sessions and no writes; a nil client would
	// panic if Commit touched it.
	if err := (&Store{}).Commit(context.Background(), NewBatch()); err != nil {
		t.Fatalf("Commit of empty batch: %v", err)
	}
}
