package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxBatchOps is the hard cap on writes per committed batch. Larger
// batches are sharded into sequential commits.
const MaxBatchOps = 500

// Collection names used across the service.
const (
	Activities        = "activities"
	Assignees         = "assignees"
	OfficeActivities  = "officeActivities"
	Profiles          = "profiles"
	ProfileActivities = "profileActivities"
	Subscriptions     = "subscriptions"
	Addendums         = "addendums"
	Attendances       = "attendances"
	Statuses          = "statuses"
	Inits             = "inits"
	Recipients        = "recipients"
	Templates         = "templates"
)

type op struct {
	collection string
	model      mongo.WriteModel
}

// Batch accumulates writes across collections so an activity change and
// all of its derived documents land together.
type Batch struct {
	ops []op
}

func NewBatch() *Batch {
	return &Batch{}
}

// Insert queues a document insert.
func (b *Batch) Insert(collection string, doc interface{}) {
	b.ops = append(b.ops, op{collection, mongo.NewInsertOneModel().SetDocument(doc)})
}

// Set queues a full-document upsert.
func (b *Batch) Set(collection string, filter bson.M, doc interface{}) {
	b.ops = append(b.ops, op{collection, mongo.NewReplaceOneModel().SetFilter(filter).SetReplacement(doc).SetUpsert(true)})
}

// Update queues a partial update of one matching document.
func (b *Batch) Update(collection string, filter bson.M, update bson.M) {
	b.ops = append(b.ops, op{collection, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update)})
}

// Upsert queues a partial update that inserts when nothing matches.
func (b *Batch) Upsert(collection string, filter bson.M, update bson.M) {
	b.ops = append(b.ops, op{collection, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true)})
}

// Delete queues the removal of one matching document.
func (b *Batch) Delete(collection string, filter bson.M) {
	b.ops = append(b.ops, op{collection, mongo.NewDeleteOneModel().SetFilter(filter)})
}

// Len reports how many writes are queued.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Store wraps the database handle and commits batches transactionally.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Commit writes the batch. Each shard of at most MaxBatchOps operations
// commits in its own transaction, shards in queue order.
func (s *Store) Commit(ctx context.Context, b *Batch) error {
	for start := 0; start < len(b.ops); start += MaxBatchOps {
		end := start + MaxBatchOps
		if end > len(b.ops) {
			end = len(b.ops)
		}
		if err := s.commitShard(ctx, b.ops[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) commitShard(ctx context.Context, ops []op) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %v", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		// Group per collection, preserving the order writes were queued
		// in within each collection.
		order := make([]string, 0)
		grouped := make(map[string][]mongo.WriteModel)
		for _, o := range ops {
			if _, ok := grouped[o.collection]; !ok {
				order = append(order, o.collection)
			}
			grouped[o.collection] = append(grouped[o.collection], o.model)
		}

		for _, collection := range order {
			_, err := s.db.Collection(collection).BulkWrite(sc, grouped[collection], options.BulkWrite().SetOrdered(true))
			if err != nil {
				return nil, fmt.Errorf("bulk write to %s failed: %v", collection, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("batch commit failed: %v", err)
	}
	return nil
}
