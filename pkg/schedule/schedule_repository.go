package schedule

import (
	"context"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RepositoryInterface is the store of schedule entries
type RepositoryInterface interface {
	FindByPersonBetween(ctx context.Context, personID primitive.ObjectID, from time.Time, to time.Time) ([]Entry, error)
	FindFirstOverlapping(ctx context.Context, personID primitive.ObjectID, from time.Time, to time.Time, excludeTaskID *primitive.ObjectID) (*Entry, error)
	FindByTask(ctx context.Context, taskID primitive.ObjectID) ([]Entry, error)
	DeleteByTask(ctx context.Context, taskID primitive.ObjectID, keepSlotIDs []primitive.ObjectID) (int64, error)
	Upsert(ctx context.Context, entries []Entry) error
}

// MongoDBScheduleRepository stores schedule entries in a MongoDB collection
type MongoDBScheduleRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// EnsureIndexes creates the (task, slot) uniqueness constraint and the person range index
func (s *MongoDBScheduleRepository) EnsureIndexes(ctx context.Context) error {
	_, err := s.DB.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "taskId", Value: 1}, {Key: "slotId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("task_slot_unique"),
		},
		{
			Keys:    bson.D{{Key: "personId", Value: 1}, {Key: "start", Value: 1}, {Key: "end", Value: 1}},
			Options: options.Index().SetName("person_range"),
		},
	})

	return err
}

// FindByPersonBetween finds all entries of a person that intersect [from, to), sorted by start
func (s *MongoDBScheduleRepository) FindByPersonBetween(ctx context.Context, personID primitive.ObjectID, from time.Time, to time.Time) ([]Entry, error) {
	entries := []Entry{}

	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "start", Value: 1}})

	cursor, err := s.DB.Find(ctx, bson.D{
		{Key: "personId", Value: personID},
		{Key: "start", Value: bson.M{"$lt": to}},
		{Key: "end", Value: bson.M{"$gt": from}},
	}, findOptions)
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &entries)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// FindFirstOverlapping finds one entry of a person that intersects [from, to), optionally ignoring a task
func (s *MongoDBScheduleRepository) FindFirstOverlapping(ctx context.Context, personID primitive.ObjectID, from time.Time, to time.Time, excludeTaskID *primitive.ObjectID) (*Entry, error) {
	filter := bson.D{
		{Key: "personId", Value: personID},
		{Key: "start", Value: bson.M{"$lt": to}},
		{Key: "end", Value: bson.M{"$gt": from}},
	}

	if excludeTaskID != nil {
		filter = append(filter, bson.E{Key: "taskId", Value: bson.M{"$ne": *excludeTaskID}})
	}

	findOptions := options.FindOne()
	findOptions.SetSort(bson.D{{Key: "start", Value: 1}})

	entry := Entry{}
	err := s.DB.FindOne(ctx, filter, findOptions).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	return &entry, nil
}

// FindByTask finds all entries of a task
func (s *MongoDBScheduleRepository) FindByTask(ctx context.Context, taskID primitive.ObjectID) ([]Entry, error) {
	entries := []Entry{}

	cursor, err := s.DB.Find(ctx, bson.M{"taskId": taskID})
	if err != nil {
		return nil, err
	}

	err = cursor.All(ctx, &entries)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// DeleteByTask deletes the entries of a task except the ones of keepSlotIDs
func (s *MongoDBScheduleRepository) DeleteByTask(ctx context.Context, taskID primitive.ObjectID, keepSlotIDs []primitive.ObjectID) (int64, error) {
	filter := bson.D{{Key: "taskId", Value: taskID}}
	if len(keepSlotIDs) > 0 {
		filter = append(filter, bson.E{Key: "slotId", Value: bson.M{"$nin": keepSlotIDs}})
	}

	result, err := s.DB.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

// Upsert inserts or updates entries keyed by task and slot in one bulk write
func (s *MongoDBScheduleRepository) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var models []mongo.WriteModel
	for _, entry := range entries {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "taskId", Value: entry.TaskID}, {Key: "slotId", Value: entry.SlotID}}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"personId":       entry.PersonID,
					"start":          entry.Start,
					"end":            entry.End,
					"slotStatus":     entry.SlotStatus,
					"taskStatus":     entry.TaskStatus,
					"lastModifiedAt": time.Now(),
				},
				"$setOnInsert": bson.M{
					"_id": primitive.NewObjectID(),
				},
			}).
			SetUpsert(true))
	}

	_, err := s.DB.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &communication.ConflictError{
				TaskID:  entries[0].TaskID.Hex(),
				Message: "a concurrent write booked the same slot",
			}
		}
		return err
	}

	return nil
}
