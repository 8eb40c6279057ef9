package tasks

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

// TaskRepositoryInterface is an interface for a *MongoDBTaskRepository
type TaskRepositoryInterface interface {
	Add(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, taskID string) (*Task, error)
	FindAll(ctx context.Context, personID string, page int, pageSize int, filters []Filter, includeDeleted bool) ([]Task, int, error)
	Archive(ctx context.Context, taskID string) error
}

// MongoDBTaskRepository does everything related to storing and finding tasks
type MongoDBTaskRepository struct {
	DB     *mongo.Collection
	Logger logger.Interface
}

// EnsureIndexes creates the indexes the person queries need
func (s *MongoDBTaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := s.DB.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})

	return err
}

// Add adds a task
func (s *MongoDBTaskRepository) Add(ctx context.Context, task *Task) error {
	task.CreatedAt = time.Now()
	task.LastModifiedAt = time.Now()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}

	assignIDs(task)

	_, err := s.DB.InsertOne(ctx, task)
	if err != nil {
		return err
	}

	return nil
}

// Update replaces the stored task, slots and extension requests included
func (s *MongoDBTaskRepository) Update(ctx context.Context, task *Task) error {
	task.LastModifiedAt = time.Now()

	assignIDs(task)

	result, err := s.DB.UpdateOne(ctx, bson.D{{Key: "_id", Value: task.ID}}, bson.M{"$set": task})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return &communication.NotFoundError{Resource: "task", ID: task.ID.Hex()}
	}

	return nil
}

// FindByID finds a specific task, archived ones included
func (s *MongoDBTaskRepository) FindByID(ctx context.Context, taskID string) (*Task, error) {
	t := Task{}

	taskObjectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, &communication.NotFoundError{Resource: "task", ID: taskID}
	}

	result := s.DB.FindOne(ctx, bson.D{{Key: "_id", Value: taskObjectID}})
	if result.Err() != nil {
		if errors.Is(result.Err(), mongo.ErrNoDocuments) {
			return nil, &communication.NotFoundError{Resource: "task", ID: taskID}
		}
		return nil, result.Err()
	}

	err = result.Decode(&t)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// FindAll finds all tasks a person assigned or received, paginated
func (s *MongoDBTaskRepository) FindAll(ctx context.Context, personID string, page int, pageSize int, filters []Filter, includeDeleted bool) ([]Task, int, error) {
	t := []Task{}

	personObjectID, err := primitive.ObjectIDFromHex(personID)
	if err != nil {
		return nil, 0, err
	}

	offset := page * pageSize

	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "createdAt", Value: -1}})
	findOptions.SetSkip(int64(offset))
	findOptions.SetLimit(int64(pageSize))

	filter := bson.D{{
		Key: "$or", Value: bson.A{
			bson.D{
				{Key: "assignerId", Value: personObjectID},
			},
			bson.D{
				{Key: "receiverId", Value: personObjectID},
			},
		},
	}}

	if !includeDeleted {
		filter = append(filter, bson.E{Key: "deleted", Value: false})
	}

	for _, f := range filters {
		if f.Operator != "" {
			filter = append(filter, bson.E{Key: f.Field, Value: bson.M{f.Operator: f.Value}})
			continue
		}
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}

	cursor, err := s.DB.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}

	count, err := s.DB.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	err = cursor.All(ctx, &t)
	if err != nil {
		return nil, 0, err
	}

	return t, int(count), nil
}

// Archive marks a task as deleted, tasks are never removed
func (s *MongoDBTaskRepository) Archive(ctx context.Context, taskID string) error {
	taskObjectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return &communication.NotFoundError{Resource: "task", ID: taskID}
	}

	result, err := s.DB.UpdateOne(ctx, bson.D{{Key: "_id", Value: taskObjectID}},
		bson.M{
			"$set": bson.M{
				"deleted":        true,
				"lastModifiedAt": time.Now(),
			},
		})
	if err != nil {
		return err
	}

	if result.MatchedCount != 1 {
		return &communication.NotFoundError{Resource: "task", ID: taskID}
	}

	return nil
}

func assignIDs(task *Task) {
	for i, slot := range task.Slots {
		if slot.ID.IsZero() {
			task.Slots[i].ID = primitive.NewObjectID()
		}
		for j, request := range slot.ExtensionRequests {
			if request.ID.IsZero() {
				task.Slots[i].ExtensionRequests[j].ID = primitive.NewObjectID()
			}
		}
	}
}
