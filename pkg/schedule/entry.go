package schedule

import (
	"time"

	"github.com/opsboard/opsboard-backend/pkg/date"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is one booked interval of a person, a read optimized projection of a task slot
type Entry struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	PersonID       primitive.ObjectID `json:"personId" bson:"personId"`
	TaskID         primitive.ObjectID `json:"taskId" bson:"taskId"`
	SlotID         primitive.ObjectID `json:"slotId" bson:"slotId"`
	Start          time.Time          `json:"start" bson:"start"`
	End            time.Time          `json:"end" bson:"end"`
	SlotStatus     string             `json:"slotStatus" bson:"slotStatus"`
	TaskStatus     string             `json:"taskStatus" bson:"taskStatus"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
}

// Timespan returns the booked interval
func (e *Entry) Timespan() date.Timespan {
	return date.Timespan{Start: e.Start, End: e.End}
}

// Key identifies the slot an Entry projects
type Key struct {
	TaskID primitive.ObjectID
	SlotID primitive.ObjectID
}

// Key returns the (task, slot) key of the Entry
func (e *Entry) Key() Key {
	return Key{TaskID: e.TaskID, SlotID: e.SlotID}
}
