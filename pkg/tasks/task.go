package tasks

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// StatusPending is a task nobody started yet
	StatusPending = "pending"
	// StatusInProgress is a task that is being worked on
	StatusInProgress = "in_progress"
	// StatusCompleted is a finished task
	StatusCompleted = "completed"
	// StatusCancelled is a task that will not be done
	StatusCancelled = "cancelled"
)

// Task is the model for a task assigned from one person to another
type Task struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	AssignerID     primitive.ObjectID `json:"assignerId" bson:"assignerId" validate:"required"`
	ReceiverID     primitive.ObjectID `json:"receiverId" bson:"receiverId"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	Client         string             `json:"client" bson:"client"`
	Category       string             `json:"category" bson:"category"`
	Priority       int                `json:"priority" bson:"priority" validate:"min=0,max=4"`
	Status         string             `json:"status" bson:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Deleted        bool               `json:"deleted" bson:"deleted"`
	Slots          Slots              `json:"slots" bson:"slots" validate:"dive"`
	TimeTracking   TimeTracking       `json:"timeTracking" bson:"timeTracking"`
}

// HasReceiver checks if the task is assigned to somebody who can be booked
func (t *Task) HasReceiver() bool {
	return !t.ReceiverID.IsZero()
}

// PersonIDs returns the assigner and, if present, the receiver
func (t *Task) PersonIDs() []primitive.ObjectID {
	ids := []primitive.ObjectID{t.AssignerID}
	if t.HasReceiver() && t.ReceiverID != t.AssignerID {
		ids = append(ids, t.ReceiverID)
	}
	return ids
}

// Copy returns a deep copy of the task, so slots and extension requests can be changed without touching t
func (t *Task) Copy() *Task {
	copied := *t
	copied.Slots = make(Slots, len(t.Slots))
	for i, slot := range t.Slots {
		copied.Slots[i] = slot
		copied.Slots[i].ExtensionRequests = append(ExtensionRequests{}, slot.ExtensionRequests...)
	}
	return &copied
}

// TimeTracking sums up the planned, extended and worked minutes of all slots
type TimeTracking struct {
	OriginalPlannedMinutes int `json:"originalPlannedMinutes" bson:"originalPlannedMinutes"`
	TotalExtendedMinutes   int `json:"totalExtendedMinutes" bson:"totalExtendedMinutes"`
	TotalWorkedMinutes     int `json:"totalWorkedMinutes" bson:"totalWorkedMinutes"`
}

// Recompute recalculates the TimeTracking from slots
func (t *TimeTracking) Recompute(slots Slots) {
	t.OriginalPlannedMinutes = 0
	t.TotalExtendedMinutes = 0
	t.TotalWorkedMinutes = 0

	for _, slot := range slots {
		t.OriginalPlannedMinutes += slot.DurationMinutes - slot.ExtensionMinutes
		t.TotalExtendedMinutes += slot.ExtensionMinutes
		if slot.Status == SlotStatusCompleted {
			t.TotalWorkedMinutes += slot.DurationMinutes
		}
	}
}
