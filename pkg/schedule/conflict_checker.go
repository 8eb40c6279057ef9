package schedule

import (
	"context"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/date"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConflictChecker answers whether a candidate interval collides with a person's bookings
type ConflictChecker struct {
	Repository RepositoryInterface
}

// HasConflict returns the first entry of personID overlapping span, or nil. Entries of excludeTaskID are ignored.
func (c *ConflictChecker) HasConflict(ctx context.Context, personID primitive.ObjectID, span date.Timespan, excludeTaskID *primitive.ObjectID) (*Entry, error) {
	if !span.IsStartBeforeEnd() {
		return nil, communication.NewValidationError("end", "must be after start")
	}

	entry, err := c.Repository.FindFirstOverlapping(ctx, personID, span.Start, span.End, excludeTaskID)
	if err != nil {
		return nil, errors.Wrap(err, "could not query schedule")
	}

	return entry, nil
}

// NewConflictError describes a collision with entry for the caller
func NewConflictError(entry *Entry, message string) *communication.ConflictError {
	return &communication.ConflictError{
		ScheduleID: entry.ID.Hex(),
		TaskID:     entry.TaskID.Hex(),
		SlotID:     entry.SlotID.Hex(),
		Message:    message,
	}
}
