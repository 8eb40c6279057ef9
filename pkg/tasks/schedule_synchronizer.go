package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/opsboard/opsboard-backend/pkg/schedule"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleSynchronizer keeps the schedule index in line with a task's slots
type ScheduleSynchronizer struct {
	Repository schedule.RepositoryInterface
	Logger     logger.Interface
	Location   *time.Location
}

// Sync replaces the index rows of task with one row per resolvable slot. Tasks without receiver
// or slots and archived tasks end up without rows.
func (s *ScheduleSynchronizer) Sync(ctx context.Context, task *Task) error {
	if !task.HasReceiver() || len(task.Slots) == 0 || task.Deleted {
		_, err := s.Repository.DeleteByTask(ctx, task.ID, nil)
		if err != nil {
			return errors.Wrap(err, "could not remove schedule entries")
		}
		return nil
	}

	var keep []primitive.ObjectID
	var entries []schedule.Entry

	for _, slot := range task.Slots {
		span, err := slot.Interval(s.location())
		if err != nil {
			s.Logger.Info(fmt.Sprintf("skipping slot %s of task %s: %v", slot.ID.Hex(), task.ID.Hex(), err))
			continue
		}

		keep = append(keep, slot.ID)
		entries = append(entries, schedule.Entry{
			PersonID:   task.ReceiverID,
			TaskID:     task.ID,
			SlotID:     slot.ID,
			Start:      span.Start,
			End:        span.End,
			SlotStatus: slot.Status,
			TaskStatus: task.Status,
		})
	}

	_, err := s.Repository.DeleteByTask(ctx, task.ID, keep)
	if err != nil {
		return errors.Wrap(err, "could not remove stale schedule entries")
	}

	err = s.Repository.Upsert(ctx, entries)
	if err != nil {
		return errors.Wrap(err, "could not write schedule entries")
	}

	return nil
}

func (s *ScheduleSynchronizer) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
