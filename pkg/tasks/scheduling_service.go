package tasks

import (
	"context"
	"sort"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/date"
	"github.com/opsboard/opsboard-backend/pkg/locking"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/opsboard/opsboard-backend/pkg/schedule"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// now is the current time and is globally available to override it in tests
var now = time.Now

// SchedulingService books task slots, keeps the schedule index in sync and runs extension requests
type SchedulingService struct {
	EventPublisher
	TaskRepository  TaskRepositoryInterface
	ConflictChecker *schedule.ConflictChecker
	Synchronizer    *ScheduleSynchronizer
	Locker          locking.LockerInterface
	Logger          logger.Interface
	Location        *time.Location
}

// NewSchedulingService wires a SchedulingService around the task and schedule stores
func NewSchedulingService(taskRepository TaskRepositoryInterface, scheduleRepository schedule.RepositoryInterface,
	locker locking.LockerInterface, logger logger.Interface, location *time.Location) *SchedulingService {
	return &SchedulingService{
		TaskRepository:  taskRepository,
		ConflictChecker: &schedule.ConflictChecker{Repository: scheduleRepository},
		Synchronizer: &ScheduleSynchronizer{
			Repository: scheduleRepository,
			Logger:     logger,
			Location:   location,
		},
		Locker:   locker,
		Logger:   logger,
		Location: location,
	}
}

func (s *SchedulingService) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// CreateTask validates the slots of task, checks them against the receiver's bookings, stores the task
// and books its slots
func (s *SchedulingService) CreateTask(ctx context.Context, task *Task) (*Task, error) {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	if task.Status == "" {
		task.Status = StatusPending
	}
	task.Deleted = false

	for i := range task.Slots {
		slot := &task.Slots[i]
		slot.ID = primitive.NewObjectID()
		slot.ExtensionMinutes = 0
		slot.ExtensionRequests = ExtensionRequests{}
		if slot.Status == "" {
			slot.Status = SlotStatusScheduled
		}
	}

	spans, err := s.resolveSlots(task.Slots, 0)
	if err != nil {
		return nil, err
	}

	for i := range task.Slots {
		slot := &task.Slots[i]
		minutes := spans[i].Minutes()
		if slot.DurationMinutes == 0 {
			slot.DurationMinutes = minutes
		}
		if slot.DurationMinutes != minutes {
			return nil, communication.NewValidationError("durationMinutes",
				"slot %d lasts %d minutes but durationMinutes is %d", i, minutes, slot.DurationMinutes)
		}
	}

	err = checkSelfOverlap(task, spans)
	if err != nil {
		return nil, err
	}

	task.TimeTracking.Recompute(task.Slots)

	var keys []string
	if task.HasReceiver() && len(task.Slots) > 0 {
		keys = append(keys, locking.PersonKey(task.ReceiverID))
	}

	err = s.withLocks(ctx, keys, func() error {
		if task.HasReceiver() {
			for i, slot := range task.Slots {
				err := s.checkConflict(ctx, task.ReceiverID, spans[i], nil, slot)
				if err != nil {
					return err
				}
			}
		}

		err := s.TaskRepository.Add(ctx, task)
		if err != nil {
			return errors.Wrap(err, "could not persist task")
		}

		err = s.Synchronizer.Sync(ctx, task)
		if err != nil {
			s.discardUnindexed(ctx, task)
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Publish(NewEvent(EventTaskScheduled, task))

	return task, nil
}

// discardUnindexed archives a freshly stored task whose slots could not be indexed and drops any rows
// that made it into the index
func (s *SchedulingService) discardUnindexed(ctx context.Context, task *Task) {
	err := s.TaskRepository.Archive(ctx, task.ID.Hex())
	if err != nil {
		s.Logger.Error("could not archive unindexed task "+task.ID.Hex(), err)
	}

	_, err = s.Synchronizer.Repository.DeleteByTask(ctx, task.ID, nil)
	if err != nil {
		s.Logger.Error("could not remove index rows of task "+task.ID.Hex(), err)
	}
}

// GetTask finds a task by id
func (s *SchedulingService) GetTask(ctx context.Context, taskID string) (*Task, error) {
	_, err := parseID("taskId", taskID)
	if err != nil {
		return nil, err
	}

	return s.TaskRepository.FindByID(ctx, taskID)
}

// ArchiveTask marks a task as deleted and frees its bookings
func (s *SchedulingService) ArchiveTask(ctx context.Context, taskID string) (*Task, error) {
	taskObjectID, err := parseID("taskId", taskID)
	if err != nil {
		return nil, err
	}

	var task *Task
	err = s.withLocks(ctx, []string{locking.TaskKey(taskObjectID)}, func() error {
		task, err = s.TaskRepository.FindByID(ctx, taskID)
		if err != nil {
			return err
		}

		if task.Deleted {
			return &communication.StateError{Message: "task is already archived"}
		}

		err = s.TaskRepository.Archive(ctx, taskID)
		if err != nil {
			return errors.Wrap(err, "could not archive task")
		}
		task.Deleted = true

		return s.Synchronizer.Sync(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.Publish(NewEvent(EventTaskArchived, task))

	return task, nil
}

// UpdateSlotStatus changes the status of one slot and mirrors it into the schedule index
func (s *SchedulingService) UpdateSlotStatus(ctx context.Context, taskID string, slotID string, status string) (*Task, error) {
	taskObjectID, err := parseID("taskId", taskID)
	if err != nil {
		return nil, err
	}
	slotObjectID, err := parseID("slotId", slotID)
	if err != nil {
		return nil, err
	}
	if !IsSlotStatus(status) {
		return nil, communication.NewValidationError("status", "%q is not a slot status", status)
	}

	var task *Task
	err = s.withLocks(ctx, []string{locking.TaskKey(taskObjectID)}, func() error {
		task, err = s.findActiveTask(ctx, taskID)
		if err != nil {
			return err
		}

		_, slot := task.Slots.FindByID(slotObjectID)
		if slot == nil {
			return &communication.NotFoundError{Resource: "slot", ID: slotID}
		}

		slot.Status = status
		task.TimeTracking.Recompute(task.Slots)

		err = s.TaskRepository.Update(ctx, task)
		if err != nil {
			return errors.Wrap(err, "could not persist task")
		}

		return s.Synchronizer.Sync(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	event := NewEvent(EventSlotUpdated, task)
	event.SlotID = &slotObjectID
	s.Publish(event)

	return task, nil
}

// Resync rebuilds the schedule index rows of a task from the stored task
func (s *SchedulingService) Resync(ctx context.Context, taskID string) (*Task, error) {
	taskObjectID, err := parseID("taskId", taskID)
	if err != nil {
		return nil, err
	}

	var task *Task
	err = s.withLocks(ctx, []string{locking.TaskKey(taskObjectID)}, func() error {
		task, err = s.TaskRepository.FindByID(ctx, taskID)
		if err != nil {
			return err
		}

		return s.Synchronizer.Sync(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

func (s *SchedulingService) findActiveTask(ctx context.Context, taskID string) (*Task, error) {
	task, err := s.TaskRepository.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if task.Deleted {
		return nil, &communication.StateError{Message: "task is archived"}
	}

	return task, nil
}

// resolveSlots resolves the intervals of slots[from:], the result is indexed like slots
func (s *SchedulingService) resolveSlots(slots Slots, from int) ([]date.Timespan, error) {
	spans := make([]date.Timespan, len(slots))
	for i := from; i < len(slots); i++ {
		span, err := slots[i].Interval(s.location())
		if err != nil {
			return nil, err
		}
		spans[i] = span
	}

	return spans, nil
}

func (s *SchedulingService) checkConflict(ctx context.Context, personID primitive.ObjectID, span date.Timespan,
	excludeTaskID *primitive.ObjectID, slot Slot) error {
	entry, err := s.ConflictChecker.HasConflict(ctx, personID, span, excludeTaskID)
	if err != nil {
		return err
	}

	if entry != nil {
		return schedule.NewConflictError(entry, "slot "+slot.ID.Hex()+" overlaps an existing booking")
	}

	return nil
}

// withLocks runs fn while holding the locks of keys, acquired in order
func (s *SchedulingService) withLocks(ctx context.Context, keys []string, fn func() error) error {
	var held []locking.LockInterface

	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			err := held[i].Release(context.Background())
			if err != nil {
				s.Logger.Error("could not release lock "+held[i].Key(), err)
			}
		}
	}()

	for _, key := range keys {
		lock, err := s.Locker.Acquire(ctx, key, locking.DefaultTTL)
		if err != nil {
			return errors.Wrap(err, "could not acquire lock")
		}
		held = append(held, lock)
	}

	return fn()
}

// checkSelfOverlap rejects tasks whose own resolved slots overlap each other. Zero spans are skipped.
func checkSelfOverlap(task *Task, spans []date.Timespan) error {
	var order []int
	for i, span := range spans {
		if !span.Start.IsZero() {
			order = append(order, i)
		}
	}

	sort.Slice(order, func(a, b int) bool {
		return spans[order[a]].Start.Before(spans[order[b]].Start)
	})

	for k := 1; k < len(order); k++ {
		previous, current := order[k-1], order[k]
		if spans[previous].IntersectsWith(spans[current]) {
			return &communication.ConflictError{
				TaskID:  task.ID.Hex(),
				SlotID:  task.Slots[previous].ID.Hex(),
				Message: "slot " + task.Slots[current].ID.Hex() + " overlaps another slot of the same task",
			}
		}
	}

	return nil
}

func parseID(field string, value string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return primitive.NilObjectID, communication.NewValidationError(field, "%q is not a valid id", value)
	}
	return id, nil
}
