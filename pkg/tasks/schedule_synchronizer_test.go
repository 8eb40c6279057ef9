package tasks

import (
	"context"
	"testing"

	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/opsboard/opsboard-backend/pkg/schedule"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestScheduleSynchronizer_Sync(t *testing.T) {
	receiver := primitive.NewObjectID()
	kept := primitive.NewObjectID()
	removed := primitive.NewObjectID()
	broken := primitive.NewObjectID()
	taskID := primitive.NewObjectID()

	task := Task{
		ID:         taskID,
		ReceiverID: receiver,
		Status:     StatusInProgress,
		Slots: Slots{
			{ID: kept, Date: testDay, Start: mustMarker(t, "10:00"), End: mustMarker(t, "11:00"), Status: SlotStatusActive},
			{ID: broken, Start: mustMarker(t, "12:00"), End: mustMarker(t, "13:00")},
		},
	}

	repository := &schedule.MockScheduleRepository{Entries: []schedule.Entry{
		{ID: primitive.NewObjectID(), PersonID: receiver, TaskID: taskID, SlotID: kept, Start: clock(8, 0), End: clock(9, 0)},
		{ID: primitive.NewObjectID(), PersonID: receiver, TaskID: taskID, SlotID: removed, Start: clock(15, 0), End: clock(16, 0)},
		{ID: primitive.NewObjectID(), PersonID: receiver, TaskID: primitive.NewObjectID(), SlotID: primitive.NewObjectID(), Start: clock(15, 0), End: clock(16, 0)},
	}}
	synchronizer := ScheduleSynchronizer{Repository: repository, Logger: logger.Logger{}}

	err := synchronizer.Sync(context.Background(), &task)
	if err != nil {
		t.Fatal(err)
	}

	entries := entriesOf(repository, taskID)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry, ok := entries[kept]
	if !ok {
		t.Fatal("entry of the kept slot is missing")
	}
	if !entry.Start.Equal(clock(10, 0)) || !entry.End.Equal(clock(11, 0)) {
		t.Errorf("entry was not updated, got %s - %s", entry.Start, entry.End)
	}
	if entry.SlotStatus != SlotStatusActive || entry.TaskStatus != StatusInProgress {
		t.Errorf("statuses were not mirrored, got %s and %s", entry.SlotStatus, entry.TaskStatus)
	}
	if len(repository.Entries) != 2 {
		t.Errorf("entries of other tasks must stay, got %d entries", len(repository.Entries))
	}
}

func TestScheduleSynchronizer_SyncRemovesAll(t *testing.T) {
	receiver := primitive.NewObjectID()

	var removeTests = []struct {
		name   string
		mutate func(task *Task)
	}{
		{"no receiver", func(task *Task) { task.ReceiverID = primitive.NilObjectID }},
		{"no slots", func(task *Task) { task.Slots = nil }},
		{"archived", func(task *Task) { task.Deleted = true }},
	}

	for _, tt := range removeTests {
		t.Run(tt.name, func(t *testing.T) {
			slotID := primitive.NewObjectID()
			task := Task{
				ID:         primitive.NewObjectID(),
				ReceiverID: receiver,
				Slots:      Slots{{ID: slotID, Date: testDay, Start: mustMarker(t, "10:00"), End: mustMarker(t, "11:00")}},
			}

			repository := &schedule.MockScheduleRepository{Entries: []schedule.Entry{
				{ID: primitive.NewObjectID(), PersonID: receiver, TaskID: task.ID, SlotID: slotID, Start: clock(10, 0), End: clock(11, 0)},
			}}
			synchronizer := ScheduleSynchronizer{Repository: repository, Logger: logger.Logger{}}

			tt.mutate(&task)
			err := synchronizer.Sync(context.Background(), &task)
			if err != nil {
				t.Fatal(err)
			}

			if len(repository.Entries) != 0 {
				t.Errorf("expected no entries, got %d", len(repository.Entries))
			}
		})
	}
}
