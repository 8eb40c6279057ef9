package tasks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockTaskRepository is a task repository for testing
type MockTaskRepository struct {
	Tasks []*Task
	// UpdateError is returned by Update when set
	UpdateError error
	mutex       sync.Mutex
}

// Add adds a task
func (m *MockTaskRepository) Add(_ context.Context, task *Task) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task.CreatedAt = time.Now()
	task.LastModifiedAt = time.Now()
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}

	assignIDs(task)

	m.Tasks = append(m.Tasks, task.Copy())
	return nil
}

// Update updates a task
func (m *MockTaskRepository) Update(_ context.Context, task *Task) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.UpdateError != nil {
		return m.UpdateError
	}

	task.LastModifiedAt = time.Now()
	assignIDs(task)

	for i, t := range m.Tasks {
		if t.ID == task.ID {
			m.Tasks[i] = task.Copy()
			return nil
		}
	}

	return &communication.NotFoundError{Resource: "task", ID: task.ID.Hex()}
}

// FindByID finds a task, the result is a copy like a decoded document would be
func (m *MockTaskRepository) FindByID(_ context.Context, taskID string) (*Task, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	taskObjectID, _ := primitive.ObjectIDFromHex(taskID)
	for _, t := range m.Tasks {
		if t.ID == taskObjectID {
			return t.Copy(), nil
		}
	}

	return nil, &communication.NotFoundError{Resource: "task", ID: taskID}
}

// FindAll finds all tasks of a person. Only equality filters are supported.
func (m *MockTaskRepository) FindAll(_ context.Context, personID string, page int, pageSize int, filters []Filter, includeDeleted bool) ([]Task, int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	personObjectID, _ := primitive.ObjectIDFromHex(personID)

	tasks := []Task{}
	for _, t := range m.Tasks {
		if t.AssignerID != personObjectID && t.ReceiverID != personObjectID {
			continue
		}
		if t.Deleted && !includeDeleted {
			continue
		}
		if !matches(t, filters) {
			continue
		}
		tasks = append(tasks, *t.Copy())
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	count := len(tasks)
	start := page * pageSize
	if start >= count {
		return []Task{}, count, nil
	}

	end := start + pageSize
	if end > count {
		end = count
	}

	return tasks[start:end], count, nil
}

// Archive marks a task as deleted
func (m *MockTaskRepository) Archive(_ context.Context, taskID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	taskObjectID, _ := primitive.ObjectIDFromHex(taskID)
	for _, t := range m.Tasks {
		if t.ID == taskObjectID {
			t.Deleted = true
			t.LastModifiedAt = time.Now()
			return nil
		}
	}

	return &communication.NotFoundError{Resource: "task", ID: taskID}
}

func matches(task *Task, filters []Filter) bool {
	for _, filter := range filters {
		if filter.Field == "status" && filter.Value != task.Status {
			return false
		}
	}
	return true
}
