package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockScheduleRepository is an in memory schedule repository for testing
type MockScheduleRepository struct {
	Entries []Entry
	mutex   sync.Mutex
}

// FindByPersonBetween finds entries intersecting [from, to) sorted by start
func (m *MockScheduleRepository) FindByPersonBetween(_ context.Context, personID primitive.ObjectID, from time.Time, to time.Time) ([]Entry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entries := []Entry{}
	for _, entry := range m.Entries {
		if entry.PersonID == personID && entry.Start.Before(to) && entry.End.After(from) {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Start.Before(entries[j].Start)
	})

	return entries, nil
}

// FindFirstOverlapping finds the earliest entry intersecting [from, to)
func (m *MockScheduleRepository) FindFirstOverlapping(ctx context.Context, personID primitive.ObjectID, from time.Time, to time.Time, excludeTaskID *primitive.ObjectID) (*Entry, error) {
	entries, err := m.FindByPersonBetween(ctx, personID, from, to)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if excludeTaskID != nil && entry.TaskID == *excludeTaskID {
			continue
		}
		entry := entry
		return &entry, nil
	}

	return nil, nil
}

// FindByTask finds all entries of a task
func (m *MockScheduleRepository) FindByTask(_ context.Context, taskID primitive.ObjectID) ([]Entry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	entries := []Entry{}
	for _, entry := range m.Entries {
		if entry.TaskID == taskID {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// DeleteByTask deletes the entries of a task except the ones of keepSlotIDs
func (m *MockScheduleRepository) DeleteByTask(_ context.Context, taskID primitive.ObjectID, keepSlotIDs []primitive.ObjectID) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	keep := make(map[primitive.ObjectID]bool)
	for _, id := range keepSlotIDs {
		keep[id] = true
	}

	var deleted int64
	var remaining []Entry
	for _, entry := range m.Entries {
		if entry.TaskID == taskID && !keep[entry.SlotID] {
			deleted++
			continue
		}
		remaining = append(remaining, entry)
	}

	m.Entries = remaining
	return deleted, nil
}

// Upsert inserts or updates entries keyed by task and slot
func (m *MockScheduleRepository) Upsert(_ context.Context, entries []Entry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, entry := range entries {
		entry.LastModifiedAt = time.Now()

		found := false
		for i, existing := range m.Entries {
			if existing.Key() == entry.Key() {
				entry.ID = existing.ID
				m.Entries[i] = entry
				found = true
				break
			}
		}

		if !found {
			entry.ID = primitive.NewObjectID()
			m.Entries = append(m.Entries, entry)
		}
	}

	return nil
}
