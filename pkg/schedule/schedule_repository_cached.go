package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CachedScheduleRepository serves range reads from a BookingCacheInterface and invalidates it on writes.
// Overlap lookups always go to the underlying repository.
// Every write bumps the generation of the persons it touched, a read that raced with a write does not stay cached.
type CachedScheduleRepository struct {
	Repository RepositoryInterface
	Cache      BookingCacheInterface
	Logger     logger.Interface

	mutex       sync.Mutex
	generations map[primitive.ObjectID]uint64
}

// FindByPersonBetween serves the range from cache when the cached window covers it
func (c *CachedScheduleRepository) FindByPersonBetween(ctx context.Context, personID primitive.ObjectID, from time.Time, to time.Time) ([]Entry, error) {
	cached, err := c.Cache.Get(ctx, personID.Hex())
	if err == nil && cached.Covers(from, to) {
		return cached.Between(from, to), nil
	}
	if err != nil && !errors.Is(err, ErrBookingCacheMiss) {
		c.Logger.Error("could not read booking cache", err)
	}

	generation := c.generation(personID)

	entries, err := c.Repository.FindByPersonBetween(ctx, personID, from, to)
	if err != nil {
		return nil, err
	}

	if c.generation(personID) != generation {
		return entries, nil
	}

	err = c.Cache.Add(ctx, personID.Hex(), &CachedBookings{From: from, To: to, Entries: entries})
	if err != nil {
		c.Logger.Error("could not write booking cache", err)
	}

	// a write may have landed between the check and the add
	if c.generation(personID) != generation {
		err = c.Cache.Invalidate(ctx, personID.Hex())
		if err != nil {
			c.Logger.Error("could not invalidate booking cache", err)
		}
	}

	return entries, nil
}

// FindFirstOverlapping is never cached
func (c *CachedScheduleRepository) FindFirstOverlapping(ctx context.Context, personID primitive.ObjectID, from time.Time, to time.Time, excludeTaskID *primitive.ObjectID) (*Entry, error) {
	return c.Repository.FindFirstOverlapping(ctx, personID, from, to, excludeTaskID)
}

// FindByTask is never cached
func (c *CachedScheduleRepository) FindByTask(ctx context.Context, taskID primitive.ObjectID) ([]Entry, error) {
	return c.Repository.FindByTask(ctx, taskID)
}

// DeleteByTask deletes and invalidates every person that had an entry of the task
func (c *CachedScheduleRepository) DeleteByTask(ctx context.Context, taskID primitive.ObjectID, keepSlotIDs []primitive.ObjectID) (int64, error) {
	existing, err := c.Repository.FindByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}

	deleted, err := c.Repository.DeleteByTask(ctx, taskID, keepSlotIDs)
	if err != nil {
		return 0, err
	}

	c.invalidate(ctx, existing)
	return deleted, nil
}

// Upsert writes and invalidates the new and previous persons of the entries
func (c *CachedScheduleRepository) Upsert(ctx context.Context, entries []Entry) error {
	affected := append([]Entry{}, entries...)

	seenTasks := make(map[primitive.ObjectID]bool)
	for _, entry := range entries {
		if seenTasks[entry.TaskID] {
			continue
		}
		seenTasks[entry.TaskID] = true

		existing, err := c.Repository.FindByTask(ctx, entry.TaskID)
		if err != nil {
			return err
		}
		affected = append(affected, existing...)
	}

	err := c.Repository.Upsert(ctx, entries)
	if err != nil {
		return err
	}

	c.invalidate(ctx, affected)
	return nil
}

func (c *CachedScheduleRepository) invalidate(ctx context.Context, entries []Entry) {
	seen := make(map[primitive.ObjectID]bool)
	for _, entry := range entries {
		if seen[entry.PersonID] {
			continue
		}
		seen[entry.PersonID] = true
		c.bump(entry.PersonID)

		err := c.Cache.Invalidate(ctx, entry.PersonID.Hex())
		if err != nil {
			c.Logger.Error("could not invalidate booking cache", err)
		}
	}
}

func (c *CachedScheduleRepository) generation(personID primitive.ObjectID) uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.generations[personID]
}

func (c *CachedScheduleRepository) bump(personID primitive.ObjectID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.generations == nil {
		c.generations = make(map[primitive.ObjectID]uint64)
	}
	c.generations[personID]++
}
