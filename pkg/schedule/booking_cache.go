package schedule

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// BookingCacheTTL is how long a person's bookings are cached
const BookingCacheTTL = time.Minute

// ErrBookingCacheMiss is returned when nothing is cached for a person
var ErrBookingCacheMiss = errors.New("bookings are not cached")

// CachedBookings is a person's bookings for a window
type CachedBookings struct {
	From    time.Time
	To      time.Time
	Entries []Entry
}

// Covers checks if the cached window contains [from, to)
func (c *CachedBookings) Covers(from time.Time, to time.Time) bool {
	return !from.Before(c.From) && !to.After(c.To)
}

// Between returns the cached entries intersecting [from, to)
func (c *CachedBookings) Between(from time.Time, to time.Time) []Entry {
	entries := []Entry{}
	for _, entry := range c.Entries {
		if entry.Start.Before(to) && entry.End.After(from) {
			entries = append(entries, entry)
		}
	}
	return entries
}

// BookingCacheInterface caches bookings per person
type BookingCacheInterface interface {
	Add(ctx context.Context, key string, entry *CachedBookings) error
	Invalidate(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*CachedBookings, error)
}

func bookingCacheKey(personID string) string {
	return "bookings:" + personID
}
