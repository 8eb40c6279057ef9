package schedule

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// BookingCacheMemory caches bookings in process, for single instance deployments and tests
type BookingCacheMemory struct {
	Cache *lru.Cache
}

type memoryBookings struct {
	bookings  *CachedBookings
	expiresAt time.Time
}

// NewBookingCacheMemory initializes a new BookingCacheMemory holding up to size persons
func NewBookingCacheMemory(size int) (*BookingCacheMemory, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &BookingCacheMemory{
		Cache: cache,
	}, nil
}

// Add adds CachedBookings
func (c *BookingCacheMemory) Add(_ context.Context, key string, entry *CachedBookings) error {
	_ = c.Cache.Add(bookingCacheKey(key), &memoryBookings{bookings: entry, expiresAt: now().Add(BookingCacheTTL)})
	return nil
}

// Invalidate removes CachedBookings
func (c *BookingCacheMemory) Invalidate(_ context.Context, key string) error {
	c.Cache.Remove(bookingCacheKey(key))
	return nil
}

// Get retrieves CachedBookings
func (c *BookingCacheMemory) Get(_ context.Context, key string) (*CachedBookings, error) {
	result, ok := c.Cache.Get(bookingCacheKey(key))
	if !ok {
		return nil, ErrBookingCacheMiss
	}

	cached, ok := result.(*memoryBookings)
	if !ok {
		return nil, fmt.Errorf("cache entry was not a booking cache entry")
	}

	if now().After(cached.expiresAt) {
		c.Cache.Remove(bookingCacheKey(key))
		return nil, ErrBookingCacheMiss
	}

	return cached.bookings, nil
}
