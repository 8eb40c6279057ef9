package schedule

import (
	"context"

	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// BookingCacheRedis caches bookings in Redis so all instances share invalidations
type BookingCacheRedis struct {
	Cache *cache.Cache
}

// NewBookingCacheRedis initializes a new BookingCacheRedis
func NewBookingCacheRedis(redisClient *redis.Client) *BookingCacheRedis {
	return &BookingCacheRedis{
		Cache: cache.New(&cache.Options{
			Redis: redisClient,
		}),
	}
}

// Add adds CachedBookings
func (c *BookingCacheRedis) Add(ctx context.Context, key string, entry *CachedBookings) error {
	return c.Cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   bookingCacheKey(key),
		Value: entry,
		TTL:   BookingCacheTTL,
	})
}

// Invalidate invalidates an entry
func (c *BookingCacheRedis) Invalidate(ctx context.Context, key string) error {
	err := c.Cache.Delete(ctx, bookingCacheKey(key))
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return err
	}

	return nil
}

// Get retrieves CachedBookings
func (c *BookingCacheRedis) Get(ctx context.Context, key string) (*CachedBookings, error) {
	result := CachedBookings{}
	err := c.Cache.Get(ctx, bookingCacheKey(key), &result)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrBookingCacheMiss
		}
		return nil, err
	}

	return &result, nil
}
