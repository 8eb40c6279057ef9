package locking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLockerMemory_Acquire(t *testing.T) {
	locker := NewLockerMemory()
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := locker.Acquire(ctx, "counter", DefaultTTL)
			if err != nil {
				t.Error(err)
				return
			}
			value := counter
			time.Sleep(time.Microsecond)
			counter = value + 1
			_ = lock.Release(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestLockerMemory_AcquireRespectsContext(t *testing.T) {
	locker := NewLockerMemory()

	lock, err := locker.Acquire(context.Background(), "busy", DefaultTTL)
	require.NoError(t, err)
	assert.Equal(t, "busy", lock.Key())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, "busy", DefaultTTL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Acquire(context.Background(), "other", DefaultTTL)
	require.NoError(t, err)
	require.NoError(t, other.Release(context.Background()))

	require.NoError(t, lock.Release(context.Background()))
	require.NoError(t, lock.Release(context.Background()))

	again, err := locker.Acquire(context.Background(), "busy", DefaultTTL)
	require.NoError(t, err)
	require.NoError(t, again.Release(context.Background()))
}

func TestKeys(t *testing.T) {
	id, err := primitive.ObjectIDFromHex("5f8a1c2b3d4e5f6a7b8c9d0e")
	require.NoError(t, err)

	assert.Equal(t, "schedule:person:5f8a1c2b3d4e5f6a7b8c9d0e", PersonKey(id))
	assert.Equal(t, "task:5f8a1c2b3d4e5f6a7b8c9d0e", TaskKey(id))
}
