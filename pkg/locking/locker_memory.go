package locking

import (
	"context"
	"sync"
	"time"
)

// LockerMemory is a type of LockerInterface for single instance deployments
type LockerMemory struct {
	mutex sync.Mutex
	locks map[string]chan struct{}
}

// NewLockerMemory builds a new LockerMemory instance
func NewLockerMemory() *LockerMemory {
	return &LockerMemory{
		locks: make(map[string]chan struct{}),
	}
}

// Acquire blocks until key is free or ctx is done. The ttl is not enforced in memory.
func (l *LockerMemory) Acquire(ctx context.Context, key string, _ time.Duration) (LockInterface, error) {
	lock := l.getLock(key)

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &LockMemory{
		key: key,
		release: func() {
			<-lock
		},
	}, nil
}

func (l *LockerMemory) getLock(key string) chan struct{} {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	lock, ok := l.locks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		l.locks[key] = lock
	}

	return lock
}

// LockMemory is a memory implementation of a LockInterface
type LockMemory struct {
	key     string
	once    sync.Once
	release func()
}

// Key returns a key
func (l *LockMemory) Key() string {
	return l.key
}

// Release releases a LockMemory, releasing twice is a no-op
func (l *LockMemory) Release(_ context.Context) error {
	l.once.Do(l.release)
	return nil
}
