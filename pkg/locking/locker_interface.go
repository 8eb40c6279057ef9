package locking

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTTL is how long a lock is held at most when its owner dies before releasing it
const DefaultTTL = 30 * time.Second

// LockerInterface represents a Locker
type LockerInterface interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (LockInterface, error)
}

// LockInterface represents a Lock
type LockInterface interface {
	Key() string
	Release(ctx context.Context) error
}

// PersonKey is the key that serializes all booking writes of a person
func PersonKey(personID primitive.ObjectID) string {
	return "schedule:person:" + personID.Hex()
}

// TaskKey is the key that serializes mutations of one task
func TaskKey(taskID primitive.ObjectID) string {
	return "task:" + taskID.Hex()
}
