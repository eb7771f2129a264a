package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates layout edits across several server replicas.
type DistributedLocker interface {
	// Lock blocks until the lock for key (a layout ID) is held or ctx is done.
	// The lock expires after ttl if the holder disappears.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
