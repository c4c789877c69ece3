package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one key across process replicas.
// The session Manager uses it to keep turns of a user from interleaving when
// several instances share a store.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done. The lock
	// expires after ttl if never released. The returned UnlockFunc MUST be
	// called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
