package ports

import (
	"context"
	"time"
)

// Port: distributed mutual exclusion keyed by a resource name.
//
// Locks are leased, never held indefinitely: a holder that crashes or
// forgets to release loses the lock after the hold timeout. Ownership is
// proven by the opaque token returned from Acquire; Release and Renew with
// a stale token are rejected. The implementation must be usable across
// independent processes, not just goroutines.
type Locker interface {
	// Acquire blocks up to wait attempting to take the lock, leasing it
	// for hold. Returns domain.ErrLockTimeout when exclusivity could not
	// be obtained in time; callers treat that as "skip this cycle".
	Acquire(ctx context.Context, key string, hold, wait time.Duration) (token string, err error)

	// Release frees the lock if token still owns it; domain.ErrLockNotOwner
	// otherwise.
	Release(ctx context.Context, key, token string) error

	// Renew extends the lease if token still owns the lock;
	// domain.ErrLockExpired otherwise.
	Renew(ctx context.Context, key, token string, hold time.Duration) error
}
