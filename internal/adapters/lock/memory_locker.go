package lock

import (
	"context"
	"sync"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// In-process implementation of the Locker port with the same lease
// semantics as the Redis adapter. Suitable for single-instance deployments
// and for tests that exercise lock contention without a Redis server.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	// RetryInterval paces acquisition attempts while waiting.
	RetryInterval time.Duration
}

type memoryLease struct {
	token     string
	expiresAt time.Time
}

func NewMemoryLocker(retryInterval time.Duration) *MemoryLocker {
	if retryInterval <= 0 {
		retryInterval = 5 * time.Millisecond
	}
	return &MemoryLocker{
		leases:        make(map[string]memoryLease),
		RetryInterval: retryInterval,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, hold, wait time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	deadline := time.Now().Add(wait)
	for {
		if l.tryAcquire(key, token, hold) {
			return token, nil
		}
		if time.Now().Add(l.RetryInterval).After(deadline) {
			return "", domain.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.RetryInterval):
		}
	}
}

func (l *MemoryLocker) tryAcquire(key, token string, hold time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	lease, held := l.leases[key]
	if held && time.Now().Before(lease.expiresAt) {
		return false
	}
	l.leases[key] = memoryLease{token: token, expiresAt: time.Now().Add(hold)}
	return true
}

func (l *MemoryLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lease, held := l.leases[key]
	if !held || lease.token != token {
		return domain.ErrLockNotOwner
	}
	delete(l.leases, key)
	return nil
}

func (l *MemoryLocker) Renew(ctx context.Context, key, token string, hold time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lease, held := l.leases[key]
	if !held || lease.token != token || time.Now().After(lease.expiresAt) {
		return domain.ErrLockExpired
	}
	l.leases[key] = memoryLease{token: token, expiresAt: time.Now().Add(hold)}
	return nil
}
