package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/atomic"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

func TestMemoryLockerMutualExclusion(t *testing.T) {
	locker := NewMemoryLocker(time.Millisecond)
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		active  atomic.Int32
		entered atomic.Int32
		overlap atomic.Bool
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := locker.Acquire(ctx, "resource", time.Second, 5*time.Second)
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}
			if active.Inc() != 1 {
				overlap.Store(true)
			}
			entered.Inc()
			time.Sleep(time.Millisecond)
			active.Dec()
			if err := locker.Release(ctx, "resource", token); err != nil {
				t.Errorf("release failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlap.Load() {
		t.Error("two holders were inside the critical section at once")
	}
	if got := entered.Load(); got != workers {
		t.Errorf("entered = %d, want %d", got, workers)
	}
}

func TestMemoryLockerLeaseSemantics(t *testing.T) {
	locker := NewMemoryLocker(time.Millisecond)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "r", 10*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	// Lease lapsed: a new holder takes over, the old token is dead.
	if _, err := locker.Acquire(ctx, "r", time.Second, 50*time.Millisecond); err != nil {
		t.Fatalf("acquire after expiry failed: %v", err)
	}
	if err := locker.Release(ctx, "r", stale); !errors.Is(err, domain.ErrLockNotOwner) {
		t.Errorf("stale release: got %v, want ErrLockNotOwner", err)
	}
	if err := locker.Renew(ctx, "r", stale, time.Second); !errors.Is(err, domain.ErrLockExpired) {
		t.Errorf("stale renew: got %v, want ErrLockExpired", err)
	}
}
