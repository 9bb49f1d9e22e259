package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, 5*time.Millisecond), mr
}

func TestRedisAcquireRelease(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "schedule:1", time.Second, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	// A second caller cannot take the held lock within its wait budget.
	if _, err := locker.Acquire(ctx, "schedule:1", time.Second, 20*time.Millisecond); !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("contended acquire: got %v, want ErrLockTimeout", err)
	}

	if err := locker.Release(ctx, "schedule:1", token); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	// Released lock is immediately available again.
	if _, err := locker.Acquire(ctx, "schedule:1", time.Second, 50*time.Millisecond); err != nil {
		t.Fatalf("reacquire after release failed: %v", err)
	}
}

func TestRedisReleaseRequiresOwnership(t *testing.T) {
	locker, _ := newRedisLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "schedule:2", time.Second, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	if err := locker.Release(ctx, "schedule:2", "stale-token"); !errors.Is(err, domain.ErrLockNotOwner) {
		t.Fatalf("release with foreign token: got %v, want ErrLockNotOwner", err)
	}
	if err := locker.Release(ctx, "schedule:2", token); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	// Double release: the lock is gone, the token no longer owns anything.
	if err := locker.Release(ctx, "schedule:2", token); !errors.Is(err, domain.ErrLockNotOwner) {
		t.Fatalf("double release: got %v, want ErrLockNotOwner", err)
	}
}

func TestRedisLeaseExpiry(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "schedule:3", 50*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	mr.FastForward(100 * time.Millisecond)

	// The lease lapsed, so another caller takes over.
	fresh, err := locker.Acquire(ctx, "schedule:3", time.Second, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire after expiry failed: %v", err)
	}
	if fresh == stale {
		t.Fatal("expected a fresh token after expiry")
	}

	// The previous holder must not be able to release or renew.
	if err := locker.Release(ctx, "schedule:3", stale); !errors.Is(err, domain.ErrLockNotOwner) {
		t.Errorf("stale release: got %v, want ErrLockNotOwner", err)
	}
	if err := locker.Renew(ctx, "schedule:3", stale, time.Second); !errors.Is(err, domain.ErrLockExpired) {
		t.Errorf("stale renew: got %v, want ErrLockExpired", err)
	}
}

func TestRedisRenewExtendsLease(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "schedule:4", 50*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if err := locker.Renew(ctx, "schedule:4", token, time.Second); err != nil {
		t.Fatalf("renew failed: %v", err)
	}

	// Past the original lease but inside the renewed one.
	mr.FastForward(100 * time.Millisecond)
	if _, err := locker.Acquire(ctx, "schedule:4", time.Second, 20*time.Millisecond); !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("acquire during renewed lease: got %v, want ErrLockTimeout", err)
	}
}

func TestRedisRenewAfterExpiry(t *testing.T) {
	locker, mr := newRedisLocker(t)
	ctx := context.Background()

	token, err := locker.Acquire(ctx, "schedule:5", 50*time.Millisecond, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	mr.FastForward(100 * time.Millisecond)

	if err := locker.Renew(ctx, "schedule:5", token, time.Second); !errors.Is(err, domain.ErrLockExpired) {
		t.Fatalf("renew after expiry: got %v, want ErrLockExpired", err)
	}
}
