package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/adapters/repositories"
	"github.com/ThinkalVB/entebus-server/internal/domain"
)

func putTestService(store *repositories.MemoryStore, id int, status domain.ServiceStatus) {
	store.PutService(&domain.Service{
		ID:             id,
		CompanyID:      3,
		Name:           "morning run 2026-03-03",
		ScheduleID:     id,
		OccurrenceDate: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		BusID:          1, RouteID: 1, FareID: 1,
		TicketMode:    domain.TicketingHybrid,
		Status:        status,
		StartingAt:    time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
		EndingAt:      time.Date(2026, 3, 3, 8, 45, 0, 0, time.UTC),
		PrivateKey:    "priv", PublicKey: "pub",
		BusSnapshot:   []byte(`{}`),
		RouteSnapshot: []byte(`{}`),
		FareSnapshot:  []byte(`{}`),
		CreatedOn:     testNow,
	})
}

func newLifecycleFixture() (*LifecycleManager, *repositories.MemoryStore) {
	store := repositories.NewMemoryStore()
	putTestService(store, 1, domain.ServiceCreated)
	manager := NewLifecycleManager(store, store, store, testSchedulerConfig()).
		WithClock(func() time.Time { return testNow })
	return manager, store
}

func TestServiceStartRequiresAssignedDuty(t *testing.T) {
	manager, _ := newLifecycleFixture()
	ctx := context.Background()

	err := manager.TransitionService(ctx, 1, domain.ServiceStarted)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("start without duty: got %v, want ErrInvalidTransition", err)
	}

	if _, err := manager.AssignDuty(ctx, 1, 42); err != nil {
		t.Fatalf("assign duty failed: %v", err)
	}
	if err := manager.TransitionService(ctx, 1, domain.ServiceStarted); err != nil {
		t.Fatalf("start with assigned duty failed: %v", err)
	}
}

func TestServiceTransitionIdempotent(t *testing.T) {
	manager, _ := newLifecycleFixture()
	if err := manager.TransitionService(context.Background(), 1, domain.ServiceCreated); err != nil {
		t.Fatalf("same-state transition must be a no-op, got %v", err)
	}
}

func TestServiceInvalidEdges(t *testing.T) {
	manager, store := newLifecycleFixture()
	ctx := context.Background()

	for _, to := range []domain.ServiceStatus{domain.ServiceEnded, domain.ServiceAudited} {
		if err := manager.TransitionService(ctx, 1, to); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Errorf("created -> %s: got %v, want ErrInvalidTransition", to, err)
		}
	}

	// No backward moves either.
	putTestService(store, 2, domain.ServiceEnded)
	if err := manager.TransitionService(ctx, 2, domain.ServiceStarted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("ended -> started: got %v, want ErrInvalidTransition", err)
	}
}

func TestServiceTerminateBlockedByAssignedDuty(t *testing.T) {
	manager, store := newLifecycleFixture()
	ctx := context.Background()

	duty, err := manager.AssignDuty(ctx, 1, 42)
	if err != nil {
		t.Fatalf("assign duty failed: %v", err)
	}
	if err := manager.TransitionService(ctx, 1, domain.ServiceStarted); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// An untouched ASSIGNED duty blocks termination.
	if err := manager.TransitionService(ctx, 1, domain.ServiceTerminated); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("terminate with assigned duty: got %v, want ErrInvalidTransition", err)
	}

	// Cancelling the duty clears the way.
	if err := manager.TransitionDuty(ctx, duty.ID, domain.DutyNotUsed); err != nil {
		t.Fatalf("cancel duty failed: %v", err)
	}
	if err := manager.TransitionService(ctx, 1, domain.ServiceTerminated); err != nil {
		t.Fatalf("terminate after cancel failed: %v", err)
	}

	got, err := store.GetDuty(context.Background(), duty.ID)
	if err != nil {
		t.Fatalf("get duty: %v", err)
	}
	if got.Status != domain.DutyNotUsed {
		t.Errorf("duty status = %s, want not_used", got.Status)
	}
}

func TestDutyCancelBlockedAfterServiceClosed(t *testing.T) {
	manager, store := newLifecycleFixture()
	putTestService(store, 3, domain.ServiceTerminated)
	store.PutDuty(&domain.Duty{
		ID: 7, CompanyID: 3, ServiceID: 3,
		Passcode: "abc", Status: domain.DutyAssigned, CreatedOn: testNow,
	})

	err := manager.TransitionDuty(context.Background(), 7, domain.DutyNotUsed)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancel under terminated service: got %v, want ErrInvalidTransition", err)
	}
}

func TestDutyEndRollsUpCollection(t *testing.T) {
	manager, store := newLifecycleFixture()
	ctx := context.Background()
	store.PutDuty(&domain.Duty{
		ID: 9, CompanyID: 3, ServiceID: 1,
		Passcode: "abc", Status: domain.DutyStarted, CreatedOn: testNow,
	})

	for _, amount := range []int64{1500, 2500} {
		ticket := &domain.PaperTicket{
			CompanyID: 3, ServiceID: 1, DutyID: 9,
			TicketTypes: map[string]int{"adult": 1},
			PickupPoint: 1, DropPoint: 2,
			DistanceMeters: 10000, Amount: amount, CreatedOn: testNow,
		}
		if err := store.InsertPaperTicket(ctx, ticket); err != nil {
			t.Fatalf("insert ticket failed: %v", err)
		}
	}

	if err := manager.TransitionDuty(ctx, 9, domain.DutyEnded); err != nil {
		t.Fatalf("end duty failed: %v", err)
	}
	duty, err := store.GetDuty(ctx, 9)
	if err != nil {
		t.Fatalf("get duty: %v", err)
	}
	if duty.Collection == nil || *duty.Collection != 4000 {
		t.Errorf("collection = %v, want 4000", duty.Collection)
	}
}

func TestAssignDutyLimit(t *testing.T) {
	store := repositories.NewMemoryStore()
	putTestService(store, 1, domain.ServiceCreated)
	cfg := testSchedulerConfig()
	cfg.MaxDutiesPerService = 2
	manager := NewLifecycleManager(store, store, store, cfg).
		WithClock(func() time.Time { return testNow })
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := manager.AssignDuty(ctx, 1, 100+i); err != nil {
			t.Fatalf("assign %d failed: %v", i, err)
		}
	}
	if _, err := manager.AssignDuty(ctx, 1, 200); !errors.Is(err, domain.ErrDutyLimitReached) {
		t.Fatalf("over-limit assign: got %v, want ErrDutyLimitReached", err)
	}
}

func TestAssignDutyRequiresOpenService(t *testing.T) {
	manager, store := newLifecycleFixture()
	putTestService(store, 4, domain.ServiceEnded)

	_, err := manager.AssignDuty(context.Background(), 4, 42)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("assign on ended service: got %v, want ErrInvalidTransition", err)
	}
}

// unpricedTickets overrides the unpriced count so the audit guard can be
// exercised; the memory store itself always prices at issuance.
type unpricedTickets struct {
	*repositories.MemoryStore
	unpriced int
}

func (s *unpricedTickets) CountUnpricedByService(ctx context.Context, serviceID int) (int, error) {
	return s.unpriced, nil
}

func TestAuditRequiresPricedTickets(t *testing.T) {
	store := repositories.NewMemoryStore()
	putTestService(store, 1, domain.ServiceEnded)
	tickets := &unpricedTickets{MemoryStore: store, unpriced: 2}
	manager := NewLifecycleManager(store, store, tickets, testSchedulerConfig()).
		WithClock(func() time.Time { return testNow })
	ctx := context.Background()

	if err := manager.TransitionService(ctx, 1, domain.ServiceAudited); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("audit with unpriced tickets: got %v, want ErrInvalidTransition", err)
	}

	tickets.unpriced = 0
	if err := manager.TransitionService(ctx, 1, domain.ServiceAudited); err != nil {
		t.Fatalf("audit failed: %v", err)
	}
}
