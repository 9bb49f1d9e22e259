package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/adapters/repositories"
	"github.com/ThinkalVB/entebus-server/internal/domain"
)

const issuerFareScript = `
	local km = trip.distance_meters / 1000
	return attributes.base_fare + attributes.rate_per_km * km
`

func putTicketableService(t *testing.T, store *repositories.MemoryStore, id int, mode domain.TicketingMode) {
	t.Helper()

	routeSnap, err := json.Marshal(domain.RouteSnapshotData{
		RouteID: 1, Name: "Kochi - Munnar",
		Landmarks: []domain.RouteLandmarkSnapshot{
			{LandmarkID: 1, Name: "Kochi", Type: domain.LandmarkDistrict, DistanceFromStart: 0},
			{LandmarkID: 2, Name: "Adimali", Type: domain.LandmarkVillage, DistanceFromStart: 6000, ArrivalDelta: 30},
			{LandmarkID: 3, Name: "Munnar", Type: domain.LandmarkVillage, DistanceFromStart: 10000, ArrivalDelta: 45},
		},
	})
	if err != nil {
		t.Fatalf("marshal route snapshot: %v", err)
	}
	fareSnap, err := json.Marshal(domain.FareSnapshotData{
		FareID: 1, Scope: domain.FareLocal, Version: domain.DynamicFareVersion,
		Name:       "standard",
		Attributes: map[string]any{"base_fare": 1000.0, "rate_per_km": 100.0},
		Function:   issuerFareScript,
	})
	if err != nil {
		t.Fatalf("marshal fare snapshot: %v", err)
	}

	store.PutService(&domain.Service{
		ID: id, CompanyID: 3, Name: "morning run",
		ScheduleID: id, OccurrenceDate: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		BusID: 1, RouteID: 1, FareID: 1,
		TicketMode:    mode,
		Status:        domain.ServiceStarted,
		StartingAt:    time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
		EndingAt:      time.Date(2026, 3, 3, 8, 45, 0, 0, time.UTC),
		PrivateKey:    "priv", PublicKey: "pub",
		BusSnapshot:   []byte(`{}`),
		RouteSnapshot: routeSnap,
		FareSnapshot:  fareSnap,
		CreatedOn:     testNow,
	})
}

func newIssuerFixture(t *testing.T) (*TicketIssuer, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemoryStore()
	putTicketableService(t, store, 1, domain.TicketingHybrid)
	store.PutDuty(&domain.Duty{
		ID: 1, CompanyID: 3, ServiceID: 1,
		Passcode: "abc", Status: domain.DutyStarted, CreatedOn: testNow,
	})

	resolver := NewFareResolver(store, testSandbox())
	issuer := NewTicketIssuer(store, store, store, resolver).
		WithClock(func() time.Time { return testNow })
	return issuer, store
}

func TestIssuePaperTicket(t *testing.T) {
	issuer, _ := newIssuerFixture(t)
	ctx := context.Background()

	ticket, err := issuer.IssuePaper(ctx, IssuePaperCommand{
		ServiceID: 1, DutyID: 1,
		PickupPoint: 1, DropPoint: 3,
		TicketCounts: map[string]int{"adult": 2},
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// 10 km at 100/km on a 1000 base.
	if ticket.Amount != 2000 {
		t.Errorf("amount = %d, want 2000", ticket.Amount)
	}
	if ticket.SequenceID != 1 {
		t.Errorf("sequence = %d, want 1", ticket.SequenceID)
	}
	if ticket.DistanceMeters != 10000 {
		t.Errorf("distance = %d, want 10000", ticket.DistanceMeters)
	}

	// The next ticket in the same (service, duty) scope continues the run.
	second, err := issuer.IssuePaper(ctx, IssuePaperCommand{
		ServiceID: 1, DutyID: 1,
		PickupPoint: 2, DropPoint: 3,
		TicketCounts: map[string]int{"adult": 1},
	})
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}
	if second.SequenceID != 2 {
		t.Errorf("second sequence = %d, want 2", second.SequenceID)
	}
	if second.Amount != 1400 {
		t.Errorf("second amount = %d, want 1400", second.Amount)
	}
}

func TestIssueDigitalTicketSeparateScope(t *testing.T) {
	issuer, _ := newIssuerFixture(t)
	ctx := context.Background()

	if _, err := issuer.IssuePaper(ctx, IssuePaperCommand{
		ServiceID: 1, DutyID: 1, PickupPoint: 1, DropPoint: 2,
		TicketCounts: map[string]int{"adult": 1},
	}); err != nil {
		t.Fatalf("paper issue failed: %v", err)
	}

	digital, err := issuer.IssueDigital(ctx, IssueDigitalCommand{
		ServiceID: 1, PickupPoint: 1, DropPoint: 2,
		TicketCounts: map[string]int{"adult": 1},
	})
	if err != nil {
		t.Fatalf("digital issue failed: %v", err)
	}
	// Digital tickets count in their own (service) scope, unaffected by
	// the paper run.
	if digital.SequenceID != 1 {
		t.Errorf("digital sequence = %d, want 1", digital.SequenceID)
	}
}

func TestConcurrentIssuanceSequencesAreGapless(t *testing.T) {
	issuer, store := newIssuerFixture(t)

	const tickets = 10
	var wg sync.WaitGroup
	for i := 0; i < tickets; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := issuer.IssuePaper(context.Background(), IssuePaperCommand{
				ServiceID: 1, DutyID: 1,
				PickupPoint: 1, DropPoint: 3,
				TicketCounts: map[string]int{"adult": 1},
			})
			if err != nil {
				t.Errorf("issue failed: %v", err)
			}
		}()
	}
	wg.Wait()

	issued := store.PaperTicketsForDuty(1)
	if len(issued) != tickets {
		t.Fatalf("got %d tickets, want %d", len(issued), tickets)
	}
	seqs := make([]int, 0, len(issued))
	for _, tk := range issued {
		seqs = append(seqs, tk.SequenceID)
	}
	sort.Ints(seqs)
	for i, s := range seqs {
		if s != i+1 {
			t.Fatalf("sequences %v are not gapless from 1", seqs)
		}
	}
}

func TestIssueRespectsTicketingMode(t *testing.T) {
	issuer, store := newIssuerFixture(t)
	ctx := context.Background()

	putTicketableService(t, store, 2, domain.TicketingDigital)
	store.PutDuty(&domain.Duty{
		ID: 2, CompanyID: 3, ServiceID: 2,
		Passcode: "def", Status: domain.DutyStarted, CreatedOn: testNow,
	})
	putTicketableService(t, store, 3, domain.TicketingConventional)

	if _, err := issuer.IssuePaper(ctx, IssuePaperCommand{
		ServiceID: 2, DutyID: 2, PickupPoint: 1, DropPoint: 2,
		TicketCounts: map[string]int{"adult": 1},
	}); err == nil || !strings.Contains(err.Error(), "digital-only") {
		t.Errorf("paper on digital-only service: got %v", err)
	}

	if _, err := issuer.IssueDigital(ctx, IssueDigitalCommand{
		ServiceID: 3, PickupPoint: 1, DropPoint: 2,
		TicketCounts: map[string]int{"adult": 1},
	}); err == nil || !strings.Contains(err.Error(), "paper-only") {
		t.Errorf("digital on paper-only service: got %v", err)
	}
}

func TestIssueValidation(t *testing.T) {
	issuer, store := newIssuerFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		cmd  IssuePaperCommand
	}{
		{"no ticket types", IssuePaperCommand{ServiceID: 1, DutyID: 1, PickupPoint: 1, DropPoint: 2}},
		{"non-positive count", IssuePaperCommand{ServiceID: 1, DutyID: 1, PickupPoint: 1, DropPoint: 2, TicketCounts: map[string]int{"adult": 0}}},
		{"pickup off route", IssuePaperCommand{ServiceID: 1, DutyID: 1, PickupPoint: 99, DropPoint: 2, TicketCounts: map[string]int{"adult": 1}}},
		{"same stop", IssuePaperCommand{ServiceID: 1, DutyID: 1, PickupPoint: 2, DropPoint: 2, TicketCounts: map[string]int{"adult": 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := issuer.IssuePaper(ctx, tc.cmd); err == nil {
				t.Error("expected an error")
			}
		})
	}

	// Duty must belong to the service and be started.
	putTicketableService(t, store, 5, domain.TicketingHybrid)
	if _, err := issuer.IssuePaper(ctx, IssuePaperCommand{
		ServiceID: 5, DutyID: 1, PickupPoint: 1, DropPoint: 2,
		TicketCounts: map[string]int{"adult": 1},
	}); err == nil {
		t.Error("expected rejection of a duty from another service")
	}

	store.PutDuty(&domain.Duty{
		ID: 8, CompanyID: 3, ServiceID: 1,
		Passcode: "xyz", Status: domain.DutyAssigned, CreatedOn: testNow,
	})
	if _, err := issuer.IssuePaper(ctx, IssuePaperCommand{
		ServiceID: 1, DutyID: 8, PickupPoint: 1, DropPoint: 2,
		TicketCounts: map[string]int{"adult": 1},
	}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("not-started duty: got %v, want ErrInvalidTransition", err)
	}
}

func TestIssueRequiresStartedService(t *testing.T) {
	issuer, store := newIssuerFixture(t)
	putTicketableService(t, store, 6, domain.TicketingHybrid)

	// Walk the stored service back to CREATED.
	svc, err := store.GetService(context.Background(), 6)
	if err != nil {
		t.Fatalf("get service: %v", err)
	}
	svc.Status = domain.ServiceCreated
	store.PutService(svc)

	_, err = issuer.IssueDigital(context.Background(), IssueDigitalCommand{
		ServiceID: 6, PickupPoint: 1, DropPoint: 2,
		TicketCounts: map[string]int{"adult": 1},
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("issue on created service: got %v, want ErrInvalidTransition", err)
	}
}
