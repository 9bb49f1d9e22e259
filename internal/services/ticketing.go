package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
	"github.com/ThinkalVB/entebus-server/internal/platform/obs"
	"github.com/ThinkalVB/entebus-server/internal/ports"
)

// TicketIssuer prices and persists tickets for running services.
//
// Fares are always evaluated against the service's frozen fare snapshot,
// never a live definition, and the computed amount is stored immutably
// with the ticket. Sequence numbers come from the storage-level
// test-and-increment inside the insert transaction.
type TicketIssuer struct {
	services ports.ServiceRepository
	duties   ports.DutyRepository
	tickets  ports.TicketRepository
	resolver *FareResolver
	now      func() time.Time
}

func NewTicketIssuer(services ports.ServiceRepository, duties ports.DutyRepository, tickets ports.TicketRepository, resolver *FareResolver) *TicketIssuer {
	return &TicketIssuer{
		services: services,
		duties:   duties,
		tickets:  tickets,
		resolver: resolver,
		now:      time.Now,
	}
}

// WithClock overrides the issuer clock. Intended for tests.
func (i *TicketIssuer) WithClock(now func() time.Time) *TicketIssuer {
	i.now = now
	return i
}

// IssuePaperCommand requests a paper ticket from a duty device.
type IssuePaperCommand struct {
	ServiceID    int
	DutyID       int
	PickupPoint  int
	DropPoint    int
	TicketCounts map[string]int
}

// IssueDigitalCommand requests a digital ticket against the service.
type IssueDigitalCommand struct {
	ServiceID    int
	PickupPoint  int
	DropPoint    int
	TicketCounts map[string]int
}

// IssuePaper validates the duty, prices the leg from the service
// snapshots, and persists the ticket with the next (service, duty)
// sequence number.
func (i *TicketIssuer) IssuePaper(ctx context.Context, cmd IssuePaperCommand) (t *domain.PaperTicket, err error) {
	defer obs.Time(ctx, "issue_paper_ticket")(&err)

	svc, trip, err := i.prepare(ctx, cmd.ServiceID, cmd.PickupPoint, cmd.DropPoint, cmd.TicketCounts)
	if err != nil {
		return nil, err
	}
	if svc.TicketMode == domain.TicketingDigital {
		return nil, fmt.Errorf("issue paper ticket: service %d is digital-only", cmd.ServiceID)
	}

	duty, err := i.duties.GetDuty(ctx, cmd.DutyID)
	if err != nil {
		return nil, fmt.Errorf("issue paper ticket: %w", err)
	}
	if duty.ServiceID != cmd.ServiceID {
		return nil, fmt.Errorf("issue paper ticket: duty %d does not belong to service %d", cmd.DutyID, cmd.ServiceID)
	}
	if duty.Status != domain.DutyStarted {
		return nil, fmt.Errorf("%w: duty %d is %s, not started", domain.ErrInvalidTransition, cmd.DutyID, duty.Status)
	}

	eval, err := i.price(ctx, svc, trip)
	if err != nil {
		return nil, err
	}

	ticket := &domain.PaperTicket{
		CompanyID:      svc.CompanyID,
		ServiceID:      svc.ID,
		DutyID:         duty.ID,
		TicketTypes:    cmd.TicketCounts,
		PickupPoint:    cmd.PickupPoint,
		DropPoint:      cmd.DropPoint,
		DistanceMeters: trip.DistanceMeters,
		Amount:         eval.Total,
		Breakdown:      eval.Breakdown,
		CreatedOn:      i.now().UTC(),
	}
	if err := i.tickets.InsertPaperTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("issue paper ticket: %w", err)
	}
	return ticket, nil
}

// IssueDigital prices and persists a digital ticket with the next
// (service) sequence number.
func (i *TicketIssuer) IssueDigital(ctx context.Context, cmd IssueDigitalCommand) (t *domain.DigitalTicket, err error) {
	defer obs.Time(ctx, "issue_digital_ticket")(&err)

	svc, trip, err := i.prepare(ctx, cmd.ServiceID, cmd.PickupPoint, cmd.DropPoint, cmd.TicketCounts)
	if err != nil {
		return nil, err
	}
	if svc.TicketMode == domain.TicketingConventional {
		return nil, fmt.Errorf("issue digital ticket: service %d is paper-only", cmd.ServiceID)
	}

	eval, err := i.price(ctx, svc, trip)
	if err != nil {
		return nil, err
	}

	ticket := &domain.DigitalTicket{
		CompanyID:      svc.CompanyID,
		ServiceID:      svc.ID,
		TicketTypes:    cmd.TicketCounts,
		PickupPoint:    cmd.PickupPoint,
		DropPoint:      cmd.DropPoint,
		DistanceMeters: trip.DistanceMeters,
		Amount:         eval.Total,
		Breakdown:      eval.Breakdown,
		CreatedOn:      i.now().UTC(),
	}
	if err := i.tickets.InsertDigitalTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("issue digital ticket: %w", err)
	}
	return ticket, nil
}

// prepare loads the service and builds the trip context from the frozen
// route snapshot.
func (i *TicketIssuer) prepare(ctx context.Context, serviceID, pickup, drop int, counts map[string]int) (*domain.Service, domain.TripContext, error) {
	if len(counts) == 0 {
		return nil, domain.TripContext{}, fmt.Errorf("issue ticket: at least one ticket type is required")
	}
	for name, n := range counts {
		if n <= 0 {
			return nil, domain.TripContext{}, fmt.Errorf("issue ticket: ticket type %q has non-positive count %d", name, n)
		}
	}

	svc, err := i.services.GetService(ctx, serviceID)
	if err != nil {
		return nil, domain.TripContext{}, fmt.Errorf("issue ticket: %w", err)
	}
	if svc.Status != domain.ServiceStarted {
		return nil, domain.TripContext{}, fmt.Errorf("%w: service %d is %s, not started", domain.ErrInvalidTransition, serviceID, svc.Status)
	}

	var route domain.RouteSnapshotData
	if err := json.Unmarshal(svc.RouteSnapshot, &route); err != nil {
		return nil, domain.TripContext{}, fmt.Errorf("issue ticket: decode route snapshot of service %d: %w", serviceID, err)
	}

	pickupStop, ok := route.Stop(pickup)
	if !ok {
		return nil, domain.TripContext{}, fmt.Errorf("issue ticket: pickup landmark %d is not on route %d", pickup, route.RouteID)
	}
	dropStop, ok := route.Stop(drop)
	if !ok {
		return nil, domain.TripContext{}, fmt.Errorf("issue ticket: drop landmark %d is not on route %d", drop, route.RouteID)
	}

	distance := dropStop.DistanceFromStart - pickupStop.DistanceFromStart
	if distance < 0 {
		distance = -distance
	}
	if distance == 0 {
		return nil, domain.TripContext{}, fmt.Errorf("issue ticket: pickup and drop resolve to the same stop")
	}

	return svc, domain.TripContext{
		DistanceMeters: distance,
		TicketCounts:   counts,
		PickupType:     pickupStop.Type,
		DropType:       dropStop.Type,
		IssuedAt:       i.now().UTC().Unix(),
	}, nil
}

// price evaluates the service's fare snapshot for the trip. A sandbox or
// validation failure aborts issuance; no amount is ever guessed.
func (i *TicketIssuer) price(ctx context.Context, svc *domain.Service, trip domain.TripContext) (domain.Evaluation, error) {
	var snap domain.FareSnapshotData
	if err := json.Unmarshal(svc.FareSnapshot, &snap); err != nil {
		return domain.Evaluation{}, fmt.Errorf("issue ticket: decode fare snapshot of service %d: %w", svc.ID, err)
	}
	eval, err := i.resolver.EvaluateSnapshot(ctx, snap, trip)
	if err != nil {
		return domain.Evaluation{}, fmt.Errorf("issue ticket: price service %d leg: %w", svc.ID, err)
	}
	return eval, nil
}
