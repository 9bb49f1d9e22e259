package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/config"
	"github.com/ThinkalVB/entebus-server/internal/domain"
	"github.com/ThinkalVB/entebus-server/internal/ports"
)

// LifecycleManager is the only component allowed to mutate Service and
// Duty status fields. Transitions are guarded, idempotent on same-state
// calls, and rejected with domain.ErrInvalidTransition otherwise; status
// writes are compare-and-set so concurrent callers cannot interleave.
type LifecycleManager struct {
	services ports.ServiceRepository
	duties   ports.DutyRepository
	tickets  ports.TicketRepository
	cfg      config.Scheduler
	now      func() time.Time
}

func NewLifecycleManager(services ports.ServiceRepository, duties ports.DutyRepository, tickets ports.TicketRepository, cfg config.Scheduler) *LifecycleManager {
	return &LifecycleManager{
		services: services,
		duties:   duties,
		tickets:  tickets,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides the manager clock. Intended for tests.
func (m *LifecycleManager) WithClock(now func() time.Time) *LifecycleManager {
	m.now = now
	return m
}

// TransitionService advances a service to the requested status.
func (m *LifecycleManager) TransitionService(ctx context.Context, serviceID int, to domain.ServiceStatus) error {
	svc, err := m.services.GetService(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("transition service %d: %w", serviceID, err)
	}
	if svc.Status == to {
		// Idempotent no-op, never an error.
		return nil
	}
	if !domain.CanServiceTransition(svc.Status, to) {
		return fmt.Errorf("%w: service %d %s -> %s", domain.ErrInvalidTransition, serviceID, svc.Status, to)
	}

	if err := m.guardService(ctx, svc, to); err != nil {
		return err
	}

	ok, err := m.services.UpdateServiceStatus(ctx, serviceID, svc.Status, to, m.now().UTC())
	if err != nil {
		return fmt.Errorf("transition service %d: %w", serviceID, err)
	}
	if !ok {
		return fmt.Errorf("%w: service %d", domain.ErrStatusConflict, serviceID)
	}
	return nil
}

// guardService enforces the per-edge preconditions.
func (m *LifecycleManager) guardService(ctx context.Context, svc *domain.Service, to domain.ServiceStatus) error {
	switch to {
	case domain.ServiceStarted:
		duties, err := m.duties.ListDutiesByService(ctx, svc.ID)
		if err != nil {
			return fmt.Errorf("transition service %d: list duties: %w", svc.ID, err)
		}
		for _, d := range duties {
			if d.Status == domain.DutyAssigned {
				return nil
			}
		}
		return fmt.Errorf("%w: service %d has no assigned duty to start with", domain.ErrInvalidTransition, svc.ID)

	case domain.ServiceTerminated, domain.ServiceEnded:
		// Every duty must be started or terminal; an untouched ASSIGNED
		// duty is unaccounted activity and must be cancelled first.
		duties, err := m.duties.ListDutiesByService(ctx, svc.ID)
		if err != nil {
			return fmt.Errorf("transition service %d: list duties: %w", svc.ID, err)
		}
		for _, d := range duties {
			if d.Status == domain.DutyAssigned {
				return fmt.Errorf("%w: service %d duty %d still assigned", domain.ErrInvalidTransition, svc.ID, d.ID)
			}
		}
		return nil

	case domain.ServiceAudited:
		unpriced, err := m.tickets.CountUnpricedByService(ctx, svc.ID)
		if err != nil {
			return fmt.Errorf("transition service %d: count unpriced tickets: %w", svc.ID, err)
		}
		if unpriced > 0 {
			return fmt.Errorf("%w: service %d has %d tickets without a finalized amount", domain.ErrInvalidTransition, svc.ID, unpriced)
		}
		return nil
	}
	return nil
}

// TransitionDuty advances a duty to the requested status.
func (m *LifecycleManager) TransitionDuty(ctx context.Context, dutyID int, to domain.DutyStatus) error {
	duty, err := m.duties.GetDuty(ctx, dutyID)
	if err != nil {
		return fmt.Errorf("transition duty %d: %w", dutyID, err)
	}
	if duty.Status == to {
		return nil
	}
	if !domain.CanDutyTransition(duty.Status, to) {
		return fmt.Errorf("%w: duty %d %s -> %s", domain.ErrInvalidTransition, dutyID, duty.Status, to)
	}

	// The NOT_USED side exit is only open while the parent service has
	// not itself passed STARTED.
	if to == domain.DutyNotUsed {
		svc, err := m.services.GetService(ctx, duty.ServiceID)
		if err != nil {
			return fmt.Errorf("transition duty %d: load service: %w", dutyID, err)
		}
		if svc.Status != domain.ServiceCreated && svc.Status != domain.ServiceStarted {
			return fmt.Errorf("%w: duty %d cannot be cancelled while service is %s", domain.ErrInvalidTransition, dutyID, svc.Status)
		}
	}

	// Ending a duty rolls its ticket revenue into the collection total.
	var collection *int64
	if to == domain.DutyEnded {
		total, err := m.tickets.SumAmountsByDuty(ctx, dutyID)
		if err != nil {
			return fmt.Errorf("transition duty %d: sum collections: %w", dutyID, err)
		}
		collection = &total
	}

	ok, err := m.duties.UpdateDutyStatus(ctx, dutyID, duty.Status, to, m.now().UTC(), collection)
	if err != nil {
		return fmt.Errorf("transition duty %d: %w", dutyID, err)
	}
	if !ok {
		return fmt.Errorf("%w: duty %d", domain.ErrStatusConflict, dutyID)
	}
	return nil
}

// AssignDuty staffs a service with an operator, creating a duty in
// ASSIGNED with a fresh device passcode.
func (m *LifecycleManager) AssignDuty(ctx context.Context, serviceID int, operatorID int) (*domain.Duty, error) {
	svc, err := m.services.GetService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("assign duty: %w", err)
	}
	if svc.Status != domain.ServiceCreated && svc.Status != domain.ServiceStarted {
		return nil, fmt.Errorf("%w: cannot staff service %d in %s", domain.ErrInvalidTransition, serviceID, svc.Status)
	}

	count, err := m.duties.CountDutiesByService(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("assign duty: count duties: %w", err)
	}
	if count >= m.cfg.MaxDutiesPerService {
		return nil, fmt.Errorf("%w: service %d", domain.ErrDutyLimitReached, serviceID)
	}

	passcode, err := newPasscode()
	if err != nil {
		return nil, fmt.Errorf("assign duty: generate passcode: %w", err)
	}

	duty := &domain.Duty{
		CompanyID:  svc.CompanyID,
		ServiceID:  serviceID,
		OperatorID: &operatorID,
		Passcode:   passcode,
		Status:     domain.DutyAssigned,
		CreatedOn:  m.now().UTC(),
	}
	if err := m.duties.CreateDuty(ctx, duty); err != nil {
		return nil, fmt.Errorf("assign duty: %w", err)
	}
	return duty, nil
}

func newPasscode() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
