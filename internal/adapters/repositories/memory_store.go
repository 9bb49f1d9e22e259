package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// MemoryStore is an in-memory implementation of every repository port,
// backing the service-layer tests. It mirrors the storage guarantees the
// PostgreSQL adapters rely on: the (schedule, occurrence) uniqueness
// constraint, compare-and-set status updates, and per-scope gapless
// sequence allocation.
type MemoryStore struct {
	mu sync.Mutex

	schedules map[int]*domain.Schedule
	services  map[int]*domain.Service
	duties    map[int]*domain.Duty
	buses     map[int]*domain.Bus
	routes    map[int]*domain.Route

	localFares  map[int]*domain.FareDefinition
	globalFares map[string]*domain.FareDefinition

	paperTickets   map[int64]*domain.PaperTicket
	digitalTickets map[int64]*domain.DigitalTicket
	sequences      map[string]int

	nextServiceID int
	nextDutyID    int
	nextTicketID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		schedules:      make(map[int]*domain.Schedule),
		services:       make(map[int]*domain.Service),
		duties:         make(map[int]*domain.Duty),
		buses:          make(map[int]*domain.Bus),
		routes:         make(map[int]*domain.Route),
		localFares:     make(map[int]*domain.FareDefinition),
		globalFares:    make(map[string]*domain.FareDefinition),
		paperTickets:   make(map[int64]*domain.PaperTicket),
		digitalTickets: make(map[int64]*domain.DigitalTicket),
		sequences:      make(map[string]int),
		nextServiceID:  1,
		nextDutyID:     1,
		nextTicketID:   1,
	}
}

// Seeding helpers. Entities are stored as-is; IDs are the caller's.

func (s *MemoryStore) PutSchedule(sched *domain.Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sched.ID] = sched
}

func (s *MemoryStore) PutBus(b *domain.Bus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buses[b.ID] = b
}

func (s *MemoryStore) PutRoute(r *domain.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[r.ID] = r
}

func (s *MemoryStore) PutLocalFare(f *domain.FareDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localFares[f.ID] = f
}

func (s *MemoryStore) PutGlobalFare(f *domain.FareDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalFares[f.Name] = f
}

func (s *MemoryStore) PutService(svc *domain.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
	if svc.ID >= s.nextServiceID {
		s.nextServiceID = svc.ID + 1
	}
}

func (s *MemoryStore) PutDuty(d *domain.Duty) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duties[d.ID] = d
	if d.ID >= s.nextDutyID {
		s.nextDutyID = d.ID + 1
	}
}

// ScheduleRepository

func (s *MemoryStore) GetSchedule(ctx context.Context, id int) (*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	cp := *sched
	return &cp, nil
}

func (s *MemoryStore) ListDueSchedules(ctx context.Context, now time.Time) ([]*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*domain.Schedule
	for _, sched := range s.schedules {
		if sched.TriggerMode != domain.TriggerAuto {
			continue
		}
		if !sched.WindowContains(now) {
			continue
		}
		cp := *sched
		due = append(due, &cp)
	}
	return due, nil
}

// ServiceRepository

func (s *MemoryStore) GetService(ctx context.Context, id int) (*domain.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

func (s *MemoryStore) ServiceExists(ctx context.Context, scheduleID int, occurrence time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findOccurrence(scheduleID, occurrence) != nil, nil
}

func (s *MemoryStore) CreateService(ctx context.Context, svc *domain.Service) error {
	if !svc.Snapshotted() {
		return errors.New("create service: refusing to persist without all three snapshots")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findOccurrence(svc.ScheduleID, svc.OccurrenceDate) != nil {
		return domain.ErrDuplicateService
	}
	svc.ID = s.nextServiceID
	s.nextServiceID++
	cp := *svc
	s.services[svc.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateServiceStatus(ctx context.Context, id int, from, to domain.ServiceStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok || svc.Status != from {
		return false, nil
	}
	svc.Status = to
	switch to {
	case domain.ServiceStarted:
		t := at
		svc.StartedOn = &t
	case domain.ServiceTerminated, domain.ServiceEnded:
		if svc.FinishedOn == nil {
			t := at
			svc.FinishedOn = &t
		}
	}
	t := at
	svc.UpdatedOn = &t
	return true, nil
}

func (s *MemoryStore) findOccurrence(scheduleID int, occurrence time.Time) *domain.Service {
	for _, svc := range s.services {
		if svc.ScheduleID == scheduleID && svc.OccurrenceDate.Equal(occurrence) {
			return svc
		}
	}
	return nil
}

// DutyRepository

func (s *MemoryStore) GetDuty(ctx context.Context, id int) (*domain.Duty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duties[id]
	if !ok {
		return nil, domain.ErrDutyNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListDutiesByService(ctx context.Context, serviceID int) ([]*domain.Duty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var duties []*domain.Duty
	for _, d := range s.duties {
		if d.ServiceID == serviceID {
			cp := *d
			duties = append(duties, &cp)
		}
	}
	return duties, nil
}

func (s *MemoryStore) CountDutiesByService(ctx context.Context, serviceID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.duties {
		if d.ServiceID == serviceID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateDuty(ctx context.Context, duty *domain.Duty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	duty.ID = s.nextDutyID
	s.nextDutyID++
	cp := *duty
	s.duties[duty.ID] = &cp
	return nil
}

func (s *MemoryStore) UpdateDutyStatus(ctx context.Context, id int, from, to domain.DutyStatus, at time.Time, collection *int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.duties[id]
	if !ok || d.Status != from {
		return false, nil
	}
	d.Status = to
	switch to {
	case domain.DutyStarted:
		t := at
		d.StartedOn = &t
	case domain.DutyTerminated, domain.DutyEnded:
		if d.FinishedOn == nil {
			t := at
			d.FinishedOn = &t
		}
	}
	if collection != nil {
		v := *collection
		d.Collection = &v
	}
	t := at
	d.UpdatedOn = &t
	return true, nil
}

// FareRepository

func (s *MemoryStore) GetLocalFare(ctx context.Context, id int) (*domain.FareDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.localFares[id]
	if !ok {
		return nil, domain.ErrFareNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *MemoryStore) FindLocalFare(ctx context.Context, companyID int, name string) (*domain.FareDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.localFares {
		if f.CompanyID == companyID && f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, domain.ErrFareNotFound
}

func (s *MemoryStore) FindGlobalFare(ctx context.Context, name string) (*domain.FareDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.globalFares[name]
	if !ok {
		return nil, domain.ErrFareNotFound
	}
	cp := *f
	return &cp, nil
}

// FleetRepository

func (s *MemoryStore) GetBus(ctx context.Context, id int) (*domain.Bus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buses[id]
	if !ok {
		return nil, domain.ErrBusNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) GetRoute(ctx context.Context, id int) (*domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[id]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	cp := *r
	cp.Landmarks = append([]domain.RouteLandmark(nil), r.Landmarks...)
	return &cp, nil
}

// TicketRepository

func (s *MemoryStore) InsertPaperTicket(ctx context.Context, t *domain.PaperTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := domain.PaperScope(t.ServiceID, t.DutyID)
	s.sequences[scope]++
	t.SequenceID = s.sequences[scope]
	t.ID = s.nextTicketID
	s.nextTicketID++
	cp := *t
	s.paperTickets[t.ID] = &cp
	return nil
}

func (s *MemoryStore) InsertDigitalTicket(ctx context.Context, t *domain.DigitalTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := domain.DigitalScope(t.ServiceID)
	s.sequences[scope]++
	t.SequenceID = s.sequences[scope]
	t.ID = s.nextTicketID
	s.nextTicketID++
	cp := *t
	s.digitalTickets[t.ID] = &cp
	return nil
}

func (s *MemoryStore) SumAmountsByDuty(ctx context.Context, dutyID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, t := range s.paperTickets {
		if t.DutyID == dutyID {
			total += t.Amount
		}
	}
	return total, nil
}

func (s *MemoryStore) CountUnpricedByService(ctx context.Context, serviceID int) (int, error) {
	// Tickets in this store always carry the amount computed at issuance.
	return 0, nil
}

// Test inspection helpers.

func (s *MemoryStore) ServicesForSchedule(scheduleID int) []*domain.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Service
	for _, svc := range s.services {
		if svc.ScheduleID == scheduleID {
			cp := *svc
			out = append(out, &cp)
		}
	}
	return out
}

func (s *MemoryStore) PaperTicketsForDuty(dutyID int) []*domain.PaperTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PaperTicket
	for _, t := range s.paperTickets {
		if t.DutyID == dutyID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}

func (s *MemoryStore) DigitalTicketsForService(serviceID int) []*domain.DigitalTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.DigitalTicket
	for _, t := range s.digitalTickets {
		if t.ServiceID == serviceID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out
}
