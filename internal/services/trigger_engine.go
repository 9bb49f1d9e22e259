package services

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/config"
	"github.com/ThinkalVB/entebus-server/internal/domain"
	"github.com/ThinkalVB/entebus-server/internal/platform/obs"
	"github.com/ThinkalVB/entebus-server/internal/ports"
)

// TriggerEngine converts due schedule templates into concrete services,
// exactly once per occurrence, under concurrent workers.
//
// Per candidate the cycle is: acquire the schedule lock, re-check that no
// service exists for the occurrence, build the three snapshots and the
// service key pair, persist atomically, release the lock. Lock contention
// and duplicate detection are expected race outcomes, not incidents.
type TriggerEngine struct {
	schedules ports.ScheduleRepository
	services  ports.ServiceRepository
	fleet     ports.FleetRepository
	fares     ports.FareRepository
	locker    ports.Locker

	lockCfg  config.Lock
	schedCfg config.Scheduler

	// now is injectable so tests can drive the clock deterministically.
	now func() time.Time
}

func NewTriggerEngine(
	schedules ports.ScheduleRepository,
	services ports.ServiceRepository,
	fleet ports.FleetRepository,
	fares ports.FareRepository,
	locker ports.Locker,
	lockCfg config.Lock,
	schedCfg config.Scheduler,
) *TriggerEngine {
	return &TriggerEngine{
		schedules: schedules,
		services:  services,
		fleet:     fleet,
		fares:     fares,
		locker:    locker,
		lockCfg:   lockCfg,
		schedCfg:  schedCfg,
		now:       time.Now,
	}
}

// WithClock overrides the engine clock. Intended for tests.
func (e *TriggerEngine) WithClock(now func() time.Time) *TriggerEngine {
	e.now = now
	return e
}

// TickReport summarizes one evaluation cycle.
type TickReport struct {
	Candidates int
	Created    int
	Duplicates int
	Skipped    int
	Failed     int
}

// RunTick evaluates all due automatic schedules once. This is the entry
// point an external cron-like caller invokes on a fixed interval; multiple
// workers may tick concurrently against the same store.
func (e *TriggerEngine) RunTick(ctx context.Context) (report TickReport, err error) {
	defer obs.Time(ctx, "trigger_tick")(&err)

	now := e.now().UTC()
	due, err := e.schedules.ListDueSchedules(ctx, now)
	if err != nil {
		return report, fmt.Errorf("run tick: list due schedules: %w", err)
	}

	for _, sched := range due {
		// Re-apply the full due-ness predicate; the repository only
		// narrows by mode and window.
		if !sched.DueAt(now) {
			continue
		}

		occurrence := e.nextOccurrence(sched, now)

		// Cheap pre-lock check; the authoritative one runs under the lock.
		exists, err := e.services.ServiceExists(ctx, sched.ID, occurrence)
		if err != nil {
			report.Failed++
			log.Printf("op=trigger_tick schedule=%d err=%v", sched.ID, err)
			continue
		}
		if exists {
			continue
		}

		report.Candidates++
		_, err = e.Materialize(ctx, sched.ID, occurrence, false)
		switch {
		case err == nil:
			report.Created++
		case errors.Is(err, domain.ErrDuplicateService):
			// Another worker won the race; the occurrence is covered.
			report.Duplicates++
		case errors.Is(err, domain.ErrLockTimeout):
			report.Skipped++
		case errors.Is(err, domain.ErrCreationLeadViolated), errors.Is(err, domain.ErrStartLeadViolated):
			report.Skipped++
		default:
			report.Failed++
			log.Printf("op=trigger_tick schedule=%d err=%v", sched.ID, err)
		}
	}
	return report, nil
}

// nextOccurrence picks the earliest occurrence date whose departure
// respects the creation lead from now.
func (e *TriggerEngine) nextOccurrence(sched *domain.Schedule, now time.Time) time.Time {
	earliest := now.Add(e.schedCfg.CreationLead)
	date := dateOnly(earliest)
	if sched.StartTime.At(date).Before(earliest) {
		date = date.AddDate(0, 0, 1)
	}
	return date
}

// Materialize creates the service for one schedule occurrence. It is the
// single entry point for both the timer path and operator-initiated
// (manual) triggering; force bypasses the creation lead, never the start
// lead. domain.ErrDuplicateService reports a benign already-materialized
// outcome.
func (e *TriggerEngine) Materialize(ctx context.Context, scheduleID int, occurrence time.Time, force bool) (*domain.Service, error) {
	sched, err := e.schedules.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("materialize schedule %d: %w", scheduleID, err)
	}
	occurrence = dateOnly(occurrence)

	lockKey := fmt.Sprintf("schedule:%d", sched.ID)
	token, err := e.locker.Acquire(ctx, lockKey, e.lockCfg.HoldTimeout, e.lockCfg.WaitTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("materialize schedule %d: acquire lock: %w", sched.ID, err)
	}
	// The lock is released on every exit path. A NotOwner outcome here
	// means the lease expired mid-materialization; the unique constraint
	// on (schedule, occurrence) still protects the invariant.
	defer func() {
		if rerr := e.locker.Release(ctx, lockKey, token); rerr != nil {
			log.Printf("op=materialize schedule=%d err=release lock: %v", sched.ID, rerr)
		}
	}()

	// Double-check inside the lock to close the race between candidate
	// selection and acquisition.
	exists, err := e.services.ServiceExists(ctx, sched.ID, occurrence)
	if err != nil {
		return nil, fmt.Errorf("materialize schedule %d: occurrence check: %w", sched.ID, err)
	}
	if exists {
		return nil, domain.ErrDuplicateService
	}

	svc, err := e.buildService(ctx, sched, occurrence, force)
	if err != nil {
		return nil, err
	}

	if err := e.services.CreateService(ctx, svc); err != nil {
		if errors.Is(err, domain.ErrDuplicateService) {
			return nil, domain.ErrDuplicateService
		}
		return nil, fmt.Errorf("materialize schedule %d: persist service: %w", sched.ID, err)
	}
	log.Printf("op=materialize schedule=%d service=%d occurrence=%s", sched.ID, svc.ID, occurrence.Format("2006-01-02"))
	return svc, nil
}

// buildService assembles the service and its three frozen snapshots. Any
// failure aborts before persistence: creation is all-or-nothing.
func (e *TriggerEngine) buildService(ctx context.Context, sched *domain.Schedule, occurrence time.Time, force bool) (*domain.Service, error) {
	if !sched.Complete() {
		return nil, fmt.Errorf("%w: schedule %d", domain.ErrScheduleIncomplete, sched.ID)
	}

	now := e.now().UTC()
	startingAt := sched.StartTime.At(occurrence)
	if startingAt.Sub(now) < e.schedCfg.StartLead {
		return nil, fmt.Errorf("%w: starts %s", domain.ErrStartLeadViolated, startingAt.Format(time.RFC3339))
	}
	if !force && startingAt.Sub(now) < e.schedCfg.CreationLead {
		return nil, fmt.Errorf("%w: starts %s", domain.ErrCreationLeadViolated, startingAt.Format(time.RFC3339))
	}

	bus, err := e.fleet.GetBus(ctx, *sched.BusID)
	if err != nil {
		return nil, fmt.Errorf("schedule %d: load bus %d: %w", sched.ID, *sched.BusID, err)
	}
	route, err := e.fleet.GetRoute(ctx, *sched.RouteID)
	if err != nil {
		return nil, fmt.Errorf("schedule %d: load route %d: %w", sched.ID, *sched.RouteID, err)
	}
	if len(route.Landmarks) < 2 {
		return nil, fmt.Errorf("%w: route %d has %d landmarks", domain.ErrScheduleIncomplete, route.ID, len(route.Landmarks))
	}
	fare, err := e.fares.GetLocalFare(ctx, *sched.FareID)
	if err != nil {
		return nil, fmt.Errorf("schedule %d: load fare %d: %w", sched.ID, *sched.FareID, err)
	}
	if err := domain.ValidateFareAttributes(fare.Version, fare.Attributes); err != nil {
		return nil, fmt.Errorf("schedule %d: fare %q: %w", sched.ID, fare.Name, err)
	}

	busSnap, routeSnap, fareSnap, err := marshalSnapshots(bus, route, fare)
	if err != nil {
		return nil, fmt.Errorf("schedule %d: freeze snapshots: %w", sched.ID, err)
	}

	private, public, err := newServiceKeyPair()
	if err != nil {
		return nil, fmt.Errorf("schedule %d: generate key pair: %w", sched.ID, err)
	}

	return &domain.Service{
		CompanyID:      sched.CompanyID,
		Name:           fmt.Sprintf("%s %s", sched.Name, occurrence.Format("2006-01-02")),
		ScheduleID:     sched.ID,
		OccurrenceDate: occurrence,
		BusID:          bus.ID,
		RouteID:        route.ID,
		FareID:         fare.ID,
		TicketMode:     sched.TicketingMode,
		Status:         domain.ServiceCreated,
		StartingAt:     startingAt,
		EndingAt:       startingAt.Add(time.Duration(route.Duration()) * time.Minute),
		PrivateKey:     private,
		PublicKey:      public,
		BusSnapshot:    busSnap,
		RouteSnapshot:  routeSnap,
		FareSnapshot:   fareSnap,
		CreatedOn:      now,
	}, nil
}

func marshalSnapshots(bus *domain.Bus, route *domain.Route, fare *domain.FareDefinition) (busSnap, routeSnap, fareSnap json.RawMessage, err error) {
	busSnap, err = json.Marshal(domain.BusSnapshotData{
		BusID:              bus.ID,
		RegistrationNumber: bus.RegistrationNumber,
		Name:               bus.Name,
		Capacity:           bus.Capacity,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("bus snapshot: %w", err)
	}

	landmarks := make([]domain.RouteLandmarkSnapshot, 0, len(route.Landmarks))
	for _, lm := range route.Landmarks {
		landmarks = append(landmarks, domain.RouteLandmarkSnapshot{
			LandmarkID:        lm.LandmarkID,
			Name:              lm.Name,
			Type:              lm.Type,
			DistanceFromStart: lm.DistanceFromStart,
			ArrivalDelta:      lm.ArrivalDelta,
			DepartureDelta:    lm.DepartureDelta,
		})
	}
	routeSnap, err = json.Marshal(domain.RouteSnapshotData{
		RouteID:   route.ID,
		Name:      route.Name,
		Landmarks: landmarks,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("route snapshot: %w", err)
	}

	fareSnap, err = json.Marshal(domain.FareSnapshotData{
		FareID:     fare.ID,
		Scope:      fare.Scope,
		Version:    fare.Version,
		Name:       fare.Name,
		Attributes: fare.Attributes,
		Function:   fare.Function,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fare snapshot: %w", err)
	}
	return busSnap, routeSnap, fareSnap, nil
}

// newServiceKeyPair generates the per-service ed25519 pair duty devices
// authenticate against.
func newServiceKeyPair() (private, public string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(priv), base64.StdEncoding.EncodeToString(pub), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
