package ports

import (
	"context"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// Port: a boundary for Service persistence.
type ServiceRepository interface {
	GetService(ctx context.Context, id int) (*domain.Service, error)

	// ServiceExists reports whether a service was already materialized for
	// the schedule occurrence.
	ServiceExists(ctx context.Context, scheduleID int, occurrence time.Time) (bool, error)

	// CreateService persists a fully-snapshotted service in a single
	// atomic step. Returns domain.ErrDuplicateService when the
	// (schedule, occurrence) uniqueness constraint fires.
	CreateService(ctx context.Context, svc *domain.Service) error

	// UpdateServiceStatus advances the status only if the stored status
	// still equals from (compare-and-set). Returns false when another
	// caller won the race.
	UpdateServiceStatus(ctx context.Context, id int, from, to domain.ServiceStatus, at time.Time) (bool, error)
}

// Port: a boundary for Duty persistence.
type DutyRepository interface {
	GetDuty(ctx context.Context, id int) (*domain.Duty, error)
	ListDutiesByService(ctx context.Context, serviceID int) ([]*domain.Duty, error)
	CountDutiesByService(ctx context.Context, serviceID int) (int, error)
	CreateDuty(ctx context.Context, duty *domain.Duty) error

	// UpdateDutyStatus is the duty counterpart of UpdateServiceStatus.
	// collection, when non-nil, records the duty's ticket revenue roll-up.
	UpdateDutyStatus(ctx context.Context, id int, from, to domain.DutyStatus, at time.Time, collection *int64) (bool, error)
}
