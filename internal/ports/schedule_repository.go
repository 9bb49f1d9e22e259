package ports

import (
	"context"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// Port: a boundary for retrieving Schedule templates.
type ScheduleRepository interface {
	GetSchedule(ctx context.Context, id int) (*domain.Schedule, error)

	// ListDueSchedules returns automatic schedules whose activation window
	// contains now. Day-mask and trigger-time checks are re-applied by the
	// engine; the repository only narrows the candidate set.
	ListDueSchedules(ctx context.Context, now time.Time) ([]*domain.Schedule, error)
}
