package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// PostgreSQL-backed implementation of the ScheduleRepository port.
type PostgresScheduleRepository struct{ DB *sql.DB }

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{DB: db}
}

const scheduleColumns = `
	id, company_id, name, ticketing_mode, start_time,
	bus_id, route_id, fare_id,
	trigger_on, trigger_mode, trigger_at, trigger_from, trigger_till,
	created_on, updated_on`

func (r *PostgresScheduleRepository) GetSchedule(ctx context.Context, id int) (*domain.Schedule, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT `+scheduleColumns+`
	FROM schedule
	WHERE id = $1;`, id)

	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %d: %w", id, err)
	}
	return sched, nil
}

// ListDueSchedules narrows to automatic schedules whose activation window
// contains now and whose trigger time has elapsed today. The engine
// re-applies the full predicate including the day mask.
func (r *PostgresScheduleRepository) ListDueSchedules(ctx context.Context, now time.Time) ([]*domain.Schedule, error) {
	now = now.UTC()
	minutes := int(domain.MinutesOf(now))

	rows, err := r.DB.QueryContext(ctx, `
	SELECT `+scheduleColumns+`
	FROM schedule
	WHERE trigger_mode = $1
	  AND trigger_at <= $2
	  AND (trigger_from IS NULL OR trigger_from <= $3)
	  AND (trigger_till IS NULL OR trigger_till >= $3)
	ORDER BY id;`, int(domain.TriggerAuto), minutes, now)
	if err != nil {
		return nil, fmt.Errorf("list due schedules: query: %w", err)
	}
	defer rows.Close()

	schedules := make([]*domain.Schedule, 0, 16)
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("list due schedules: scan row: %w", err)
		}
		schedules = append(schedules, sched)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due schedules: row iteration: %w", err)
	}
	return schedules, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		s           domain.Schedule
		busID       sql.NullInt64
		routeID     sql.NullInt64
		fareID      sql.NullInt64
		triggerOn   []byte
		triggerFrom sql.NullTime
		triggerTill sql.NullTime
		updatedOn   sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.Name, &s.TicketingMode, &s.StartTime,
		&busID, &routeID, &fareID,
		&triggerOn, &s.TriggerMode, &s.TriggerAt, &triggerFrom, &triggerTill,
		&s.CreatedOn, &updatedOn,
	)
	if err != nil {
		return nil, err
	}

	s.BusID = toIntPtr(busID)
	s.RouteID = toIntPtr(routeID)
	s.FareID = toIntPtr(fareID)
	s.TriggerFrom = toTimePtr(triggerFrom)
	s.TriggerTill = toTimePtr(triggerTill)
	s.UpdatedOn = toTimePtr(updatedOn)

	if len(triggerOn) > 0 {
		if err := json.Unmarshal(triggerOn, &s.TriggerOn); err != nil {
			return nil, fmt.Errorf("decode trigger_on: %w", err)
		}
	}
	return &s, nil
}

func toIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
