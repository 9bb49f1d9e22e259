package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PostgreSQL-backed implementation of the ServiceRepository port.
type PostgresServiceRepository struct{ DB *sql.DB }

func NewPostgresServiceRepository(db *sql.DB) *PostgresServiceRepository {
	return &PostgresServiceRepository{DB: db}
}

func (r *PostgresServiceRepository) GetService(ctx context.Context, id int) (*domain.Service, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT
		id, company_id, name, schedule_id, occurrence_date,
		bus_id, route_id, fare_id, ticket_mode, status,
		starting_at, ending_at, private_key, public_key, remark,
		started_on, finished_on,
		bus_snapshot, route_snapshot, fare_snapshot,
		created_on, updated_on
	FROM service
	WHERE id = $1;`, id)

	var (
		s          domain.Service
		remark     sql.NullString
		startedOn  sql.NullTime
		finishedOn sql.NullTime
		updatedOn  sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.CompanyID, &s.Name, &s.ScheduleID, &s.OccurrenceDate,
		&s.BusID, &s.RouteID, &s.FareID, &s.TicketMode, &s.Status,
		&s.StartingAt, &s.EndingAt, &s.PrivateKey, &s.PublicKey, &remark,
		&startedOn, &finishedOn,
		&s.BusSnapshot, &s.RouteSnapshot, &s.FareSnapshot,
		&s.CreatedOn, &updatedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	s.Remark = remark.String
	s.StartedOn = toTimePtr(startedOn)
	s.FinishedOn = toTimePtr(finishedOn)
	s.UpdatedOn = toTimePtr(updatedOn)
	return &s, nil
}

func (r *PostgresServiceRepository) ServiceExists(ctx context.Context, scheduleID int, occurrence time.Time) (bool, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT EXISTS (
		SELECT 1 FROM service
		WHERE schedule_id = $1 AND occurrence_date = $2
	);`, scheduleID, occurrence)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("service exists schedule=%d: %w", scheduleID, err)
	}
	return exists, nil
}

// CreateService persists the service in one atomic insert. The unique
// constraint on (schedule_id, occurrence_date) closes the materialization
// race even without the lock manager.
func (r *PostgresServiceRepository) CreateService(ctx context.Context, svc *domain.Service) error {
	if !svc.Snapshotted() {
		return errors.New("create service: refusing to persist without all three snapshots")
	}

	row := r.DB.QueryRowContext(ctx, `
	INSERT INTO service (
		company_id, name, schedule_id, occurrence_date,
		bus_id, route_id, fare_id, ticket_mode, status,
		starting_at, ending_at, private_key, public_key,
		bus_snapshot, route_snapshot, fare_snapshot, created_on
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16, $17
	)
	RETURNING id;`,
		svc.CompanyID, svc.Name, svc.ScheduleID, svc.OccurrenceDate,
		svc.BusID, svc.RouteID, svc.FareID, svc.TicketMode, svc.Status,
		svc.StartingAt, svc.EndingAt, svc.PrivateKey, svc.PublicKey,
		[]byte(svc.BusSnapshot), []byte(svc.RouteSnapshot), []byte(svc.FareSnapshot), svc.CreatedOn,
	)
	if err := row.Scan(&svc.ID); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateService
		}
		return fmt.Errorf("create service for schedule %d: %w", svc.ScheduleID, err)
	}
	return nil
}

// UpdateServiceStatus is a compare-and-set on the status column. The
// started_on/finished_on stamps follow the edge being taken.
func (r *PostgresServiceRepository) UpdateServiceStatus(ctx context.Context, id int, from, to domain.ServiceStatus, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
	UPDATE service
	SET status = $1,
	    started_on = CASE WHEN $1 = 2 THEN $2 ELSE started_on END,
	    finished_on = CASE WHEN $1 IN (3, 4) AND finished_on IS NULL THEN $2 ELSE finished_on END,
	    updated_on = $2
	WHERE id = $3 AND status = $4;`,
		int(to), at, id, int(from),
	)
	if err != nil {
		return false, fmt.Errorf("update service %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update service %d status: rows affected: %w", id, err)
	}
	return n == 1, nil
}
