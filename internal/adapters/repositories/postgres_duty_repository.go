package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// PostgreSQL-backed implementation of the DutyRepository port.
type PostgresDutyRepository struct{ DB *sql.DB }

func NewPostgresDutyRepository(db *sql.DB) *PostgresDutyRepository {
	return &PostgresDutyRepository{DB: db}
}

const dutyColumns = `
	id, company_id, service_id, operator_id, passcode, status,
	started_on, finished_on, collection, created_on, updated_on`

func (r *PostgresDutyRepository) GetDuty(ctx context.Context, id int) (*domain.Duty, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT `+dutyColumns+`
	FROM duty
	WHERE id = $1;`, id)

	duty, err := scanDuty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDutyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get duty %d: %w", id, err)
	}
	return duty, nil
}

func (r *PostgresDutyRepository) ListDutiesByService(ctx context.Context, serviceID int) ([]*domain.Duty, error) {
	rows, err := r.DB.QueryContext(ctx, `
	SELECT `+dutyColumns+`
	FROM duty
	WHERE service_id = $1
	ORDER BY id;`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list duties service=%d: query: %w", serviceID, err)
	}
	defer rows.Close()

	duties := make([]*domain.Duty, 0, 8)
	for rows.Next() {
		duty, err := scanDuty(rows)
		if err != nil {
			return nil, fmt.Errorf("list duties service=%d: scan row: %w", serviceID, err)
		}
		duties = append(duties, duty)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list duties service=%d: row iteration: %w", serviceID, err)
	}
	return duties, nil
}

func (r *PostgresDutyRepository) CountDutiesByService(ctx context.Context, serviceID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM duty WHERE service_id = $1;`, serviceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count duties service=%d: %w", serviceID, err)
	}
	return n, nil
}

func (r *PostgresDutyRepository) CreateDuty(ctx context.Context, duty *domain.Duty) error {
	row := r.DB.QueryRowContext(ctx, `
	INSERT INTO duty (company_id, service_id, operator_id, passcode, status, created_on)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id;`,
		duty.CompanyID, duty.ServiceID, duty.OperatorID, duty.Passcode, duty.Status, duty.CreatedOn,
	)
	if err := row.Scan(&duty.ID); err != nil {
		return fmt.Errorf("create duty service=%d: %w", duty.ServiceID, err)
	}
	return nil
}

// UpdateDutyStatus is a compare-and-set on the status column; collection,
// when present, records the end-of-duty revenue roll-up.
func (r *PostgresDutyRepository) UpdateDutyStatus(ctx context.Context, id int, from, to domain.DutyStatus, at time.Time, collection *int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
	UPDATE duty
	SET status = $1,
	    started_on = CASE WHEN $1 = 2 THEN $2 ELSE started_on END,
	    finished_on = CASE WHEN $1 IN (3, 4) AND finished_on IS NULL THEN $2 ELSE finished_on END,
	    collection = COALESCE($3, collection),
	    updated_on = $2
	WHERE id = $4 AND status = $5;`,
		int(to), at, collection, id, int(from),
	)
	if err != nil {
		return false, fmt.Errorf("update duty %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update duty %d status: rows affected: %w", id, err)
	}
	return n == 1, nil
}

func scanDuty(row rowScanner) (*domain.Duty, error) {
	var (
		d          domain.Duty
		operatorID sql.NullInt64
		startedOn  sql.NullTime
		finishedOn sql.NullTime
		collection sql.NullInt64
		updatedOn  sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.CompanyID, &d.ServiceID, &operatorID, &d.Passcode, &d.Status,
		&startedOn, &finishedOn, &collection, &d.CreatedOn, &updatedOn,
	)
	if err != nil {
		return nil, err
	}
	d.OperatorID = toIntPtr(operatorID)
	d.StartedOn = toTimePtr(startedOn)
	d.FinishedOn = toTimePtr(finishedOn)
	if collection.Valid {
		v := collection.Int64
		d.Collection = &v
	}
	d.UpdatedOn = toTimePtr(updatedOn)
	return &d, nil
}
