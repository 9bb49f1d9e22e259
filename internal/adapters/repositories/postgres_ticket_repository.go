package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// PostgreSQL-backed implementation of the TicketRepository port.
//
// Sequence numbers come from the ticket_sequence table: an upsert-increment
// inside the same transaction as the ticket insert. The row lock taken by
// the upsert serializes concurrent issuers within a scope, and a rollback
// reverts the increment so the number is reused on retry rather than
// leaving a gap.
type PostgresTicketRepository struct{ DB *sql.DB }

func NewPostgresTicketRepository(db *sql.DB) *PostgresTicketRepository {
	return &PostgresTicketRepository{DB: db}
}

func nextSequence(ctx context.Context, tx *sql.Tx, scope string) (int, error) {
	var value int
	err := tx.QueryRowContext(ctx, `
	INSERT INTO ticket_sequence (scope, value)
	VALUES ($1, 1)
	ON CONFLICT (scope) DO UPDATE SET value = ticket_sequence.value + 1
	RETURNING value;`, scope).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("allocate sequence scope=%q: %w", scope, err)
	}
	return value, nil
}

func (r *PostgresTicketRepository) InsertPaperTicket(ctx context.Context, t *domain.PaperTicket) error {
	types, breakdown, err := encodeTicketJSON(t.TicketTypes, t.Breakdown)
	if err != nil {
		return fmt.Errorf("insert paper ticket: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert paper ticket: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seq, err := nextSequence(ctx, tx, domain.PaperScope(t.ServiceID, t.DutyID))
	if err != nil {
		return fmt.Errorf("insert paper ticket: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
	INSERT INTO paper_ticket (
		company_id, service_id, duty_id, sequence_id,
		ticket_types, pickup_point, dropping_point,
		distance, amount, breakdown, created_on
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id;`,
		t.CompanyID, t.ServiceID, t.DutyID, seq,
		types, t.PickupPoint, t.DropPoint,
		t.DistanceMeters, t.Amount, breakdown, t.CreatedOn,
	)
	if err := row.Scan(&t.ID); err != nil {
		return fmt.Errorf("insert paper ticket service=%d duty=%d: %w", t.ServiceID, t.DutyID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert paper ticket: commit tx: %w", err)
	}
	t.SequenceID = seq
	return nil
}

func (r *PostgresTicketRepository) InsertDigitalTicket(ctx context.Context, t *domain.DigitalTicket) error {
	types, breakdown, err := encodeTicketJSON(t.TicketTypes, t.Breakdown)
	if err != nil {
		return fmt.Errorf("insert digital ticket: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert digital ticket: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seq, err := nextSequence(ctx, tx, domain.DigitalScope(t.ServiceID))
	if err != nil {
		return fmt.Errorf("insert digital ticket: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
	INSERT INTO digital_ticket (
		company_id, service_id, sequence_id,
		ticket_types, pickup_point, dropping_point,
		distance, amount, breakdown, created_on
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id;`,
		t.CompanyID, t.ServiceID, seq,
		types, t.PickupPoint, t.DropPoint,
		t.DistanceMeters, t.Amount, breakdown, t.CreatedOn,
	)
	if err := row.Scan(&t.ID); err != nil {
		return fmt.Errorf("insert digital ticket service=%d: %w", t.ServiceID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert digital ticket: commit tx: %w", err)
	}
	t.SequenceID = seq
	return nil
}

func (r *PostgresTicketRepository) SumAmountsByDuty(ctx context.Context, dutyID int) (int64, error) {
	var total int64
	err := r.DB.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(amount), 0)
	FROM paper_ticket
	WHERE duty_id = $1;`, dutyID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum ticket amounts duty=%d: %w", dutyID, err)
	}
	return total, nil
}

func (r *PostgresTicketRepository) CountUnpricedByService(ctx context.Context, serviceID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
	SELECT (SELECT COUNT(*) FROM paper_ticket WHERE service_id = $1 AND amount IS NULL)
	     + (SELECT COUNT(*) FROM digital_ticket WHERE service_id = $1 AND amount IS NULL);`,
		serviceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unpriced tickets service=%d: %w", serviceID, err)
	}
	return n, nil
}

func encodeTicketJSON(types map[string]int, breakdown map[string]int64) ([]byte, []byte, error) {
	encodedTypes, err := json.Marshal(types)
	if err != nil {
		return nil, nil, fmt.Errorf("encode ticket types: %w", err)
	}
	var encodedBreakdown []byte
	if breakdown != nil {
		encodedBreakdown, err = json.Marshal(breakdown)
		if err != nil {
			return nil, nil, fmt.Errorf("encode breakdown: %w", err)
		}
	}
	return encodedTypes, encodedBreakdown, nil
}
