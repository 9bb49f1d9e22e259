package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// PostgreSQL-backed implementation of the FareRepository port.
type PostgresFareRepository struct{ DB *sql.DB }

func NewPostgresFareRepository(db *sql.DB) *PostgresFareRepository {
	return &PostgresFareRepository{DB: db}
}

func (r *PostgresFareRepository) GetLocalFare(ctx context.Context, id int) (*domain.FareDefinition, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT id, company_id, global_fare_id, version, name, attributes, function, created_on, updated_on
	FROM local_fare
	WHERE id = $1;`, id)
	return scanLocalFare(row, fmt.Sprintf("get local fare %d", id))
}

func (r *PostgresFareRepository) FindLocalFare(ctx context.Context, companyID int, name string) (*domain.FareDefinition, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT id, company_id, global_fare_id, version, name, attributes, function, created_on, updated_on
	FROM local_fare
	WHERE company_id = $1 AND name = $2;`, companyID, name)
	return scanLocalFare(row, fmt.Sprintf("find local fare %q company=%d", name, companyID))
}

func (r *PostgresFareRepository) FindGlobalFare(ctx context.Context, name string) (*domain.FareDefinition, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT id, version, name, attributes, function, created_on, updated_on
	FROM global_fare
	WHERE name = $1;`, name)

	var (
		def       domain.FareDefinition
		attrs     []byte
		updatedOn sql.NullTime
	)
	err := row.Scan(&def.ID, &def.Version, &def.Name, &attrs, &def.Function, &def.CreatedOn, &updatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find global fare %q: %w", name, err)
	}

	def.Scope = domain.FareGlobal
	def.UpdatedOn = toTimePtr(updatedOn)
	if err := json.Unmarshal(attrs, &def.Attributes); err != nil {
		return nil, fmt.Errorf("find global fare %q: decode attributes: %w", name, err)
	}
	return &def, nil
}

func scanLocalFare(row rowScanner, op string) (*domain.FareDefinition, error) {
	var (
		def          domain.FareDefinition
		globalFareID sql.NullInt64
		attrs        []byte
		updatedOn    sql.NullTime
	)
	err := row.Scan(&def.ID, &def.CompanyID, &globalFareID, &def.Version, &def.Name, &attrs, &def.Function, &def.CreatedOn, &updatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	def.Scope = domain.FareLocal
	def.GlobalFareID = toIntPtr(globalFareID)
	def.UpdatedOn = toTimePtr(updatedOn)
	if err := json.Unmarshal(attrs, &def.Attributes); err != nil {
		return nil, fmt.Errorf("%s: decode attributes: %w", op, err)
	}
	return &def, nil
}
