package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// PostgreSQL-backed implementation of the FleetRepository port.
type PostgresFleetRepository struct{ DB *sql.DB }

func NewPostgresFleetRepository(db *sql.DB) *PostgresFleetRepository {
	return &PostgresFleetRepository{DB: db}
}

func (r *PostgresFleetRepository) GetBus(ctx context.Context, id int) (*domain.Bus, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT id, company_id, registration_number, name, capacity, created_on
	FROM bus
	WHERE id = $1;`, id)

	var b domain.Bus
	err := row.Scan(&b.ID, &b.CompanyID, &b.RegistrationNumber, &b.Name, &b.Capacity, &b.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bus %d: %w", id, err)
	}
	return &b, nil
}

// GetRoute joins the landmark entries with the landmark table so the
// returned stops already carry landmark names and types, ready to freeze
// into a service snapshot.
func (r *PostgresFleetRepository) GetRoute(ctx context.Context, id int) (*domain.Route, error) {
	row := r.DB.QueryRowContext(ctx, `
	SELECT id, company_id, name, created_on
	FROM route
	WHERE id = $1;`, id)

	var rt domain.Route
	err := row.Scan(&rt.ID, &rt.CompanyID, &rt.Name, &rt.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}

	rows, err := r.DB.QueryContext(ctx, `
	SELECT lr.landmark_id, lm.name, lm.type,
	       lr.distance_from_start, lr.arrival_delta, lr.departure_delta
	FROM landmark_in_route lr
	JOIN landmark lm ON lm.id = lr.landmark_id
	WHERE lr.route_id = $1
	ORDER BY lr.distance_from_start;`, id)
	if err != nil {
		return nil, fmt.Errorf("get route %d: query landmarks: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var lm domain.RouteLandmark
		if err := rows.Scan(&lm.LandmarkID, &lm.Name, &lm.Type, &lm.DistanceFromStart, &lm.ArrivalDelta, &lm.DepartureDelta); err != nil {
			return nil, fmt.Errorf("get route %d: scan landmark: %w", id, err)
		}
		rt.Landmarks = append(rt.Landmarks, lm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get route %d: row iteration: %w", id, err)
	}
	return &rt, nil
}
