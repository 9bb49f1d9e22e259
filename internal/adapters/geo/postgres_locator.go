package geo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// PostgresLocator answers landmark containment and nearest-match queries
// with PostGIS. The polygon index lives entirely in the database; this
// adapter only consumes it.
type PostgresLocator struct{ DB *sql.DB }

func NewPostgresLocator(db *sql.DB) *PostgresLocator {
	return &PostgresLocator{DB: db}
}

// Locate returns the landmark whose boundary contains the point, falling
// back to the nearest landmark with a boundary when none contains it.
func (l *PostgresLocator) Locate(ctx context.Context, p domain.Point) (*domain.Landmark, error) {
	row := l.DB.QueryRowContext(ctx, `
	SELECT id, name, type
	FROM landmark
	WHERE boundary_wkt IS NOT NULL
	  AND ST_Contains(
		ST_GeomFromText(boundary_wkt, 4326),
		ST_SetSRID(ST_MakePoint($1, $2), 4326))
	LIMIT 1;`, p.Lng, p.Lat)

	lm, err := scanLandmark(row)
	if err == nil {
		return lm, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("locate landmark (%f, %f): %w", p.Lat, p.Lng, err)
	}

	row = l.DB.QueryRowContext(ctx, `
	SELECT id, name, type
	FROM landmark
	WHERE boundary_wkt IS NOT NULL
	ORDER BY ST_GeomFromText(boundary_wkt, 4326) <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)
	LIMIT 1;`, p.Lng, p.Lat)

	lm, err = scanLandmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLandmarkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("nearest landmark (%f, %f): %w", p.Lat, p.Lng, err)
	}
	return lm, nil
}

func scanLandmark(row *sql.Row) (*domain.Landmark, error) {
	var lm domain.Landmark
	if err := row.Scan(&lm.ID, &lm.Name, &lm.Type); err != nil {
		return nil, err
	}
	return &lm, nil
}
