package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
)

// Seed data shapes mirror the JSON files under data/seeds/.

type seedFile struct {
	Landmarks   []seedLandmark `json:"landmarks"`
	Buses       []seedBus      `json:"buses"`
	Routes      []seedRoute    `json:"routes"`
	GlobalFares []seedFare     `json:"global_fares"`
	LocalFares  []seedFare     `json:"local_fares"`
	Schedules   []seedSchedule `json:"schedules"`
}

type seedLandmark struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Type        int    `json:"type"`
	BoundaryWKT string `json:"boundary_wkt,omitempty"`
}

type seedBus struct {
	ID                 int    `json:"id"`
	CompanyID          int    `json:"company_id"`
	RegistrationNumber string `json:"registration_number"`
	Name               string `json:"name"`
	Capacity           int    `json:"capacity"`
}

type seedRoute struct {
	ID        int        `json:"id"`
	CompanyID int        `json:"company_id"`
	Name      string     `json:"name"`
	Stops     []seedStop `json:"stops"`
}

type seedStop struct {
	LandmarkID        int `json:"landmark_id"`
	DistanceFromStart int `json:"distance_from_start"`
	ArrivalDelta      int `json:"arrival_delta"`
	DepartureDelta    int `json:"departure_delta"`
}

type seedFare struct {
	ID         int            `json:"id"`
	CompanyID  int            `json:"company_id,omitempty"`
	Version    int            `json:"version"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
	Function   string         `json:"function"`
}

type seedSchedule struct {
	ID            int    `json:"id"`
	CompanyID     int    `json:"company_id"`
	Name          string `json:"name"`
	TicketingMode int    `json:"ticketing_mode"`
	StartTime     int    `json:"start_time"`
	BusID         *int   `json:"bus_id,omitempty"`
	RouteID       *int   `json:"route_id,omitempty"`
	FareID        *int   `json:"fare_id,omitempty"`
	TriggerOn     []int  `json:"trigger_on"`
	TriggerMode   int    `json:"trigger_mode"`
	TriggerAt     int    `json:"trigger_at"`
}

// SeedFromJSON loads the seed file and inserts any rows not already
// present. Seeding is idempotent: conflicting ids are skipped, and the
// serial sequences are advanced past the highest seeded id afterwards.
func SeedFromJSON(db *sql.DB, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", path, err)
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("seed: parse %q: %w", path, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, lm := range seed.Landmarks {
		var boundary any
		if lm.BoundaryWKT != "" {
			boundary = lm.BoundaryWKT
		}
		_, err := tx.Exec(`
		INSERT INTO landmark (id, name, type, boundary_wkt)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING;`, lm.ID, lm.Name, lm.Type, boundary)
		if err != nil {
			return fmt.Errorf("seed: landmark %d: %w", lm.ID, err)
		}
	}

	for _, b := range seed.Buses {
		_, err := tx.Exec(`
		INSERT INTO bus (id, company_id, registration_number, name, capacity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING;`, b.ID, b.CompanyID, b.RegistrationNumber, b.Name, b.Capacity)
		if err != nil {
			return fmt.Errorf("seed: bus %d: %w", b.ID, err)
		}
	}

	for _, rt := range seed.Routes {
		res, err := tx.Exec(`
		INSERT INTO route (id, company_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING;`, rt.ID, rt.CompanyID, rt.Name)
		if err != nil {
			return fmt.Errorf("seed: route %d: %w", rt.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		for _, stop := range rt.Stops {
			_, err := tx.Exec(`
			INSERT INTO landmark_in_route (route_id, landmark_id, distance_from_start, arrival_delta, departure_delta)
			VALUES ($1, $2, $3, $4, $5);`,
				rt.ID, stop.LandmarkID, stop.DistanceFromStart, stop.ArrivalDelta, stop.DepartureDelta)
			if err != nil {
				return fmt.Errorf("seed: route %d stop %d: %w", rt.ID, stop.LandmarkID, err)
			}
		}
	}

	for _, f := range seed.GlobalFares {
		attrs, err := json.Marshal(f.Attributes)
		if err != nil {
			return fmt.Errorf("seed: global fare %d attributes: %w", f.ID, err)
		}
		_, err = tx.Exec(`
		INSERT INTO global_fare (id, version, name, attributes, function)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING;`, f.ID, f.Version, f.Name, attrs, f.Function)
		if err != nil {
			return fmt.Errorf("seed: global fare %d: %w", f.ID, err)
		}
	}

	for _, f := range seed.LocalFares {
		attrs, err := json.Marshal(f.Attributes)
		if err != nil {
			return fmt.Errorf("seed: local fare %d attributes: %w", f.ID, err)
		}
		_, err = tx.Exec(`
		INSERT INTO local_fare (id, company_id, version, name, attributes, function)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING;`, f.ID, f.CompanyID, f.Version, f.Name, attrs, f.Function)
		if err != nil {
			return fmt.Errorf("seed: local fare %d: %w", f.ID, err)
		}
	}

	for _, s := range seed.Schedules {
		days, err := json.Marshal(s.TriggerOn)
		if err != nil {
			return fmt.Errorf("seed: schedule %d days: %w", s.ID, err)
		}
		_, err = tx.Exec(`
		INSERT INTO schedule (id, company_id, name, ticketing_mode, start_time,
			bus_id, route_id, fare_id, trigger_on, trigger_mode, trigger_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING;`,
			s.ID, s.CompanyID, s.Name, s.TicketingMode, s.StartTime,
			s.BusID, s.RouteID, s.FareID, days, s.TriggerMode, s.TriggerAt)
		if err != nil {
			return fmt.Errorf("seed: schedule %d: %w", s.ID, err)
		}
	}

	// Seeded rows carry explicit ids; move the serial sequences past them.
	for _, table := range []string{"landmark", "bus", "route", "global_fare", "local_fare", "schedule"} {
		_, err := tx.Exec(fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), (SELECT COALESCE(MAX(id), 1) FROM %s));`,
			table, table))
		if err != nil {
			return fmt.Errorf("seed: advance %s sequence: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}
	return nil
}
