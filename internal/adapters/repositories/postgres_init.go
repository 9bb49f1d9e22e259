package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the PostgreSQL schema.
//
// The unique constraints are load-bearing: (schedule_id, occurrence_date)
// on service makes duplicate materialization impossible even if the lock
// manager is unavailable, and the ticket sequence constraints back the
// gapless sequencer.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS landmark (
			id SERIAL PRIMARY KEY,
			name VARCHAR(32) NOT NULL,
			type INTEGER NOT NULL DEFAULT 2,
			boundary_wkt TEXT,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS bus (
			id SERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			registration_number VARCHAR(16) NOT NULL,
			name VARCHAR(32) NOT NULL,
			capacity INTEGER NOT NULL,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (registration_number, company_id)
		);`,

		`CREATE TABLE IF NOT EXISTS route (
			id SERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			name VARCHAR(256) NOT NULL,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (name, company_id)
		);`,

		`CREATE TABLE IF NOT EXISTS landmark_in_route (
			id SERIAL PRIMARY KEY,
			route_id INTEGER NOT NULL REFERENCES route(id) ON DELETE CASCADE,
			landmark_id INTEGER NOT NULL REFERENCES landmark(id) ON DELETE RESTRICT,
			distance_from_start INTEGER NOT NULL,
			arrival_delta INTEGER NOT NULL,
			departure_delta INTEGER NOT NULL,
			UNIQUE (route_id, distance_from_start)
		);`,

		`CREATE TABLE IF NOT EXISTS global_fare (
			id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			name VARCHAR(32) NOT NULL UNIQUE,
			attributes JSONB NOT NULL,
			function TEXT NOT NULL,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_on TIMESTAMPTZ
		);`,

		`CREATE TABLE IF NOT EXISTS local_fare (
			id SERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			global_fare_id INTEGER REFERENCES global_fare(id) ON DELETE SET NULL,
			version INTEGER NOT NULL DEFAULT 1,
			name VARCHAR(32) NOT NULL,
			attributes JSONB NOT NULL,
			function TEXT NOT NULL,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_on TIMESTAMPTZ,
			UNIQUE (name, company_id)
		);`,

		`CREATE TABLE IF NOT EXISTS schedule (
			id SERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			name VARCHAR(32) NOT NULL,
			ticketing_mode INTEGER NOT NULL DEFAULT 1,
			start_time INTEGER NOT NULL,
			bus_id INTEGER REFERENCES bus(id) ON DELETE SET NULL,
			route_id INTEGER REFERENCES route(id) ON DELETE SET NULL,
			fare_id INTEGER REFERENCES local_fare(id) ON DELETE SET NULL,
			trigger_on JSONB NOT NULL DEFAULT '[]',
			trigger_mode INTEGER NOT NULL DEFAULT 2,
			trigger_at INTEGER NOT NULL,
			trigger_from TIMESTAMPTZ,
			trigger_till TIMESTAMPTZ,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_on TIMESTAMPTZ
		);`,

		// No foreign key to schedule: services must survive schedule
		// edits and deletions.
		`CREATE TABLE IF NOT EXISTS service (
			id SERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			name VARCHAR(128) NOT NULL,
			schedule_id INTEGER NOT NULL,
			occurrence_date DATE NOT NULL,
			bus_id INTEGER NOT NULL,
			route_id INTEGER NOT NULL,
			fare_id INTEGER NOT NULL,
			ticket_mode INTEGER NOT NULL DEFAULT 1,
			status INTEGER NOT NULL DEFAULT 1,
			starting_at TIMESTAMPTZ NOT NULL,
			ending_at TIMESTAMPTZ NOT NULL,
			private_key TEXT NOT NULL,
			public_key TEXT NOT NULL,
			remark TEXT,
			started_on TIMESTAMPTZ,
			finished_on TIMESTAMPTZ,
			bus_snapshot JSONB NOT NULL,
			route_snapshot JSONB NOT NULL,
			fare_snapshot JSONB NOT NULL,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_on TIMESTAMPTZ,
			UNIQUE (schedule_id, occurrence_date)
		);`,

		`CREATE TABLE IF NOT EXISTS duty (
			id SERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			service_id INTEGER NOT NULL REFERENCES service(id) ON DELETE CASCADE,
			operator_id INTEGER,
			passcode VARCHAR(32) NOT NULL,
			status INTEGER NOT NULL DEFAULT 1,
			started_on TIMESTAMPTZ,
			finished_on TIMESTAMPTZ,
			collection BIGINT,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_on TIMESTAMPTZ
		);`,

		`CREATE TABLE IF NOT EXISTS ticket_sequence (
			scope TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS paper_ticket (
			id BIGSERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			service_id INTEGER NOT NULL REFERENCES service(id) ON DELETE CASCADE,
			duty_id INTEGER NOT NULL REFERENCES duty(id) ON DELETE RESTRICT,
			sequence_id INTEGER NOT NULL,
			ticket_types JSONB NOT NULL,
			pickup_point INTEGER NOT NULL,
			dropping_point INTEGER NOT NULL,
			distance INTEGER NOT NULL,
			amount BIGINT,
			breakdown JSONB,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (service_id, duty_id, sequence_id)
		);`,

		`CREATE TABLE IF NOT EXISTS digital_ticket (
			id BIGSERIAL PRIMARY KEY,
			company_id INTEGER NOT NULL,
			service_id INTEGER NOT NULL REFERENCES service(id) ON DELETE CASCADE,
			sequence_id INTEGER NOT NULL,
			ticket_types JSONB NOT NULL,
			pickup_point INTEGER NOT NULL,
			dropping_point INTEGER NOT NULL,
			distance INTEGER NOT NULL,
			amount BIGINT,
			breakdown JSONB,
			created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (service_id, sequence_id)
		);`,

		`CREATE INDEX IF NOT EXISTS idx_schedule_trigger
			ON schedule (trigger_mode, trigger_at);`,
		`CREATE INDEX IF NOT EXISTS idx_service_schedule
			ON service (schedule_id, occurrence_date);`,
		`CREATE INDEX IF NOT EXISTS idx_duty_service
			ON duty (service_id);`,
		`CREATE INDEX IF NOT EXISTS idx_paper_ticket_duty
			ON paper_ticket (duty_id);`,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
