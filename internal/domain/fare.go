package domain

import (
	"fmt"
	"time"
)

// DynamicFareVersion is the attribute schema version new fares are authored
// against.
const DynamicFareVersion = 1

// FareDefinition is a named, versioned pricing function: structured
// attributes consumed by the function, plus the Lua script body itself.
// A local fare belongs to a company and overrides any global fare with the
// same name; the optional GlobalFareID back-reference records provenance
// only and grants the global definition no override control.
type FareDefinition struct {
	ID           int
	Scope        FareScope
	CompanyID    int  // zero for global fares
	GlobalFareID *int // local fares only: the global fare this derives from
	Version      int
	Name         string
	Attributes   map[string]any
	Function     string
	CreatedOn    time.Time
	UpdatedOn    *time.Time
}

// AttrKind is the declared type of a recognized attribute key.
type AttrKind int

const (
	AttrNumber AttrKind = iota + 1
	AttrString
	AttrNumberMap // table of name -> number, e.g. per-ticket-type rates
)

// fareAttributeSchemas declares the recognized attribute keys and their
// types per fare version. Unknown or malformed keys are rejected at
// resolution time, before the script ever runs.
var fareAttributeSchemas = map[int]map[string]AttrKind{
	1: {
		"base_fare":     AttrNumber,
		"rate_per_km":   AttrNumber,
		"minimum_fare":  AttrNumber,
		"free_distance": AttrNumber,
		"currency":      AttrString,
		"ticket_rates":  AttrNumberMap,
	},
}

// ValidateFareAttributes checks an attribute bag against the declared
// schema for the given fare version.
func ValidateFareAttributes(version int, attrs map[string]any) error {
	schema, ok := fareAttributeSchemas[version]
	if !ok {
		return fmt.Errorf("%w: unsupported fare version %d", ErrFareVersionMismatch, version)
	}
	for key, value := range attrs {
		kind, ok := schema[key]
		if !ok {
			return fmt.Errorf("%w: unknown key %q for version %d", ErrFareBadAttributes, key, version)
		}
		if err := checkAttrKind(kind, value); err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrFareBadAttributes, key, err)
		}
	}
	return nil
}

func checkAttrKind(kind AttrKind, value any) error {
	switch kind {
	case AttrNumber:
		if !isNumber(value) {
			return fmt.Errorf("expected number, got %T", value)
		}
	case AttrString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case AttrNumberMap:
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("expected object of numbers, got %T", value)
		}
		for k, v := range m {
			if !isNumber(v) {
				return fmt.Errorf("entry %q: expected number, got %T", k, v)
			}
		}
	default:
		return fmt.Errorf("unhandled attribute kind %d", kind)
	}
	return nil
}

// isNumber accepts the numeric shapes JSON decoding and callers produce.
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

// TripContext is the fixed, sanitized record a fare script prices against.
// It carries values only: no handles, no clock, no randomness, so repeated
// evaluation of the same context is bit-identical.
type TripContext struct {
	DistanceMeters int
	// TicketCounts is the requested count per ticket type, e.g.
	// {"adult": 2, "child": 1}.
	TicketCounts map[string]int
	PickupType   LandmarkType
	DropType     LandmarkType
	// IssuedAt is the issuance timestamp as Unix seconds, passed in as
	// plain data so scripts stay deterministic.
	IssuedAt int64
}

// Evaluation is the sandbox output: a total amount in minor currency
// units, with an optional per-ticket-type breakdown.
type Evaluation struct {
	Total     int64
	Breakdown map[string]int64
}
