package domain

import (
	"encoding/json"
	"time"
)

// Service is one concrete, time-bound trip instance materialized from a
// schedule. It is a financial record: it is created exactly once per due
// occurrence, its status only moves forward, and it is never deleted.
type Service struct {
	ID        int
	CompanyID int
	Name      string

	// ScheduleID and OccurrenceDate form the logical link back to the
	// schedule. There is no stored foreign key: services must survive
	// schedule edits and deletions.
	ScheduleID     int
	OccurrenceDate time.Time

	BusID   int
	RouteID int
	FareID  int

	TicketMode TicketingMode
	Status     ServiceStatus

	StartingAt time.Time
	EndingAt   time.Time

	// Key pair used to authenticate duty devices for this service only.
	PrivateKey string
	PublicKey  string

	Remark     string
	StartedOn  *time.Time
	FinishedOn *time.Time

	// Snapshots are frozen copies of the referenced bus, route and fare,
	// captured at creation and never overwritten.
	BusSnapshot   json.RawMessage
	RouteSnapshot json.RawMessage
	FareSnapshot  json.RawMessage

	CreatedOn time.Time
	UpdatedOn *time.Time
}

// serviceTransitions encodes the forward-only service state machine.
// ENDED is reachable from both STARTED (natural completion) and TERMINATED
// (administrative close-out); AUDITED only from ENDED.
var serviceTransitions = map[ServiceStatus][]ServiceStatus{
	ServiceCreated:    {ServiceStarted},
	ServiceStarted:    {ServiceTerminated, ServiceEnded},
	ServiceTerminated: {ServiceEnded},
	ServiceEnded:      {ServiceAudited},
}

// CanServiceTransition reports whether the edge from -> to is permitted.
func CanServiceTransition(from, to ServiceStatus) bool {
	for _, next := range serviceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Snapshotted reports whether all three snapshots are populated. A service
// with a missing or partial snapshot must never be persisted.
func (s *Service) Snapshotted() bool {
	return len(s.BusSnapshot) > 0 && len(s.RouteSnapshot) > 0 && len(s.FareSnapshot) > 0
}

// BusSnapshotData is the frozen bus copy embedded in a service.
type BusSnapshotData struct {
	BusID              int    `json:"bus_id"`
	RegistrationNumber string `json:"registration_number"`
	Name               string `json:"name"`
	Capacity           int    `json:"capacity"`
}

// RouteSnapshotData is the frozen route copy embedded in a service. The
// landmark entries are enriched with the landmark name and type so ticket
// issuance never has to consult live landmark rows.
type RouteSnapshotData struct {
	RouteID   int                     `json:"route_id"`
	Name      string                  `json:"name"`
	Landmarks []RouteLandmarkSnapshot `json:"landmarks"`
}

type RouteLandmarkSnapshot struct {
	LandmarkID        int          `json:"landmark_id"`
	Name              string       `json:"name"`
	Type              LandmarkType `json:"type"`
	DistanceFromStart int          `json:"distance_from_start"`
	ArrivalDelta      int          `json:"arrival_delta"`
	DepartureDelta    int          `json:"departure_delta"`
}

// Stop returns the route snapshot entry for a landmark.
func (r *RouteSnapshotData) Stop(landmarkID int) (RouteLandmarkSnapshot, bool) {
	for _, lm := range r.Landmarks {
		if lm.LandmarkID == landmarkID {
			return lm, true
		}
	}
	return RouteLandmarkSnapshot{}, false
}

// FareSnapshotData is the frozen fare copy embedded in a service. Ticket
// issuance evaluates against these values only, never a live definition.
type FareSnapshotData struct {
	FareID     int            `json:"fare_id"`
	Scope      FareScope      `json:"scope"`
	Version    int            `json:"version"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
	Function   string         `json:"function"`
}
