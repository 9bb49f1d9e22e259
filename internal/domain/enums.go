package domain

import "time"

// Status codes are stored as integers; the values are part of the wire and
// storage contract and must not be renumbered.

// ServiceStatus is the lifecycle state of a Service.
type ServiceStatus int

const (
	ServiceCreated    ServiceStatus = 1
	ServiceStarted    ServiceStatus = 2
	ServiceTerminated ServiceStatus = 3
	ServiceEnded      ServiceStatus = 4
	ServiceAudited    ServiceStatus = 5
)

func (s ServiceStatus) String() string {
	switch s {
	case ServiceCreated:
		return "created"
	case ServiceStarted:
		return "started"
	case ServiceTerminated:
		return "terminated"
	case ServiceEnded:
		return "ended"
	case ServiceAudited:
		return "audited"
	}
	return "unknown"
}

// DutyStatus is the lifecycle state of a Duty.
type DutyStatus int

const (
	DutyAssigned   DutyStatus = 1
	DutyStarted    DutyStatus = 2
	DutyTerminated DutyStatus = 3
	DutyEnded      DutyStatus = 4
	DutyNotUsed    DutyStatus = 5
)

func (s DutyStatus) String() string {
	switch s {
	case DutyAssigned:
		return "assigned"
	case DutyStarted:
		return "started"
	case DutyTerminated:
		return "terminated"
	case DutyEnded:
		return "ended"
	case DutyNotUsed:
		return "not_used"
	}
	return "unknown"
}

// TicketingMode selects how tickets may be issued for a service.
type TicketingMode int

const (
	TicketingHybrid       TicketingMode = 1
	TicketingDigital      TicketingMode = 2
	TicketingConventional TicketingMode = 3
)

// TriggerMode selects whether a schedule materializes on the timer or only
// on operator request.
type TriggerMode int

const (
	TriggerAuto   TriggerMode = 2
	TriggerManual TriggerMode = 3
)

// LandmarkType is the administrative tier of a landmark. Fare scripts may
// price legs differently by tier.
type LandmarkType int

const (
	LandmarkNotInUse LandmarkType = 1
	LandmarkLocal    LandmarkType = 2
	LandmarkVillage  LandmarkType = 3
	LandmarkDistrict LandmarkType = 4
	LandmarkState    LandmarkType = 5
	LandmarkNational LandmarkType = 6
)

// Day is a schedule weekday code. Monday is 0, matching the stored
// trigger_on arrays.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DayOf converts a time.Weekday (Sunday=0) to the stored Day code (Monday=0).
func DayOf(w time.Weekday) Day {
	return Day((int(w) + 6) % 7)
}

// FareScope distinguishes platform-wide fares from company overrides.
type FareScope int

const (
	FareGlobal FareScope = 1
	FareLocal  FareScope = 2
)
