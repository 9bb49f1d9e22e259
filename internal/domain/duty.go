package domain

import "time"

// Duty is one operator's working assignment on a service. A service may
// carry up to the configured maximum of duties; a duty is never deleted
// once a ticket references it.
type Duty struct {
	ID         int
	CompanyID  int
	ServiceID  int
	OperatorID *int
	Passcode   string
	Status     DutyStatus
	StartedOn  *time.Time
	FinishedOn *time.Time

	// Collection is the duty's ticket revenue in minor currency units,
	// rolled up when the duty ends.
	Collection *int64

	CreatedOn time.Time
	UpdatedOn *time.Time
}

// dutyTransitions encodes the forward-only duty state machine. The
// ASSIGNED -> NOT_USED side exit carries an extra guard on the parent
// service status, enforced by the lifecycle manager.
var dutyTransitions = map[DutyStatus][]DutyStatus{
	DutyAssigned:   {DutyStarted, DutyNotUsed},
	DutyStarted:    {DutyTerminated, DutyEnded},
	DutyTerminated: {DutyEnded},
}

// CanDutyTransition reports whether the edge from -> to is permitted.
func CanDutyTransition(from, to DutyStatus) bool {
	for _, next := range dutyTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the duty can no longer change state.
func (s DutyStatus) Terminal() bool {
	return s == DutyEnded || s == DutyNotUsed
}
