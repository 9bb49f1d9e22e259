package domain

import "errors"

// Lock manager failures. A lock timeout is an expected contention outcome
// and is recovered locally; not-owner and expired indicate a timing bug.
var (
	ErrLockTimeout  = errors.New("lock: wait timeout")
	ErrLockNotOwner = errors.New("lock: token does not own lock")
	ErrLockExpired  = errors.New("lock: lease expired")
)

// Sandbox failures. Fare evaluation fails closed: callers must never
// substitute a zero or guessed amount.
var (
	ErrScriptTimeout          = errors.New("fare script: execution timeout")
	ErrScriptMemoryExceeded   = errors.New("fare script: memory ceiling exceeded")
	ErrScriptEvaluationFailed = errors.New("fare script: evaluation failed")
)

// Fare resolution failures. These are configuration errors surfaced to the
// caller, never retried automatically.
var (
	ErrFareNotFound        = errors.New("fare: no matching definition")
	ErrFareVersionMismatch = errors.New("fare: version drift detected")
	ErrFareBadAttributes   = errors.New("fare: malformed attributes")
)

// Lifecycle and materialization failures.
var (
	ErrInvalidTransition    = errors.New("lifecycle: invalid transition")
	ErrStatusConflict       = errors.New("lifecycle: concurrent status change")
	ErrDuplicateService     = errors.New("schedule: service already materialized for occurrence")
	ErrScheduleIncomplete   = errors.New("schedule: bus, route and fare must be set")
	ErrScheduleNotDue       = errors.New("schedule: not due for this occurrence")
	ErrStartLeadViolated    = errors.New("schedule: service would start inside the start lead window")
	ErrCreationLeadViolated = errors.New("schedule: occurrence inside the creation lead window")
	ErrDutyLimitReached     = errors.New("duty: maximum duties per service reached")
)

// Not-found sentinels for repository lookups.
var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrServiceNotFound  = errors.New("service not found")
	ErrDutyNotFound     = errors.New("duty not found")
	ErrBusNotFound      = errors.New("bus not found")
	ErrRouteNotFound    = errors.New("route not found")
	ErrLandmarkNotFound = errors.New("landmark not found")
)
