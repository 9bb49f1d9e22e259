package domain

import (
	"fmt"
	"time"
)

// PaperTicket is issued by a duty device on board. Sequence numbers are
// unique and gapless within the (service, duty) scope. Tickets are
// immutable once created.
type PaperTicket struct {
	ID         int64
	CompanyID  int
	ServiceID  int
	DutyID     int
	SequenceID int

	TicketTypes map[string]int
	PickupPoint int
	DropPoint   int

	DistanceMeters int
	// Amount is computed once at issuance from the service's fare
	// snapshot and stored immutably, in minor currency units.
	Amount    int64
	Breakdown map[string]int64

	CreatedOn time.Time
}

// DigitalTicket is issued against the service directly; its sequence scope
// has no duty component.
type DigitalTicket struct {
	ID         int64
	CompanyID  int
	ServiceID  int
	SequenceID int

	TicketTypes map[string]int
	PickupPoint int
	DropPoint   int

	DistanceMeters int
	Amount         int64
	Breakdown      map[string]int64

	CreatedOn time.Time
}

// PaperScope is the sequence key space for paper tickets.
func PaperScope(serviceID, dutyID int) string {
	return fmt.Sprintf("service:%d:duty:%d", serviceID, dutyID)
}

// DigitalScope is the sequence key space for digital tickets.
func DigitalScope(serviceID int) string {
	return fmt.Sprintf("service:%d", serviceID)
}
