package ports

import (
	"context"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// Port: a boundary for ticket persistence and sequence allocation.
//
// Sequence numbers are allocated by an atomic test-and-increment at the
// storage layer, inside the same transaction that persists the ticket: a
// failed insert rolls the counter back, so the number is reused on retry
// and scopes stay gapless. Counters are never derived by scanning tickets.
type TicketRepository interface {
	// InsertPaperTicket allocates the next sequence number in the
	// (service, duty) scope and persists the ticket atomically, filling
	// SequenceID and ID on success.
	InsertPaperTicket(ctx context.Context, t *domain.PaperTicket) error

	// InsertDigitalTicket does the same in the (service) scope.
	InsertDigitalTicket(ctx context.Context, t *domain.DigitalTicket) error

	// SumAmountsByDuty totals the stored amounts for a duty's tickets.
	SumAmountsByDuty(ctx context.Context, dutyID int) (int64, error)

	// CountUnpricedByService reports tickets under a service that lack a
	// finalized amount; auditing requires zero.
	CountUnpricedByService(ctx context.Context, serviceID int) (int, error)
}
