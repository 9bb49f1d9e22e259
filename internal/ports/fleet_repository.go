package ports

import (
	"context"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// Port: a boundary for the company assets a service snapshot freezes.
type FleetRepository interface {
	GetBus(ctx context.Context, id int) (*domain.Bus, error)

	// GetRoute returns the route with its landmark entries enriched with
	// landmark name and type, ready to freeze into a snapshot.
	GetRoute(ctx context.Context, id int) (*domain.Route, error)
}
