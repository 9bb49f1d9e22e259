package ports

import (
	"context"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// Port: a boundary for fare definition lookup.
//
// Not-found is reported as domain.ErrFareNotFound so the resolver can fall
// through from local to global definitions.
type FareRepository interface {
	GetLocalFare(ctx context.Context, id int) (*domain.FareDefinition, error)
	FindLocalFare(ctx context.Context, companyID int, name string) (*domain.FareDefinition, error)
	FindGlobalFare(ctx context.Context, name string) (*domain.FareDefinition, error)
}
