package ports

import (
	"context"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// Port: the geospatial query interface.
//
// The polygon index lives outside this core; callers only consume
// containment and nearest-match lookups when resolving pickup and drop
// points for trip contexts.
type LandmarkLocator interface {
	// Locate returns the landmark whose boundary contains the point, or
	// the nearest landmark when no boundary contains it.
	Locate(ctx context.Context, p domain.Point) (*domain.Landmark, error)
}
