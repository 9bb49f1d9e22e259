package geo

import (
	"context"
	"math"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

// MemoryLocator resolves points against a fixed set of landmark centers
// by straight-line distance. Used in tests and local runs without PostGIS.
type MemoryLocator struct {
	Landmarks []MemoryLandmark
}

type MemoryLandmark struct {
	Landmark domain.Landmark
	Center   domain.Point
}

func (l *MemoryLocator) Locate(ctx context.Context, p domain.Point) (*domain.Landmark, error) {
	if len(l.Landmarks) == 0 {
		return nil, domain.ErrLandmarkNotFound
	}
	best := 0
	bestDist := math.Inf(1)
	for i, lm := range l.Landmarks {
		dLat := lm.Center.Lat - p.Lat
		dLng := lm.Center.Lng - p.Lng
		if d := dLat*dLat + dLng*dLng; d < bestDist {
			bestDist = d
			best = i
		}
	}
	lm := l.Landmarks[best].Landmark
	return &lm, nil
}
