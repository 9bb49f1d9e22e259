package domain

import "time"

// Bus is a company vehicle. Only the fields a service snapshot cares about
// are modeled here; registration paperwork lives with the fleet service.
type Bus struct {
	ID                 int
	CompanyID          int
	RegistrationNumber string
	Name               string
	Capacity           int
	CreatedOn          time.Time
}

// Route is an ordered sequence of landmarks with cumulative distance and
// timing offsets from the starting point.
type Route struct {
	ID        int
	CompanyID int
	Name      string
	Landmarks []RouteLandmark
	CreatedOn time.Time
}

// RouteLandmark is one stop on a route. Distances are meters from the
// route start; deltas are minutes from departure.
type RouteLandmark struct {
	LandmarkID        int
	Name              string
	Type              LandmarkType
	DistanceFromStart int
	ArrivalDelta      int
	DepartureDelta    int
}

// LegDistance returns the distance in meters between two stops on the
// route, irrespective of travel direction.
func (r *Route) LegDistance(pickupID, dropID int) (int, bool) {
	var pickup, drop *RouteLandmark
	for i := range r.Landmarks {
		switch r.Landmarks[i].LandmarkID {
		case pickupID:
			pickup = &r.Landmarks[i]
		case dropID:
			drop = &r.Landmarks[i]
		}
	}
	if pickup == nil || drop == nil {
		return 0, false
	}
	d := drop.DistanceFromStart - pickup.DistanceFromStart
	if d < 0 {
		d = -d
	}
	return d, true
}

// Duration returns the minutes from departure to the final stop.
func (r *Route) Duration() int {
	if len(r.Landmarks) == 0 {
		return 0
	}
	last := r.Landmarks[0].ArrivalDelta
	for _, lm := range r.Landmarks {
		if lm.ArrivalDelta > last {
			last = lm.ArrivalDelta
		}
	}
	return last
}

// Landmark is a named geographic area used for pickup and drop resolution.
// The polygon itself lives in the geospatial index; the core only consumes
// classification results.
type Landmark struct {
	ID   int
	Name string
	Type LandmarkType
}

// Point is a WGS84 coordinate handed to the geospatial index.
type Point struct {
	Lat float64
	Lng float64
}
