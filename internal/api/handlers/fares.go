package handlers

import (
	"net/http"

	"github.com/ThinkalVB/entebus-server/internal/api/dto"
	"github.com/ThinkalVB/entebus-server/internal/domain"
	"github.com/ThinkalVB/entebus-server/internal/ports"
	"github.com/ThinkalVB/entebus-server/internal/services"
)

// FareHandler quotes trips against the effective fare of a company.
type FareHandler struct {
	Resolver *services.FareResolver
	Locator  ports.LandmarkLocator
}

// Quote resolves and evaluates a fare for a trip context. When pickup and
// drop coordinates are given they are resolved to landmarks so the script
// sees the landmark tiers.
func (h *FareHandler) Quote(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req dto.QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Fare == "" {
		writeError(w, r, http.StatusBadRequest, "fare is required")
		return
	}
	if req.DistanceMeters <= 0 {
		writeError(w, r, http.StatusBadRequest, "distance_meters must be positive")
		return
	}

	trip := domain.TripContext{
		DistanceMeters: req.DistanceMeters,
		TicketCounts:   req.TicketCounts,
	}
	if req.Pickup != nil {
		lm, err := h.Locator.Locate(r.Context(), domain.Point{Lat: req.Pickup.Lat, Lng: req.Pickup.Lng})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		trip.PickupType = lm.Type
	}
	if req.Drop != nil {
		lm, err := h.Locator.Locate(r.Context(), domain.Point{Lat: req.Drop.Lat, Lng: req.Drop.Lng})
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		trip.DropType = lm.Type
	}

	var (
		eval domain.Evaluation
		def  *domain.FareDefinition
		err  error
	)
	if req.ExpectedVersion != nil {
		eval, def, err = h.Resolver.ResolveVersion(r.Context(), req.CompanyID, req.Fare, *req.ExpectedVersion, trip)
	} else {
		eval, def, err = h.Resolver.Resolve(r.Context(), req.CompanyID, req.Fare, trip)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	scope := "global"
	if def.Scope == domain.FareLocal {
		scope = "local"
	}
	writeJSON(w, r, http.StatusOK, dto.QuoteResponse{
		Fare:      def.Name,
		Scope:     scope,
		Version:   def.Version,
		Total:     eval.Total,
		Breakdown: eval.Breakdown,
	})
}
