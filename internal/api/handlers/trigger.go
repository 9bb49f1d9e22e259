package handlers

import (
	"net/http"
	"time"

	"github.com/ThinkalVB/entebus-server/internal/api/dto"
	"github.com/ThinkalVB/entebus-server/internal/services"
)

// TriggerHandler exposes the schedule trigger engine: the periodic tick
// entry point and operator-initiated manual materialization.
type TriggerHandler struct {
	Engine *services.TriggerEngine
}

// Tick runs one evaluation cycle over all due automatic schedules.
func (h *TriggerHandler) Tick(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	report, err := h.Engine.RunTick(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromTickReport(report))
}

// Trigger materializes one schedule occurrence on operator request. The
// force flag bypasses the creation lead; the start lead always holds.
func (h *TriggerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req dto.TriggerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ScheduleID <= 0 {
		writeError(w, r, http.StatusBadRequest, "schedule_id is required")
		return
	}
	occurrence, err := time.Parse("2006-01-02", req.Occurrence)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "occurrence must be YYYY-MM-DD")
		return
	}

	svc, err := h.Engine.Materialize(r.Context(), req.ScheduleID, occurrence, req.Force)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromService(svc))
}
