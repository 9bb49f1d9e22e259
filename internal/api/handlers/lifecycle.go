package handlers

import (
	"net/http"

	"github.com/ThinkalVB/entebus-server/internal/api/dto"
	"github.com/ThinkalVB/entebus-server/internal/domain"
	"github.com/ThinkalVB/entebus-server/internal/services"
)

// LifecycleHandler exposes guarded service and duty transitions.
type LifecycleHandler struct {
	Manager *services.LifecycleManager
}

func (h *LifecycleHandler) TransitionService(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req dto.TransitionServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	to := domain.ServiceStatus(req.To)
	if to < domain.ServiceCreated || to > domain.ServiceAudited {
		writeError(w, r, http.StatusBadRequest, "unknown service status code")
		return
	}
	if err := h.Manager.TransitionService(r.Context(), req.ServiceID, to); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": to.String()})
}

func (h *LifecycleHandler) TransitionDuty(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req dto.TransitionDutyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	to := domain.DutyStatus(req.To)
	if to < domain.DutyAssigned || to > domain.DutyNotUsed {
		writeError(w, r, http.StatusBadRequest, "unknown duty status code")
		return
	}
	if err := h.Manager.TransitionDuty(r.Context(), req.DutyID, to); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": to.String()})
}

func (h *LifecycleHandler) AssignDuty(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req dto.AssignDutyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ServiceID <= 0 || req.OperatorID <= 0 {
		writeError(w, r, http.StatusBadRequest, "service_id and operator_id are required")
		return
	}
	duty, err := h.Manager.AssignDuty(r.Context(), req.ServiceID, req.OperatorID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromDuty(duty))
}
