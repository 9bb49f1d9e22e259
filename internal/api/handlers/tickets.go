package handlers

import (
	"net/http"

	"github.com/ThinkalVB/entebus-server/internal/api/dto"
	"github.com/ThinkalVB/entebus-server/internal/services"
)

// TicketHandler issues paper and digital tickets through the sequencer.
type TicketHandler struct {
	Issuer *services.TicketIssuer
}

func (h *TicketHandler) IssuePaper(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req dto.PaperTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ticket, err := h.Issuer.IssuePaper(r.Context(), services.IssuePaperCommand{
		ServiceID:    req.ServiceID,
		DutyID:       req.DutyID,
		PickupPoint:  req.PickupPoint,
		DropPoint:    req.DropPoint,
		TicketCounts: req.TicketCounts,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromPaperTicket(ticket))
}

func (h *TicketHandler) IssueDigital(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req dto.DigitalTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ticket, err := h.Issuer.IssueDigital(r.Context(), services.IssueDigitalCommand{
		ServiceID:    req.ServiceID,
		PickupPoint:  req.PickupPoint,
		DropPoint:    req.DropPoint,
		TicketCounts: req.TicketCounts,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromDigitalTicket(ticket))
}
