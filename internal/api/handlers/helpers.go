package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ThinkalVB/entebus-server/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON decodes exactly one JSON object, rejecting unknown fields and
// trailing content.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// writeDomainError maps sentinel errors to HTTP statuses. Unknown errors
// surface as 500 with a generic message; details stay in the logs.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrServiceNotFound),
		errors.Is(err, domain.ErrDutyNotFound),
		errors.Is(err, domain.ErrBusNotFound),
		errors.Is(err, domain.ErrRouteNotFound),
		errors.Is(err, domain.ErrLandmarkNotFound),
		errors.Is(err, domain.ErrFareNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrScheduleIncomplete),
		errors.Is(err, domain.ErrScheduleNotDue),
		errors.Is(err, domain.ErrStartLeadViolated),
		errors.Is(err, domain.ErrCreationLeadViolated),
		errors.Is(err, domain.ErrDutyLimitReached),
		errors.Is(err, domain.ErrFareVersionMismatch),
		errors.Is(err, domain.ErrFareBadAttributes):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrLockTimeout):
		writeError(w, r, http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrScriptTimeout),
		errors.Is(err, domain.ErrScriptMemoryExceeded),
		errors.Is(err, domain.ErrScriptEvaluationFailed):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())

	default:
		log.Printf("method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
