package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"crickmic-engine/internal/orchestrator"
	"crickmic-engine/internal/tracker"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// writeDomainError maps engine sentinels to status codes. Anything else came
// from an upstream model or feed call.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrBusy):
		WriteError(w, r, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, tracker.ErrDispatchInFlight):
		WriteError(w, r, http.StatusConflict, "dispatch_in_flight", err.Error())
	case errors.Is(err, tracker.ErrNoLiveUpdate):
		WriteError(w, r, http.StatusConflict, "no_live_update", err.Error())
	case errors.Is(err, orchestrator.ErrUnknownMatch),
		errors.Is(err, orchestrator.ErrUnknownPost),
		errors.Is(err, tracker.ErrNoTrackedMatch),
		errors.Is(err, tracker.ErrUnknownPlayer):
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, tracker.ErrUnknownKind):
		WriteError(w, r, http.StatusBadRequest, "invalid_kind", err.Error())
	default:
		WriteError(w, r, http.StatusBadGateway, "upstream_error", err.Error())
	}
}
