package httpapi

import (
	"context"
	"net/http"
	"strings"

	"crickmic-engine/internal/orchestrator"
	"crickmic-engine/internal/tracker"
)

type TrackerHandler struct {
	Orch    *orchestrator.Orchestrator
	Tracker *tracker.Monitor
}

type trackReq struct {
	MatchID string `json:"matchId"`
}

type trackerDispatchReq struct {
	Kind   string `json:"kind"`
	Player string `json:"player"`
}

func (h TrackerHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Tracker.Snapshot())
}

// Start tracks a match from the current candidate list.
func (h TrackerHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req trackReq
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.MatchID) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "body must be {\"matchId\": \"...\"}")
		return
	}
	m, ok := h.Orch.Match(req.MatchID)
	if !ok {
		WriteError(w, r, http.StatusNotFound, "not_found", orchestrator.ErrUnknownMatch.Error())
		return
	}
	h.Tracker.Start(m)
	WriteJSON(w, http.StatusAccepted, h.Tracker.Snapshot())
}

func (h TrackerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.Tracker.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// Refresh fetches the scorecard inline.
func (h TrackerHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.Refresh(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, h.Tracker.Snapshot())
}

func (h TrackerHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req trackerDispatchReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	kind, err := tracker.ParseKind(req.Kind)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	post, err := h.Tracker.Dispatch(context.WithoutCancel(r.Context()), kind, req.Player)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, post)
}
