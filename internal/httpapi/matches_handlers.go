package httpapi

import (
	"context"
	"net/http"

	"crickmic-engine/internal/domain"
	"crickmic-engine/internal/orchestrator"
)

type MatchesHandler struct {
	Orch *orchestrator.Orchestrator
}

func (h MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	type item struct {
		domain.Match
		Processed bool `json:"processed"`
	}
	ms := h.Orch.Matches()
	out := make([]item, 0, len(ms))
	for _, m := range ms {
		out = append(out, item{Match: m, Processed: h.Orch.IsProcessed(m.ID)})
	}
	writeJSON(w, out)
}

// Refresh starts a background fetch; results arrive as a matches_updated event.
// With ?wait=1 the fetch runs inline and the new list is returned.
func (h MatchesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("wait") == "1" {
		if err := h.Orch.Refresh(context.WithoutCancel(r.Context())); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, h.Orch.Matches())
		return
	}
	started := h.Orch.RefreshAsync()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true, "started": started})
}

type SelectionHandler struct {
	Orch *orchestrator.Orchestrator
}

type selectionReq struct {
	ID string `json:"id"`
}

func (h SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"selected": h.Orch.Selection()})
}

// Toggle flips one id in or out of the selection.
func (h SelectionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req selectionReq
	if err := decodeBody(r, &req); err != nil || req.ID == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "body must be {\"id\": \"...\"}")
		return
	}
	on, err := h.Orch.ToggleSelection(req.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"id": req.ID, "selected": on, "selection": h.Orch.Selection()})
}

func (h SelectionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.Orch.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// Generate enriches the selected matches. The run is not cancelled when the
// client goes away.
func (h SelectionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	results, err := h.Orch.GenerateSelected(context.WithoutCancel(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	ok := 0
	for _, res := range results {
		if res.OK() {
			ok++
		}
	}
	writeJSON(w, map[string]any{"attempted": len(results), "succeeded": ok, "results": results})
}

type AutopilotHandler struct {
	Orch *orchestrator.Orchestrator
}

type autopilotReq struct {
	Enabled *bool `json:"enabled"`
}

func (h AutopilotHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Orch.Status())
}

// Set switches autopilot on or off; an empty body toggles.
func (h AutopilotHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req autopilotReq
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON: "+err.Error())
		return
	}
	switch {
	case req.Enabled == nil:
		h.Orch.Toggle()
	case *req.Enabled:
		h.Orch.StartScan()
	default:
		h.Orch.StopScan()
	}
	writeJSON(w, h.Orch.Status())
}
