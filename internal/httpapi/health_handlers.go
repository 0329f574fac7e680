package httpapi

import (
	"net/http"
	"time"

	"crickmic-engine/internal/orchestrator"
)

type HealthHandler struct {
	Orch *orchestrator.Orchestrator
	Now  func() time.Time
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"ok":   true,
		"time": h.Now().UTC().Format(time.RFC3339),
	}
	if h.Orch != nil {
		out["mode"] = h.Orch.Mode()
		out["busy"] = h.Orch.Busy()
	}
	writeJSON(w, out)
}
