package httpapi

import (
	"net/http"

	"crickmic-engine/internal/config"
	"crickmic-engine/internal/secrets"
)

type SecretsHandler struct {
	Secrets *secrets.Store
}

type setSecretReq struct {
	Value string `json:"value"`
}

// Status reports which API keys resolve, never the keys themselves.
func (h SecretsHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{
		secrets.Gemini:   h.Secrets.Configured(secrets.Gemini, config.GeminiAPIKey()),
		secrets.RapidAPI: h.Secrets.Configured(secrets.RapidAPI, config.RapidAPIKey()),
	})
}

// ByPath handles POST and DELETE on /api/secrets/{gemini|rapidapi}.
func (h SecretsHandler) ByPath(w http.ResponseWriter, r *http.Request) {
	name := pathTail(r, "/api/secrets/")
	if !secrets.ValidName(name) {
		WriteError(w, r, http.StatusNotFound, "unknown_secret", "unknown secret "+name)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req setSecretReq
		if err := decodeBody(r, &req); err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
			return
		}
		if err := h.Secrets.Set(name, req.Value); err != nil {
			WriteError(w, r, http.StatusBadRequest, "store_failed", "failed to store secret: "+err.Error())
			return
		}
	case http.MethodDelete:
		if err := h.Secrets.Delete(name); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "delete_failed", err.Error())
			return
		}
	default:
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
