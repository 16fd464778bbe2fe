package handler

import (
	"net/http"
)

// HealthHandler answers liveness checks.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthEnvelope{Status: "ok"})
}
