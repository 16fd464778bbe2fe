package handler

import (
	"errors"
	"net/http"

	"github.com/jerif/verification-api/internal/application/veteran"
	"github.com/jerif/verification-api/internal/infrastructure/veterans"
)

// VeteransHandler serves the auto-fill candidate list.
type VeteransHandler struct {
	svc veteran.Service
}

func NewVeteransHandler(svc veteran.Service) *VeteransHandler {
	return &VeteransHandler{svc: svc}
}

func (h *VeteransHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Candidates(r.Context())
	if err != nil {
		var se *veterans.StatusError
		if errors.As(err, &se) {
			writeError(w, se.StatusCode, "Failed to fetch veterans")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "Veterans API unavailable")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
