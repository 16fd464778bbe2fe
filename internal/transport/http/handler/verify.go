package handler

import (
	"encoding/json"
	"net/http"

	"github.com/jerif/verification-api/internal/application/verification"
	"github.com/jerif/verification-api/internal/pkg/validate"
	"github.com/jerif/verification-api/internal/transport/http/middleware"
)

const (
	msgSessionNotFound = "Verification session not found. Please check your link."
	maxBodyBytes       = 64 << 10
)

// VerifyHandler accepts applicant submissions.
type VerifyHandler struct {
	svc verification.Service
}

func NewVerifyHandler(svc verification.Service) *VerifyHandler {
	return &VerifyHandler{svc: svc}
}

func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verification.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	resp, err := h.svc.Verify(r.Context(), req, middleware.ClientFromRequest(r))
	if err != nil {
		httpError(w, r, err, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
