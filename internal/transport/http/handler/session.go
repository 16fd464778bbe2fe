package handler

import (
	"net/http"

	"github.com/jerif/verification-api/internal/application/session"
	"github.com/jerif/verification-api/internal/transport/http/middleware"
)

// SessionHandler serves the verification link lookup.
type SessionHandler struct {
	svc session.Service
}

func NewSessionHandler(svc session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	campaignID, verificationID := q.Get("campaignId"), q.Get("verificationId")
	if campaignID == "" || verificationID == "" {
		writeError(w, http.StatusBadRequest, "Missing campaignId or verificationId")
		return
	}
	view, err := h.svc.Lookup(r.Context(), campaignID, verificationID, middleware.ClientFromRequest(r))
	if err != nil {
		httpError(w, r, err, msgSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
