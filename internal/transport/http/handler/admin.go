package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jerif/verification-api/internal/application/admin"
	"github.com/jerif/verification-api/internal/application/campaign"
	"github.com/jerif/verification-api/internal/application/session"
	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/pkg/validate"
)

const msgCampaignNotFound = "Campaign not found"

// AdminHandler serves the bearer-protected admin surface and its login.
type AdminHandler struct {
	admin     admin.Service
	campaigns campaign.Service
	sessions  session.Service
}

func NewAdminHandler(adminSvc admin.Service, campaigns campaign.Service, sessions session.Service) *AdminHandler {
	return &AdminHandler{admin: adminSvc, campaigns: campaigns, sessions: sessions}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req admin.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	res, err := h.admin.Login(r.Context(), req)
	if err != nil {
		httpError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (h *AdminHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.admin.ListVerifications(r.Context(), q.Get("status"), q.Get("search"))
	if err != nil {
		httpError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	out, err := h.campaigns.List(r.Context())
	if err != nil {
		httpError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCampaignRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.campaigns.Create(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			writeError(w, http.StatusConflict, "Campaign already exists")
			return
		}
		httpError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *AdminHandler) GenerateLink(w http.ResponseWriter, r *http.Request) {
	var req session.GenerateLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Campaign ID is required")
		return
	}
	link, err := h.sessions.GenerateLink(r.Context(), req.CampaignID)
	if err != nil {
		httpError(w, r, err, msgCampaignNotFound)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
