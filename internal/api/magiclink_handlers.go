package api

import (
	"encoding/json"
	"net/http"

	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/httputil"
)

type issueMagicLinkRequest struct {
	PlatformID string `json:"platform_id"`
	ProfileID  string `json:"profile_id"`
	// TTLDays is optional; zero means the default lifetime.
	TTLDays int `json:"ttl_days"`
}

func (h *handlers) issueMagicLink(w http.ResponseWriter, r *http.Request) {
	var req issueMagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	platformID, err := domain.ParsePlatformID(req.PlatformID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profileID, err := domain.ParseProfileID(req.ProfileID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	issued, err := h.deps.MagicLinks.Issue(r.Context(), platformID, profileID, req.TTLDays)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, issued)
}

type validateMagicLinkRequest struct {
	Token string `json:"token"`
}

func (h *handlers) validateMagicLink(w http.ResponseWriter, r *http.Request) {
	var req validateMagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	lc, err := h.deps.MagicLinks.Validate(r.Context(), req.Token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lc)
}
