package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/profile"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/httputil"
	"preuvio/pkg/platform/sentinel"
	"preuvio/pkg/requestcontext"
)

type createProfileRequest struct {
	PlatformID   string `json:"platform_id"`
	BusinessName string `json:"business_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	ExternalRef  string `json:"external_ref"`
}

func (h *handlers) createProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	platformID, err := domain.ParsePlatformID(req.PlatformID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := authn.RequirePlatformRole(r.Context(), platformID,
		authn.RoleOwner, authn.RoleAdmin); err != nil {
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(r.Context())
	prof, err := profile.New(domain.NewProfileID(), platformID, req.BusinessName, req.ContactEmail, now)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	prof.ContactPhone = req.ContactPhone
	prof.ExternalRef = req.ExternalRef

	if err := h.deps.Profiles.Create(r.Context(), prof); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "create profile"))
		return
	}

	h.deps.Audit.EmitBestEffort(r.Context(), audit.Entry{
		PlatformID: platformID,
		Action:     audit.ActionProfileCreated,
		EntityType: "profile",
		EntityID:   prof.ID.String(),
		After:      audit.Snapshot(prof),
	})
	httputil.WriteJSON(w, http.StatusCreated, prof)
}

func (h *handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	prof, err := h.deps.Profiles.FindByID(r.Context(), id)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "profile not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "load profile"))
		return
	}
	if err := authn.RequirePlatformRole(r.Context(), prof.PlatformID,
		authn.RoleOwner, authn.RoleAdmin, authn.RoleReviewer); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, prof)
}

func (h *handlers) listProfiles(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePlatformID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := authn.RequirePlatformRole(r.Context(), id,
		authn.RoleOwner, authn.RoleAdmin, authn.RoleReviewer); err != nil {
		httputil.WriteError(w, err)
		return
	}
	profiles, err := h.deps.Profiles.ListByPlatform(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list profiles"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}
