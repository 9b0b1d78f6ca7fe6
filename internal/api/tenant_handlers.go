package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"preuvio/internal/audit"
	"preuvio/internal/authn"
	tenantmodels "preuvio/internal/tenant/models"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/httputil"
	"preuvio/pkg/platform/sentinel"
	"preuvio/pkg/requestcontext"
)

type createPlatformRequest struct {
	Name       string          `json:"name"`
	Slug       string          `json:"slug"`
	LogoURL    string          `json:"logo_url"`
	BrandColor string          `json:"brand_color"`
	Settings   json.RawMessage `json:"settings"`
}

func (h *handlers) createPlatform(w http.ResponseWriter, r *http.Request) {
	var req createPlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}

	now := requestcontext.Now(r.Context())
	plat, err := tenantmodels.NewPlatform(domain.NewPlatformID(), req.Name, req.Slug, now)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	plat.LogoURL = req.LogoURL
	plat.BrandColor = req.BrandColor
	plat.Settings = req.Settings

	if err := h.deps.Platforms.Create(r.Context(), plat); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "slug already in use"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "create platform"))
		return
	}

	h.deps.Audit.EmitBestEffort(r.Context(), audit.Entry{
		PlatformID: plat.ID,
		Action:     audit.ActionPlatformCreated,
		EntityType: "platform",
		EntityID:   plat.ID.String(),
		After:      audit.Snapshot(plat),
	})
	httputil.WriteJSON(w, http.StatusCreated, plat)
}

func (h *handlers) getPlatform(w http.ResponseWriter, r *http.Request) {
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
	plat, err := h.deps.Platforms.FindByID(r.Context(), id)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "platform not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "load platform"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, plat)
}
