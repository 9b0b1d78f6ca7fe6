package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"preuvio/internal/analysis"
	"preuvio/internal/audit"
	"preuvio/internal/authn"
	"preuvio/internal/platform/middleware"
	"preuvio/internal/rules"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/httputil"
)

func (h *handlers) getRules(w http.ResponseWriter, r *http.Request) {
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
	pkg, err := rules.ForPlatform(r.Context(), h.deps.Rules, id)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "load rules"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pkg)
}

type extractRequest struct {
	DocumentType string `json:"document_type"`
	ContentType  string `json:"content_type"`
	Content      string `json:"content"` // base64
}

// extractDocument runs a standalone analysis for the dashboard, without
// storing anything.
func (h *handlers) extractDocument(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "content must be base64"))
		return
	}

	if !h.deps.Analyzer.Configured() {
		httputil.WriteJSON(w, http.StatusOK, analysis.PlaceholderExtraction(req.DocumentType))
		return
	}
	out, err := h.deps.Analyzer.Extract(r.Context(), req.DocumentType, req.ContentType, content)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *handlers) exportAudit(w http.ResponseWriter, r *http.Request) {
	platformID, err := domain.ParsePlatformID(r.URL.Query().Get("platform_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	csv, err := h.deps.Exporter.Export(r.Context(), platformID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="preuvio-export.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csv)
}

type appendAuditRequest struct {
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Reason     string          `json:"reason"`
	Before     json.RawMessage `json:"before"`
	After      json.RawMessage `json:"after"`
}

// appendAudit lets trusted dashboard flows record events the backend does
// not observe directly. The platform comes from the caller's claims.
func (h *handlers) appendAudit(w http.ResponseWriter, r *http.Request) {
	var req appendAuditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	if req.Action == "" || req.EntityType == "" || req.EntityID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "action, entity_type and entity_id are required"))
		return
	}
	platformID, err := domain.ParsePlatformID(middleware.GetPlatformID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.deps.Audit.Emit(r.Context(), audit.Entry{
		PlatformID: platformID,
		Action:     audit.Action(req.Action),
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Reason:     req.Reason,
		Before:     req.Before,
		After:      req.After,
	}); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "append audit entry"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}
