package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/httputil"
)

func (h *handlers) approveEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEvidenceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ev, err := h.deps.Reviews.Approve(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) rejectEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEvidenceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	ev, err := h.deps.Reviews.Reject(r.Context(), id, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}
