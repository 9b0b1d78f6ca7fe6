package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"preuvio/internal/notification"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/httputil"
)

type sendNotificationRequest struct {
	ID string `json:"id"`
}

func (h *handlers) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	id, err := domain.ParseNotificationID(req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.deps.Dispatcher.Send(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *handlers) retryNotification(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNotificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.deps.Dispatcher.Retry(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type demoEmailRequest struct {
	PlatformID string `json:"platform_id"`
	ProfileID  string `json:"profile_id"`
	Recipient  string `json:"recipient"`
}

// sendDemoEmail exercises the full enqueue-and-deliver path with fixed
// content so integrators can verify their email configuration.
func (h *handlers) sendDemoEmail(w http.ResponseWriter, r *http.Request) {
	var req demoEmailRequest
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
	if req.Recipient == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "a recipient is required"))
		return
	}

	entry, err := h.deps.Dispatcher.Enqueue(r.Context(), notification.EnqueueParams{
		PlatformID:   platformID,
		ProfileID:    profileID,
		EvidenceID:   domain.NewEvidenceID(),
		Type:         notification.TypeDepositConfirmation,
		Recipient:    req.Recipient,
		DocumentType: "demo_document",
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.deps.Dispatcher.Send(r.Context(), entry.ID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "sent", "id": entry.ID.String()})
}
