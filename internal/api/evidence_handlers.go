package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"preuvio/internal/evidence"
	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/domain"
	"preuvio/pkg/platform/httputil"
)

// submitEvidence accepts a multipart upload through a magic link. The token
// travels in the form so the public portal needs no extra headers.
func (h *handlers) submitEvidence(w http.ResponseWriter, r *http.Request) {
	maxMem := h.deps.MaxUploadMem
	if maxMem <= 0 {
		maxMem = 32 << 20
	}
	// One byte of slack so an over-limit upload parses and gets the 413
	// instead of a generic multipart error.
	r.Body = http.MaxBytesReader(w, r.Body, evidence.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(maxMem); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodePayloadTooLarge, "upload too large or malformed"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "a file part is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unreadable file part"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	docName := r.FormValue("document_name")
	if docName == "" {
		docName = header.Filename
	}

	ev, err := h.deps.Evidences.Submit(r.Context(), evidence.SubmitParams{
		RawToken:     r.FormValue("token"),
		DocumentType: r.FormValue("document_type"),
		DocumentName: docName,
		Content:      content,
		ContentType:  contentType,
		IssuedAt:     parseDateField(r.FormValue("issued_at")),
		ExpiresAt:    parseDateField(r.FormValue("expires_at")),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ev)
}

func (h *handlers) getEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEvidenceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ev, err := h.deps.Evidences.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ev)
}

func (h *handlers) downloadEvidence(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseEvidenceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	url, err := h.deps.Evidences.DownloadURL(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *handlers) listProfileEvidences(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidences, err := h.deps.Evidences.ListByProfile(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"evidences": evidences})
}

func parseDateField(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
