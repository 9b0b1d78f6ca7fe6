package api

import (
	"net/http"

	"preuvio/pkg/platform/httputil"
)

func (h *handlers) runExpirationSweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Scanner.Run(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
