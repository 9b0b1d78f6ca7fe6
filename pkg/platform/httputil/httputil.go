// Package httputil centralizes JSON envelopes so every handler speaks the same
// error dialect.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "preuvio/pkg/domain-errors"
)

// WriteJSON encodes v with the given status. Encoding failures are ignored:
// headers are already out and there is nothing useful left to do.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so store and upstream details never leak.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if msg := dErrors.MessageOf(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}
