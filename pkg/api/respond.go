package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/henriqueedu2001/causp-lock-server/pkg/keys"
	"github.com/henriqueedu2001/causp-lock-server/pkg/mac"
	"github.com/henriqueedu2001/causp-lock-server/pkg/payload"
	"github.com/henriqueedu2001/causp-lock-server/pkg/persistence"
	"github.com/henriqueedu2001/causp-lock-server/pkg/wire"
)

// maxBodySize bounds request bodies.
const maxBodySize = 64 << 10

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// readJSON decodes a bounded request body into v, rejecting unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps protocol and storage errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, mac.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, persistence.ErrStorage):
		return http.StatusInternalServerError
	case errors.Is(err, wire.ErrFormat),
		errors.Is(err, wire.ErrRange),
		errors.Is(err, wire.ErrUnsupportedType),
		errors.Is(err, payload.ErrRoleMismatch),
		errors.Is(err, keys.ErrMissingKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
