package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireToken rejects requests without the server's bearer token. Routes
// that make the server sign or verify with its keyring sit behind it.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			w.Header().Set("WWW-Authenticate", `Bearer realm="causp"`)
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !s.validToken(strings.TrimPrefix(h, "Bearer ")) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="causp", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validToken compares digests so neither content nor length leaks through
// timing.
func (s *Server) validToken(token string) bool {
	got := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(got[:], s.tokenSum[:]) == 1
}
