package httpserver

import (
	"net/http"

	"github.com/google/uuid"
)

// recovererMiddleware enforces spec.md §6's "Unhandled exception ->
// 500 internal-error" contract, the same blanket try/except dispatch
// wrapper original_source/dsq/http.py's Application.__call__ keeps.
// Wraps chi's middleware.Recoverer shape (see
// _examples/denisvmedia-inventario/apiserver/apiserver.go) but recovers
// into the apiError JSON body instead of a bare 500, since that's the
// contract this ingress has to keep.
func (s *Server) recovererMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered from panic")
				writeResult(w, r, http.StatusInternalServerError, apiError{Error: "internal-error", Message: "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware stamps every response with an X-Request-Id
// header, generating one via uuid when the caller didn't supply it, so
// operators can correlate a client report with a log line.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware is the teacher's enableCORS, generalized into a
// chi-compatible http.Handler wrapper instead of an http.HandlerFunc
// closure.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware is the teacher's authMiddleware, generalized onto
// Server.apiKey: an empty key disables authentication (dev mode).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("X-API-Key") == s.apiKey {
			next.ServeHTTP(w, r)
			return
		}
		writeResult(w, r, http.StatusUnauthorized, apiError{Error: "unauthorized", Message: "Invalid or missing API key"})
	})
}
