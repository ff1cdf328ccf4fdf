package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/waks132/messiahx-sub000/internal/svcctx"
)

// registerRoutes sets up all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.Handle("GET /metrics", s.recorder.Handler())
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures a model provider can serve the call.
// Returns 503 Service Unavailable if the default provider is not registered.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider := s.adapter.Provider(); !s.registry.HasLLM(provider) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": fmt.Sprintf("model provider %q is not registered", provider),
			})
			return
		}
		next(w, r)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
