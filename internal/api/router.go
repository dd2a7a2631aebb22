package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter assembles the chi router: middleware first, then the
// versioned route tree.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Bridge lifecycle
		r.Route("/bridge", func(r chi.Router) {
			r.Post("/start", s.handleBridgeStart)
			r.Post("/stop", s.handleBridgeStop)
		})

		// Mapping table
		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", s.handleListMappings)
			r.Post("/refresh", s.handleRefreshMappings)

			r.Route("/{deviceID}", func(r chi.Router) {
				r.Put("/", s.handleUpdateMapping)
				r.Delete("/", s.handleRemoveMapping)
			})
		})

		// Live DMX channel values
		r.Get("/channels", s.handleChannels)

		// Redacted runtime configuration
		r.Get("/config", s.handleConfig)

		// WebSocket status stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
