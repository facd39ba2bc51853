package main

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/obsidianstack/samplerate/pkg/config"
	"github.com/obsidianstack/samplerate/server/internal/auth"
	"github.com/obsidianstack/samplerate/server/internal/metrics"
)

// newRouter mounts the REST API (behind CORS and API-key auth), the WebSocket
// form (API key from header or ?api_key=) and /metrics on one mux.
func newRouter(cfg *config.Config, apiHandler, hub http.Handler, m *metrics.Metrics) http.Handler {
	header := cfg.Server.Auth.EffectiveHeader()
	requireKey := auth.APIKey(cfg.Server.Auth.Mode, header, cfg.Server.Auth.Key())
	requireWSKey := auth.APIKeyOrQuery(cfg.Server.Auth.Mode, header, cfg.Server.Auth.Key())

	// Preflight requests are answered by cors before auth sees them.
	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{header},
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", c.Handler(requireKey(apiHandler)))
	mux.Handle("/ws/form", requireWSKey(hub))
	mux.Handle("/metrics", m.Handler())
	return mux
}
