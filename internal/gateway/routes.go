package gateway

import (
	"net/http"

	"github.com/soyeahso/switchboard/internal/templates"
)

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST "+templates.PathFrontDoor, s.webhook(templates.PathFrontDoor, s.machine.FrontDoor))
	mux.HandleFunc("POST "+templates.PathMenu, s.webhook(templates.PathMenu, s.machine.Menu))
	mux.HandleFunc("POST "+templates.PathVoicemail, s.webhook(templates.PathVoicemail, s.machine.Voicemail))
	mux.HandleFunc("POST "+templates.PathStatus, s.webhook(templates.PathStatus, s.machine.Status))

	if s.driver != nil {
		mux.HandleFunc("GET "+templates.PathStream, s.handleStream)
	}
	if s.metricsEnabled() {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}
