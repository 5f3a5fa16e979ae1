package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/soyeahso/switchboard/internal/ivr"
	"github.com/soyeahso/switchboard/internal/ratelimit"
)

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// WebhookHandler is one step of the call menu.
type WebhookHandler func(ctx context.Context, p ivr.Params) (ivr.Result, error)

// webhook gates h behind signature verification then the rate limiter.
// Nothing reaches the state machine unless both pass; provider callbacks
// skip the limiter.
func (s *Server) webhook(path string, h WebhookHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		res := s.serveWebhook(r, path, h)

		w.Header().Set("Content-Type", res.ContentType)
		w.WriteHeader(res.Status)
		w.Write([]byte(res.Body))

		if s.metrics != nil {
			s.metrics.RecordWebhook(path, res.Status, time.Since(start))
		}
	}
}

func (s *Server) serveWebhook(r *http.Request, path string, h WebhookHandler) (res ivr.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Str("path", path).Msg("webhook handler panicked")
			res = s.machine.Failure(path)
		}
	}()

	form, ok := s.authenticate(r)
	if !ok {
		return s.machine.Failure(path)
	}

	p := ivr.ParseParams(form, r.URL.Query())
	ip := clientIP(r, s.cfg.Gateway.TrustProxy)
	if !providerCallback(path, p) && !ratelimit.AllowAll(r.Context(), s.limiter, limitKeys(path, p.From, ip)...) {
		s.log.Warn().Str("path", path).Str("from", p.From).Str("remote", ip).Msg("rate limit exceeded")
		if s.metrics != nil {
			s.metrics.RateLimitHits.WithLabelValues(path).Inc()
		}
		return s.machine.RateLimited()
	}

	res, err := h(r.Context(), p)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Str("callSid", p.CallSid).Msg("webhook failed")
		return s.machine.Failure(path)
	}
	return res
}
