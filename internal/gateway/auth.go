package gateway

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/soyeahso/switchboard/internal/ivr"
	"github.com/soyeahso/switchboard/internal/telephony"
	"github.com/soyeahso/switchboard/internal/templates"
)

// authenticate checks the provider signature and returns the signed form.
// Failures are logged and counted; the caller only learns that it failed.
func (s *Server) authenticate(r *http.Request) (url.Values, bool) {
	form, err := s.verifier.Verify(r)
	if err == nil {
		return form, true
	}
	reason := authFailureReason(err)
	s.log.Warn().
		Str("path", r.URL.Path).
		Str("remote", clientIP(r, s.cfg.Gateway.TrustProxy)).
		Str("reason", reason).
		Msg("webhook authentication failed")
	if s.metrics != nil {
		s.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	return nil, false
}

// authenticateStream checks a stream token and returns the call it is bound to.
func (s *Server) authenticateStream(r *http.Request) (string, bool) {
	q := r.URL.Query()
	var callSid string
	err := telephony.ErrMissingSecret
	if s.cfg.Telephony.AuthToken != "" {
		callSid, err = telephony.VerifyStreamToken(s.cfg.Telephony.AuthToken, q.Get("token"), s.now())
		if want := q.Get("callSid"); err == nil && want != "" && want != callSid {
			err = telephony.ErrInvalidStreamToken
		}
	}
	if err == nil {
		return callSid, true
	}

	reason := authFailureReason(err)
	s.log.Warn().
		Str("remote", clientIP(r, s.cfg.Gateway.TrustProxy)).
		Str("reason", reason).
		Msg("stream authentication failed")
	if s.metrics != nil {
		s.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
	return "", false
}

func authFailureReason(err error) string {
	switch {
	case errors.Is(err, telephony.ErrMissingSecret):
		return "no_secret"
	case errors.Is(err, telephony.ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, telephony.ErrExpiredStreamToken):
		return "expired_token"
	case errors.Is(err, telephony.ErrInvalidStreamToken):
		return "invalid_token"
	default:
		return "invalid_signature"
	}
}

// clientIP returns the caller's network address. X-Forwarded-For is only
// honoured behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limitKeys namespaces the identifiers a webhook is limited on by endpoint,
// so each step of the call flow has its own budget. Empty identifiers are
// left out.
func limitKeys(path, from, ip string) []string {
	keys := make([]string, 0, 2)
	if from != "" {
		keys = append(keys, path+"|from:"+from)
	}
	if ip != "" {
		keys = append(keys, path+"|ip:"+ip)
	}
	return keys
}

// providerCallback reports whether a webhook is the provider reporting on a
// call already in progress rather than a caller action. These are never
// rate limited. CallStatus alone does not count: the provider sends it on
// every request.
func providerCallback(path string, p ivr.Params) bool {
	if path == templates.PathStatus {
		return true
	}
	return p.RecordingURL != "" || p.TranscriptionText != "" || p.DialCallStatus != ""
}
