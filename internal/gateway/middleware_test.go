package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/switchboard/internal/ivr"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/templates"
)

func TestLoggingMiddleware(t *testing.T) {
	log := logging.New(nil, "silent")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("ok"))
	})

	handler := loggingMiddleware(inner, log)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := requestIDMiddleware(inner)

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_PreservesExisting(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := requestIDMiddleware(inner)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "custom-id-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "custom-id-123", rr.Header().Get("X-Request-ID"))
}

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{"deny when unconfigured", nil, "http://localhost:3000", ""},
		{"wildcard", []string{"*"}, "http://localhost:3000", "http://localhost:3000"},
		{"listed", []string{"https://console.example.com"}, "https://console.example.com", "https://console.example.com"},
		{"unlisted", []string{"https://console.example.com"}, "https://evil.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := corsMiddleware(inner, tt.allowed)
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler := corsMiddleware(inner, []string{"*"})

	req := httptest.NewRequest("OPTIONS", "/voice/menu", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.False(t, called)
}

func TestCheckWebSocketOrigin(t *testing.T) {
	check := checkWebSocketOrigin([]string{"https://console.example.com"})

	req := httptest.NewRequest("GET", "/voice/stream", nil)
	assert.True(t, check(req), "provider connections carry no Origin")

	req.Header.Set("Origin", "https://console.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/voice/frontdoor", nil)
	req.RemoteAddr = "10.0.0.5:4242"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "10.0.0.5", clientIP(req, false))
	assert.Equal(t, "203.0.113.9", clientIP(req, true))
}

func TestLimitKeys(t *testing.T) {
	assert.Equal(t, []string{"/voice/menu|from:+15551230000", "/voice/menu|ip:10.0.0.5"},
		limitKeys("/voice/menu", "+15551230000", "10.0.0.5"))
	assert.Equal(t, []string{"/voice/menu|ip:10.0.0.5"}, limitKeys("/voice/menu", "", "10.0.0.5"))
	assert.Empty(t, limitKeys("/voice/menu", "", ""))
	assert.NotEqual(t, limitKeys("/voice/menu", "+1555", ""), limitKeys("/voice/frontdoor", "+1555", ""))
}

func TestProviderCallback(t *testing.T) {
	tests := []struct {
		name string
		path string
		p    ivr.Params
		want bool
	}{
		{"status", templates.PathStatus, ivr.Params{CallStatus: "completed"}, true},
		{"recording", templates.PathVoicemail, ivr.Params{RecordingURL: "https://api.example.com/rec/RE1"}, true},
		{"transcription", templates.PathVoicemail, ivr.Params{TranscriptionText: "call me back"}, true},
		{"dial result", templates.PathMenu, ivr.Params{DialCallStatus: "no-answer"}, true},
		{"voicemail prompt", templates.PathVoicemail, ivr.Params{CallStatus: "in-progress"}, false},
		{"front door", templates.PathFrontDoor, ivr.Params{CallStatus: "ringing"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, providerCallback(tt.path, tt.p))
		})
	}
}

func TestResolveBindAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", resolveBindAddr(gatewayCfg("loopback", "", 8080)))
	assert.Equal(t, "0.0.0.0:8080", resolveBindAddr(gatewayCfg("lan", "", 8080)))
	assert.Equal(t, "192.168.1.4:8080", resolveBindAddr(gatewayCfg("custom", "192.168.1.4", 8080)))
	assert.Equal(t, "127.0.0.1:8080", resolveBindAddr(gatewayCfg("bogus", "", 8080)))
}
