package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/switchboard/internal/agent"
	"github.com/soyeahso/switchboard/internal/config"
	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/ivr"
	"github.com/soyeahso/switchboard/internal/llm"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/metrics"
	"github.com/soyeahso/switchboard/internal/ratelimit"
	"github.com/soyeahso/switchboard/internal/store"
	"github.com/soyeahso/switchboard/internal/telephony"
	"github.com/soyeahso/switchboard/internal/templates"
)

const testSecret = "test-auth-token"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	srv     *Server
	ts      *httptest.Server
	store   *store.Memory
	writer  *store.Writer
	hooks   *hooks.Manager
	metrics *metrics.Metrics
	llm     *llm.MockClient
	clock   *fakeClock
}

func gatewayCfg(bind, host string, port int) config.GatewayConfig {
	return config.GatewayConfig{Bind: bind, CustomBindHost: host, Port: port}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.Telephony.AuthToken = testSecret
	cfg.Telephony.BusinessID = "acme"
	cfg.Telephony.BusinessName = "Acme Heating"
	cfg.Telephony.SalesNumber = "+15550001111"
	cfg.Telephony.SupportNumber = "+15550002222"
	cfg.Telephony.HumanNumber = "+15550003333"
	cfg.Metrics.Enabled = true

	log := logging.New(nil, "silent")
	env := &testEnv{
		store:   store.NewMemory(),
		writer:  store.NewWriter(16, log, store.WithBackoff(time.Millisecond)),
		hooks:   hooks.NewManager(log),
		metrics: metrics.New("test"),
		llm:     &llm.MockClient{},
		clock:   &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
	}
	t.Cleanup(env.writer.Close)

	r := templates.New(templates.DefaultMaxValue, templates.DefaultMaxLength)
	markup := templates.NewMarkup("https://sb.example.com", r)
	machine := ivr.New(markup, r, env.store, ivr.NewDirectory(env.store, cfg.Telephony), log,
		ivr.WithHooks(env.hooks), ivr.WithMetrics(env.metrics), ivr.WithWriteBackoff(time.Millisecond))
	driver := agent.NewDriver(agent.DefaultConfig(), env.llm, env.store, env.writer, r, log,
		agent.WithHooks(env.hooks), agent.WithMetrics(env.metrics))
	limiter := ratelimit.NewMemory(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window(), ratelimit.WithClock(env.clock.Now))

	env.srv = New(cfg, machine, log,
		WithLimiter(limiter),
		WithHooks(env.hooks),
		WithMetrics(env.metrics),
		WithDriver(driver),
		WithClock(env.clock.Now),
	)
	env.ts = httptest.NewServer(env.srv.Handler())
	t.Cleanup(env.ts.Close)
	return env
}

// post sends a provider-signed webhook.
func (e *testEnv) post(t *testing.T, pathAndQuery string, form url.Values) (*http.Response, string) {
	t.Helper()
	target := e.ts.URL + pathAndQuery
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(telephony.SignatureHeader, telephony.Sign(testSecret, target, form))

	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func callForm(sid, from string) url.Values {
	return url.Values{"CallSid": {sid}, "From": {from}, "To": {"+15559870000"}}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestNotFoundEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.post(t, templates.PathFrontDoor, callForm("CA1", "+15551230000"))

	resp, err := http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "test_webhook_requests_total")
	assert.Contains(t, string(body), `state="menu_wait"`)
}

func TestConsentMenuFlowRoutesOnce(t *testing.T) {
	env := newTestEnv(t)
	var routed []hooks.Payload
	var mu sync.Mutex
	env.hooks.On(hooks.EventCallRouted, "test", func(_ context.Context, p hooks.Payload) error {
		mu.Lock()
		routed = append(routed, p)
		mu.Unlock()
		return nil
	})

	resp, body := env.post(t, templates.PathFrontDoor, callForm("CA100", "+15551230000"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, templates.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "Thank you for calling Acme Heating")
	assert.Contains(t, body, "consent to being recorded")
	assert.Contains(t, body, "Press 2 for Support")

	form := callForm("CA100", "+15551230000")
	form.Set("Digits", "2")
	resp, body = env.post(t, templates.PathMenu, form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Connecting you to technical support.")
	assert.Contains(t, body, "+15550002222")

	events, err := env.store.RoutingEvents(context.Background(), "CA100")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.RouteSupport, events[0].Mode)

	env.hooks.Wait()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, routed, 1)
	assert.Equal(t, "CA100", routed[0].String(hooks.KeyCallSid))
}

func TestRateLimitRejectsEleventhRequest(t *testing.T) {
	env := newTestEnv(t)
	from := "+15557654321"

	for i := 1; i <= 10; i++ {
		resp, _ := env.post(t, templates.PathFrontDoor, callForm("CA"+string(rune('A'+i)), from))
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i)
	}

	resp, body := env.post(t, templates.PathFrontDoor, callForm("CAX", from))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, body, "high call volume")
	_, tracked := env.srv.machine.Sessions().Get("CAX")
	assert.False(t, tracked, "a rejected request must not create a session")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RateLimitHits.WithLabelValues(templates.PathFrontDoor)))

	env.clock.Advance(61 * time.Second)
	resp, _ = env.post(t, templates.PathFrontDoor, callForm("CAY", from))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRepeatCallerVoicemailIsStored(t *testing.T) {
	env := newTestEnv(t)
	from := "+15554440000"
	step := func(sid, path string, set map[string]string) {
		t.Helper()
		form := callForm(sid, from)
		for k, v := range set {
			form.Set(k, v)
		}
		resp, body := env.post(t, path, form)
		require.Less(t, resp.StatusCode, 300, "%s %s: %s", sid, path, body)
	}

	// A routed call nobody answers, ending in voicemail.
	step("CAA", templates.PathFrontDoor, nil)
	step("CAA", templates.PathMenu, map[string]string{"Digits": "1"})
	step("CAA", templates.PathStatus, map[string]string{"DialCallStatus": "no-answer"})
	step("CAA", templates.PathVoicemail+"?reason=no_answer", nil)
	step("CAA", templates.PathVoicemail, map[string]string{"RecordingUrl": "https://api.example.com/rec/RE1", "RecordingDuration": "9"})
	step("CAA", templates.PathVoicemail, map[string]string{"TranscriptionText": "please call back"})
	step("CAA", templates.PathStatus, map[string]string{"CallStatus": "completed"})

	// The caller redials inside the same window and leaves another message.
	step("CAB", templates.PathFrontDoor, nil)
	step("CAB", templates.PathMenu, map[string]string{"Digits": "9"})
	step("CAB", templates.PathVoicemail+"?reason=user_request", nil)
	step("CAB", templates.PathVoicemail, map[string]string{"RecordingUrl": "https://api.example.com/rec/RE2", "RecordingDuration": "4"})

	cl, err := env.store.CallLog(context.Background(), "CAB")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/rec/RE2", cl.RecordingURL)
	assert.Zero(t, testutil.ToFloat64(env.metrics.RateLimitHits.WithLabelValues(templates.PathVoicemail)))
}

func TestProviderCallbacksBypassLimiter(t *testing.T) {
	env := newTestEnv(t)
	from := "+15554441111"

	for i := 0; i < 15; i++ {
		form := callForm("CAR", from)
		form.Set("RecordingUrl", "https://api.example.com/rec/RE9")
		resp, _ := env.post(t, templates.PathVoicemail, form)
		require.Equal(t, http.StatusOK, resp.StatusCode, "callback %d", i)
	}

	// The front door budget is untouched by the callbacks.
	resp, _ := env.post(t, templates.PathFrontDoor, callForm("CAS", from))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		sig    string
		reason string
	}{
		{"missing", "", "missing_signature"},
		{"forged", "bm90LWEtc2lnbmF0dXJl", "invalid_signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := callForm("CA1", "+15551230000")
			req, err := http.NewRequest(http.MethodPost, env.ts.URL+templates.PathFrontDoor, strings.NewReader(form.Encode()))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.sig != "" {
				req.Header.Set(telephony.SignatureHeader, tt.sig)
			}
			resp, err := env.ts.Client().Do(req)
			require.NoError(t, err)
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Contains(t, string(body), "technical difficulties")
			assert.NotContains(t, string(body), "signature")
			assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AuthFailures.WithLabelValues(tt.reason)))
		})
	}
	assert.Zero(t, env.srv.machine.Sessions().Len())
}

func TestWebhookSignatureCoversQuery(t *testing.T) {
	env := newTestEnv(t)
	form := callForm("CA1", "+15551230000")
	form.Set("Digits", "7")

	// Signed for retry=0, sent with retry=1.
	target := env.ts.URL + templates.PathMenu + "?retry=0"
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+templates.PathMenu+"?retry=1", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(telephony.SignatureHeader, telephony.Sign(testSecret, target, form))
	resp, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMenuFailureFallsBackToVoicemail(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.post(t, templates.PathMenu, url.Values{"Digits": {"1"}})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body, "reason=error")
}

func TestWebhookPanicIsContained(t *testing.T) {
	env := newTestEnv(t)
	h := env.srv.webhook(templates.PathFrontDoor, func(context.Context, ivr.Params) (ivr.Result, error) {
		panic("boom")
	})

	form := callForm("CA1", "+15551230000")
	target := "http://example.com" + templates.PathFrontDoor
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(telephony.SignatureHeader, telephony.Sign(testSecret, target, form))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestVoicemailCallbackReturnsJSON(t *testing.T) {
	env := newTestEnv(t)
	form := callForm("CA5", "+15551230000")
	form.Set("RecordingUrl", "https://api.example.com/rec/RE1")
	form.Set("RecordingDuration", "12")

	resp, body := env.post(t, templates.PathVoicemail+"?reason=user_request", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"success":true}`, body)

	cl, err := env.store.CallLog(context.Background(), "CA5")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/rec/RE1", cl.RecordingURL)
}
