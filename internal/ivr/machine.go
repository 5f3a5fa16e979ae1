// Package ivr implements the inbound call menu: the consent front door, the
// digit menu, voicemail and the dial status callback.
package ivr

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/metrics"
	"github.com/soyeahso/switchboard/internal/templates"
)

// DefaultMaxRetries is how many invalid menu inputs are re-prompted before
// the caller is sent to voicemail.
const DefaultMaxRetries = 1

// Recorder is the write side of the store the menu needs.
type Recorder interface {
	RecordRouting(ctx context.Context, ev domain.RoutingEvent) error
	SaveVoicemail(ctx context.Context, vm domain.Voicemail) error
	UpdateCallStatus(ctx context.Context, callSid, status string, durationSec int) error
}

// ErrMissingCallSid is returned for webhooks without a call identifier.
var ErrMissingCallSid = errors.New("missing CallSid")

// Result is a webhook response.
type Result struct {
	Status      int
	Body        string
	ContentType string
	State       domain.IVRState
}

// Machine drives calls through the menu. It is safe for concurrent use;
// per-call state lives in Sessions.
type Machine struct {
	markup     *templates.Markup
	renderer   *templates.Renderer
	recorder   Recorder
	dir        *Directory
	sessions   *Sessions
	hooks      *hooks.Manager
	metrics    *metrics.Metrics
	maxRetries int
	backoff    time.Duration
	log        *logging.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithHooks emits call_routed and voicemail_received on h.
func WithHooks(h *hooks.Manager) Option {
	return func(m *Machine) { m.hooks = h }
}

// WithMetrics counts state transitions.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Machine) { m.metrics = mt }
}

// WithSessions shares a session table, e.g. one swept by the scheduler.
func WithSessions(s *Sessions) Option {
	return func(m *Machine) { m.sessions = s }
}

// WithMaxRetries sets how many invalid inputs are re-prompted.
func WithMaxRetries(n int) Option {
	return func(m *Machine) {
		if n >= 0 {
			m.maxRetries = n
		}
	}
}

// WithWriteBackoff sets the pause before a failed write is retried.
func WithWriteBackoff(d time.Duration) Option {
	return func(m *Machine) { m.backoff = d }
}

// New creates a Machine.
func New(markup *templates.Markup, renderer *templates.Renderer, rec Recorder, dir *Directory, log *logging.Logger, opts ...Option) *Machine {
	m := &Machine{
		markup:     markup,
		renderer:   renderer,
		recorder:   rec,
		dir:        dir,
		sessions:   NewSessions(),
		maxRetries: DefaultMaxRetries,
		backoff:    100 * time.Millisecond,
		log:        log.Sub("ivr"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Sessions returns the session table.
func (m *Machine) Sessions() *Sessions { return m.sessions }

// Directory returns the business directory.
func (m *Machine) Directory() *Directory { return m.dir }

// Markup returns the markup builder.
func (m *Machine) Markup() *templates.Markup { return m.markup }

func (m *Machine) xml(state domain.IVRState, body string) Result {
	if m.metrics != nil && state != "" {
		m.metrics.IVRTransitions.WithLabelValues(string(state)).Inc()
	}
	return Result{Status: http.StatusOK, Body: body, ContentType: templates.ContentType, State: state}
}

// Failure is the safe response for an unexpected error on path. It never
// carries diagnostics.
func (m *Machine) Failure(path string) Result {
	body := m.markup.Error()
	switch path {
	case templates.PathMenu:
		body = m.markup.MenuError()
	case templates.PathVoicemail:
		body = m.markup.VoicemailFailed()
	}
	return Result{Status: http.StatusInternalServerError, Body: body, ContentType: templates.ContentType}
}

// RateLimited is the response for a request rejected by the limiter.
func (m *Machine) RateLimited() Result {
	return Result{Status: http.StatusTooManyRequests, Body: m.markup.RateLimited(), ContentType: templates.ContentType}
}

// FrontDoor answers a new call with the consent disclosure and the menu,
// or the menu alone when looping back from a repeat.
func (m *Machine) FrontDoor(ctx context.Context, p Params) (Result, error) {
	if p.CallSid == "" {
		return Result{}, ErrMissingCallSid
	}
	log := m.log.With("callSid", p.CallSid)

	bizID := p.BusinessID
	if bizID == "" {
		if sess, ok := m.sessions.Get(p.CallSid); ok {
			bizID = sess.BusinessID
		}
	}
	biz, err := m.dir.Lookup(ctx, bizID)
	if err != nil {
		return Result{}, err
	}

	m.sessions.Update(p.CallSid, func(s *domain.CallSession) {
		if p.From != "" {
			s.From = p.From
		}
		if p.To != "" {
			s.To = p.To
		}
		s.BusinessID = biz.ID
		s.State = domain.StateMenuWait
		if !p.SkipConsent {
			s.RetryCount = 0
		}
	})

	if p.SkipConsent {
		log.Debug().Msg("menu repeated")
		return m.xml(domain.StateMenuWait, m.markup.MenuOnly()), nil
	}
	log.Info().Str("business", biz.ID).Msg("call answered")
	return m.xml(domain.StateMenuWait, m.markup.ConsentMenu(biz.Name)), nil
}

// Menu handles one menu selection.
func (m *Machine) Menu(ctx context.Context, p Params) (Result, error) {
	if p.CallSid == "" {
		return Result{}, ErrMissingCallSid
	}
	log := m.log.With("callSid", p.CallSid)

	sess, _ := m.sessions.Get(p.CallSid)
	retry := max(sess.RetryCount, p.Retry)
	bizID := sess.BusinessID
	if bizID == "" {
		bizID = p.BusinessID
	}

	log.Debug().Str("digits", p.Digits).Int("retry", retry).Msg("menu input")

	switch p.Digits {
	case "1":
		return m.route(ctx, p, bizID, domain.RouteSales)
	case "2":
		return m.route(ctx, p, bizID, domain.RouteSupport)
	case "9":
		m.setState(p.CallSid, domain.StateVoicemail, 0)
		return m.xml(domain.StateVoicemail, m.markup.RedirectVoicemail(templates.ReasonUserRequest)), nil
	case "*":
		m.setState(p.CallSid, domain.StateRepeatMenu, 0)
		return m.xml(domain.StateRepeatMenu, m.markup.RepeatMenu()), nil
	}

	if retry >= m.maxRetries {
		log.Info().Int("retry", retry).Msg("menu retries exhausted")
		m.setState(p.CallSid, domain.StateVoicemail, retry)
		return m.xml(domain.StateVoicemail, m.markup.TimeoutVoicemail()), nil
	}
	m.setState(p.CallSid, domain.StateInvalidRetry, retry+1)
	return m.xml(domain.StateInvalidRetry, m.markup.InvalidRetry(retry+1)), nil
}

func (m *Machine) setState(callSid string, state domain.IVRState, retry int) {
	m.sessions.Update(callSid, func(s *domain.CallSession) {
		s.State = state
		s.RetryCount = retry
	})
}

func (m *Machine) route(ctx context.Context, p Params, bizID string, mode domain.RouteMode) (Result, error) {
	biz, err := m.dir.Lookup(ctx, bizID)
	if err != nil {
		return Result{}, err
	}

	state, number, announcement := domain.StateRouteSales, biz.SalesNumber, templates.MenuSales
	if mode == domain.RouteSupport {
		state, number, announcement = domain.StateRouteSupport, biz.SupportNumber, templates.MenuSupport
	}

	sess := m.sessions.Update(p.CallSid, func(s *domain.CallSession) {
		s.State = state
		s.RetryCount = 0
		if p.From != "" {
			s.From = p.From
		}
		if p.To != "" {
			s.To = p.To
		}
	})

	ev := domain.RoutingEvent{
		CallSid:      p.CallSid,
		BusinessID:   biz.ID,
		From:         sess.From,
		To:           sess.To,
		Mode:         mode,
		Status:       domain.CallStatusRouting,
		ConsentGiven: true,
	}
	m.write(ctx, "record_routing", p.CallSid, func(ctx context.Context) error {
		return m.recorder.RecordRouting(ctx, ev)
	})

	if m.hooks != nil {
		m.hooks.EmitAsync(ctx, hooks.EventCallRouted, map[string]any{
			hooks.KeyCallSid:    p.CallSid,
			hooks.KeyBusinessID: biz.ID,
			hooks.KeyMode:       string(mode),
		})
	}

	m.log.Info().Str("callSid", p.CallSid).Str("mode", string(mode)).Msg("call routed")
	text := m.renderer.Render(announcement, templates.Vars{templates.KeyBusinessName: biz.Name})
	return m.xml(state, m.markup.Route(text, number)), nil
}

// Voicemail prompts for a message, or stores one when the provider posts
// the recording or its transcription back.
func (m *Machine) Voicemail(ctx context.Context, p Params) (Result, error) {
	if p.CallSid == "" {
		return Result{}, ErrMissingCallSid
	}
	log := m.log.With("callSid", p.CallSid)

	if p.RecordingURL == "" && p.TranscriptionText == "" {
		reason := p.Reason
		if reason == "" {
			reason = "unknown"
		}
		log.Info().Str("reason", reason).Msg("voicemail prompt")
		m.setState(p.CallSid, domain.StateVoicemail, 0)
		return m.xml(domain.StateVoicemail, m.markup.VoicemailRecord()), nil
	}

	vm := domain.Voicemail{
		CallSid:       p.CallSid,
		From:          p.From,
		Reason:        p.Reason,
		RecordingURL:  p.RecordingURL,
		DurationSec:   p.RecordingDuration,
		Transcription: p.TranscriptionText,
	}
	m.write(ctx, "save_voicemail", p.CallSid, func(ctx context.Context) error {
		return m.recorder.SaveVoicemail(ctx, vm)
	})

	if p.TranscriptionText == "" {
		log.Info().Int("duration", p.RecordingDuration).Msg("voicemail received")
		if m.hooks != nil {
			m.hooks.EmitAsync(ctx, hooks.EventVoicemailReceived, map[string]any{
				hooks.KeyCallSid: p.CallSid,
				hooks.KeyReason:  p.Reason,
			})
		}
	} else {
		log.Debug().Int("chars", len(p.TranscriptionText)).Msg("voicemail transcribed")
	}
	m.sessions.End(p.CallSid)

	return Result{
		Status:      http.StatusOK,
		Body:        `{"success":true}`,
		ContentType: "application/json",
		State:       domain.StateVoicemail,
	}, nil
}

// Status handles the dial action and call status callbacks. An unanswered
// dial falls through to voicemail; anything else is acknowledged.
func (m *Machine) Status(ctx context.Context, p Params) (Result, error) {
	if p.CallSid == "" {
		return Result{}, ErrMissingCallSid
	}

	if p.DialCallStatus != "" && !dialConnected(p.DialCallStatus) {
		m.log.Info().Str("callSid", p.CallSid).Str("dialStatus", p.DialCallStatus).Msg("dial not answered")
		m.setState(p.CallSid, domain.StateVoicemail, 0)
		return m.xml(domain.StateVoicemail, m.markup.RedirectVoicemail(templates.ReasonNoAnswer)), nil
	}

	status := p.DialCallStatus
	if status == "" {
		status = p.CallStatus
	}
	if status != "" {
		duration := p.CallDuration
		m.write(ctx, "update_status", p.CallSid, func(ctx context.Context) error {
			return m.recorder.UpdateCallStatus(ctx, p.CallSid, status, duration)
		})
	}
	if status == "completed" {
		m.sessions.End(p.CallSid)
	}
	return Result{Status: http.StatusOK, Body: m.markup.Empty(), ContentType: templates.ContentType}, nil
}

func dialConnected(status string) bool {
	return status == "completed" || status == "answered"
}

// write runs a store write, retrying once. Failures are logged and never
// reach the caller.
func (m *Machine) write(ctx context.Context, name, callSid string, fn func(context.Context) error) {
	err := fn(ctx)
	if err == nil {
		return
	}
	m.log.Warn().Err(err).Str("job", name).Str("callSid", callSid).Msg("store write failed, retrying")

	select {
	case <-ctx.Done():
	case <-time.After(m.backoff):
	}
	if err = fn(context.WithoutCancel(ctx)); err != nil {
		m.log.Error().Err(err).Str("job", name).Str("callSid", callSid).Msg("store write dropped")
		if m.metrics != nil {
			m.metrics.StoreWriteFailures.WithLabelValues(name).Inc()
		}
	}
}
