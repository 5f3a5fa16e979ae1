// Package agent drives the live conversation for a call: it analyzes each
// caller turn, decides the next move, generates or selects a reply and
// keeps the call log current.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/emotion"
	"github.com/soyeahso/switchboard/internal/flow"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/llm"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/metrics"
	"github.com/soyeahso/switchboard/internal/store"
	"github.com/soyeahso/switchboard/internal/templates"
)

// summaryMaxRunes bounds the transcript summary written when a call ends.
const summaryMaxRunes = 1000

// Persister is the write side of the store the driver needs.
type Persister interface {
	SaveEmotionalSnapshot(ctx context.Context, callSid string, ec domain.EmotionalContext) error
	FinalizeCall(ctx context.Context, callSid string, final domain.EmotionalContext, summary string) error
	SaveEscalation(ctx context.Context, rec domain.EscalationRecord) error
}

// Config tunes the driver.
type Config struct {
	Model             string
	MaxTokens         int
	Temperature       *float64
	HistoryTurns      int           // prior turns sent to the model
	GenerationTimeout time.Duration // per-turn deadline for the model
	EscalationTimeout time.Duration // deadline for the synchronous escalation write
	MaxReplyChars     int
	ConfirmMinimum    float64
	Thresholds        flow.Thresholds
	QueueSize         int // inbound messages buffered per call
}

// DefaultConfig returns the driver defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:         300,
		HistoryTurns:      6,
		GenerationTimeout: 8 * time.Second,
		EscalationTimeout: 2 * time.Second,
		MaxReplyChars:     templates.DefaultMaxLength,
		ConfirmMinimum:    0.75,
		Thresholds:        flow.DefaultThresholds(),
		QueueSize:         16,
	}
}

// Driver opens conversation sessions. It holds only shared, read-only
// dependencies; each Session owns its call state.
type Driver struct {
	cfg      Config
	client   llm.Client
	store    Persister
	writer   *store.Writer
	renderer *templates.Renderer
	flow     *flow.Manager
	hooks    *hooks.Manager
	metrics  *metrics.Metrics
	now      func() time.Time
	log      *logging.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithHooks emits escalation_created, booking_confirmed and call_ended on h.
func WithHooks(h *hooks.Manager) Option {
	return func(d *Driver) { d.hooks = h }
}

// WithMetrics records turns, generations and escalations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// NewDriver creates a Driver. Snapshot and summary writes go through w.
func NewDriver(cfg Config, client llm.Client, st Persister, w *store.Writer, r *templates.Renderer, log *logging.Logger, opts ...Option) *Driver {
	def := DefaultConfig()
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = def.GenerationTimeout
	}
	if cfg.EscalationTimeout <= 0 {
		cfg.EscalationTimeout = def.EscalationTimeout
	}
	if cfg.MaxReplyChars <= 0 {
		cfg.MaxReplyChars = def.MaxReplyChars
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Thresholds == (flow.Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	d := &Driver{
		cfg:      cfg,
		client:   client,
		store:    st,
		writer:   w,
		renderer: r,
		flow:     flow.NewManager(cfg.Thresholds),
		now:      time.Now,
		log:      log.Sub("agent"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ErrSessionClosed is returned by Deliver after the session has ended.
var ErrSessionClosed = errors.New("session closed")

// Session is the per-call actor. Messages are handled one at a time in
// arrival order on the session goroutine, which alone touches the call
// state below.
type Session struct {
	d        *Driver
	callSid  string
	business domain.Business
	system   string
	send     Sender
	log      *logging.Logger

	in   chan Inbound
	quit chan struct{}
	done chan struct{}
	stop context.CancelFunc

	closeOnce sync.Once

	// Owned by the session goroutine.
	turns   []domain.TranscriptTurn
	booking domain.BookingProgress
	emotion domain.EmotionalContext
}

// Open starts a session for callSid. It runs until Close is called or ctx
// is cancelled, then flushes the call summary once.
func (d *Driver) Open(ctx context.Context, callSid string, biz domain.Business, send Sender) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		d:        d,
		callSid:  callSid,
		business: biz,
		send:     send,
		log:      d.log.With("callSid", callSid),
		in:       make(chan Inbound, d.cfg.QueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		stop:     cancel,
		emotion:  domain.NeutralContext(),
		system: BuildSystemPrompt(PromptConfig{
			BusinessName: biz.Name,
			HumanNumber:  biz.HumanNumber,
			Profile:      biz.Profile,
			Now:          d.now(),
		}),
	}
	if d.metrics != nil {
		d.metrics.StreamsActive.Inc()
	}
	s.log.Info().Str("business", biz.ID).Msg("conversation started")

	go s.run(ctx)
	return s
}

// Deliver queues an inbound message. It blocks while the queue is full.
func (s *Session) Deliver(msg Inbound) error {
	select {
	case <-s.quit:
		return ErrSessionClosed
	default:
	}
	select {
	case s.in <- msg:
		return nil
	case <-s.quit:
		return ErrSessionClosed
	case <-s.done:
		return ErrSessionClosed
	}
}

// Close ends the session and waits for the final flush. Safe to call more
// than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
}

// Done is closed once the session has flushed and released its state.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.stop()
	defer s.finish()

	for {
		select {
		case msg := <-s.in:
			s.handle(ctx, msg)
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// handle processes one message. Failures are reported to the caller as a
// fixed apology and the session carries on.
func (s *Session) handle(ctx context.Context, msg Inbound) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("type", msg.Type).Msg("message handler panicked")
			s.processingError()
		}
	}()

	err := msg.err
	switch {
	case err != nil:
	case msg.Type == TypeTranscription:
		err = s.transcription(ctx, msg.Transcript)
	case msg.Type == TypeBookingUpdate:
		err = s.bookingUpdate(ctx, msg.Data)
	default:
		s.log.Debug().Str("type", msg.Type).Msg("ignoring message")
	}
	if err != nil {
		s.log.Error().Err(err).Str("type", msg.Type).Msg("message handling failed")
		s.processingError()
	}
}

func (s *Session) processingError() {
	s.emit(Outbound{Type: TypeError, Message: s.render(templates.ProcessingError, nil)})
}

func (s *Session) emit(msg Outbound) {
	if err := s.send.Send(msg); err != nil {
		s.log.Warn().Err(err).Str("type", msg.Type).Msg("send failed")
	}
}

func (s *Session) render(tmpl string, vars templates.Vars) string {
	if vars == nil {
		vars = templates.Vars{}
	}
	if _, ok := vars[templates.KeyBusinessName]; !ok {
		vars[templates.KeyBusinessName] = s.business.Name
	}
	if _, ok := vars[templates.KeyHumanNumber]; !ok {
		vars[templates.KeyHumanNumber] = s.business.HumanNumber
	}
	return s.d.renderer.Render(tmpl, vars)
}

func (s *Session) transcription(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	now := s.d.now()

	ec := emotion.Analyze(text, domain.Texts(s.turns))
	s.emotion = ec
	s.submit("emotional_snapshot", func(ctx context.Context) error {
		return s.d.store.SaveEmotionalSnapshot(ctx, s.callSid, ec)
	})

	s.turns = append(s.turns, domain.TranscriptTurn{Speaker: domain.SpeakerCaller, Text: text, At: now})

	decision := s.d.flow.Decide(text, ec, s.booking)
	if s.d.metrics != nil {
		s.d.metrics.TurnsTotal.WithLabelValues(string(decision.Action)).Inc()
	}
	s.log.Debug().
		Str("action", string(decision.Action)).
		Str("emotion", string(ec.PrimaryEmotion)).
		Int("chars", len(text)).
		Msg("turn analyzed")

	if decision.Action == flow.ActionEscalateImmediate {
		return s.escalate(ctx, text, *decision.Trigger, ec, now)
	}

	reply := s.generate(ctx, text, ec, decision)
	s.turns = append(s.turns, domain.TranscriptTurn{Speaker: domain.SpeakerAssistant, Text: reply, At: s.d.now()})

	booking := s.booking
	s.emit(Outbound{Type: TypeResponse, Text: reply, EmotionalContext: &ec, BookingProgress: &booking})
	return nil
}

// escalate records the escalation before the fixed handoff line is sent.
// If the direct write fails it is queued for retry; the caller is handed
// off either way.
func (s *Session) escalate(ctx context.Context, text string, trig flow.Trigger, ec domain.EmotionalContext, now time.Time) error {
	rec := flow.NewEscalation(s.business.ID, s.callSid, text, trig, ec, now)

	wctx, cancel := context.WithTimeout(ctx, s.d.cfg.EscalationTimeout)
	err := s.d.store.SaveEscalation(wctx, rec)
	cancel()
	if err != nil {
		s.log.Warn().Err(err).Str("escalation", rec.ID).Msg("escalation write failed, queueing retry")
		s.submit("save_escalation", func(ctx context.Context) error {
			return s.d.store.SaveEscalation(ctx, rec)
		})
	}

	s.log.Warn().
		Str("escalation", rec.ID).
		Str("category", trig.Category.String()).
		Str("keyword", trig.Keyword).
		Msg("escalating to human")
	if s.d.metrics != nil {
		s.d.metrics.Escalations.WithLabelValues(trig.Category.String()).Inc()
	}
	if s.d.hooks != nil {
		s.d.hooks.EmitAsync(ctx, hooks.EventEscalationCreated, map[string]any{
			hooks.KeyCallSid:    s.callSid,
			hooks.KeyBusinessID: s.business.ID,
			hooks.KeyEscalation: rec,
		})
	}

	handoff := s.render(templates.EscalationHandoff, nil)
	s.turns = append(s.turns, domain.TranscriptTurn{Speaker: domain.SpeakerAssistant, Text: handoff, At: s.d.now()})
	s.emit(Outbound{Type: TypeResponse, Text: handoff, Action: ActionEscalate, EmotionalContext: &ec})
	return nil
}

// generate asks the model for a reply under the per-turn deadline. Any
// failure yields the fixed fallback line.
func (s *Session) generate(ctx context.Context, text string, ec domain.EmotionalContext, decision flow.Decision) string {
	style := emotion.Adapt(s.business.Profile, ec)

	prior := s.turns[:len(s.turns)-1]
	recent := domain.Texts(prior)
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	req := llm.CompletionRequest{
		Model: s.d.cfg.Model,
		System: s.system + BuildTurnContext(TurnContext{
			Style:    style,
			Emotion:  ec,
			Decision: decision,
			Booking:  s.booking,
			Recent:   recent,
		}),
		Messages:    historyMessages(s.turns, s.d.cfg.HistoryTurns),
		MaxTokens:   s.d.cfg.MaxTokens,
		Temperature: s.d.cfg.Temperature,
	}

	gctx, cancel := context.WithTimeout(ctx, s.d.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.d.client.Complete(gctx, req)
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || gctx.Err() != nil):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	case resp == nil || resp.Content == "":
		outcome = "empty"
	}

	var in, out int
	if resp != nil {
		in, out = resp.Usage.InputTokens, resp.Usage.OutputTokens
	}
	if s.d.metrics != nil {
		s.d.metrics.RecordGeneration(s.d.client.Name(), outcome, elapsed, in, out)
	}

	if outcome != "ok" {
		s.log.Warn().Err(err).Str("outcome", outcome).Dur("duration", elapsed).Msg("generation failed, using fallback")
		return s.render(templates.GenerationFallback, nil)
	}

	s.log.Debug().
		Str("model", resp.Model).
		Int("inputTokens", in).
		Int("outputTokens", out).
		Dur("duration", elapsed).
		Msg("reply generated")

	reply := s.d.renderer.SanitizeReply(Humanize(resp.Content, ec, style), s.d.cfg.MaxReplyChars)
	if reply == "" {
		return s.render(templates.GenerationFallback, nil)
	}
	return reply
}

func (s *Session) bookingUpdate(ctx context.Context, data map[string]any) error {
	if data == nil {
		return fmt.Errorf("booking_update without data")
	}
	s.booking.Merge(data)

	if status, _ := data["status"].(string); status != "confirmed" {
		return nil
	}

	vars := templates.Vars{
		templates.KeyCustomerName:       s.booking.CallerName,
		templates.KeyServiceType:        s.booking.JobSummary,
		templates.KeyCallbackNumber:     s.booking.CallbackNumber,
		templates.KeyAvailabilityWindow: s.booking.PreferredDatetime,
	}

	wasConfirmed := s.booking.Confirmed
	err := s.booking.Confirm(s.d.cfg.ConfirmMinimum, s.d.now())
	if errors.Is(err, domain.ErrBookingIncomplete) {
		s.log.Info().Strs("missing", s.booking.Missing()).Msg("booking confirmation refused")
		s.emit(Outbound{Type: TypeWarning, Message: s.render(templates.BookingFollowUp, vars)})
		return nil
	}
	if err != nil {
		return err
	}
	if wasConfirmed {
		return nil
	}

	booking := s.booking
	s.log.Info().Str("bookingId", booking.BookingID).Msg("booking confirmed")
	if s.d.hooks != nil {
		s.d.hooks.EmitAsync(ctx, hooks.EventBookingConfirmed, map[string]any{
			hooks.KeyCallSid:    s.callSid,
			hooks.KeyBusinessID: s.business.ID,
			hooks.KeyBooking:    booking,
		})
	}
	s.emit(Outbound{Type: TypeResponse, Text: s.render(templates.BookingConfirmed, vars), BookingProgress: &booking})
	return nil
}

// submit queues a write. When the writer is gone or full the write runs
// inline under the escalation deadline so it is not lost silently.
func (s *Session) submit(name string, fn store.WriteFunc) {
	if s.d.writer != nil {
		err := s.d.writer.Submit(name, s.callSid, fn)
		if err == nil {
			return
		}
		s.log.Warn().Err(err).Str("job", name).Msg("write not queued, running inline")
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.d.cfg.EscalationTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("store write dropped")
		if s.d.metrics != nil {
			s.d.metrics.StoreWriteFailures.WithLabelValues(name).Inc()
		}
	}
}

// finish runs exactly once, on the session goroutine, when the stream ends.
func (s *Session) finish() {
	final := s.emotion
	summary := domain.Summarize(s.turns, summaryMaxRunes)
	s.submit("finalize_call", func(ctx context.Context) error {
		return s.d.store.FinalizeCall(ctx, s.callSid, final, summary)
	})

	if s.d.hooks != nil {
		s.d.hooks.EmitAsync(context.Background(), hooks.EventCallEnded, map[string]any{
			hooks.KeyCallSid:    s.callSid,
			hooks.KeyBusinessID: s.business.ID,
		})
	}
	if s.d.metrics != nil {
		s.d.metrics.StreamsActive.Dec()
	}
	s.log.Info().Int("turns", len(s.turns)).Msg("conversation ended")

	s.turns = nil
	s.booking = domain.BookingProgress{}
}

func historyMessages(turns []domain.TranscriptTurn, limit int) []llm.Message {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	// Providers expect the conversation to open with the caller.
	for len(turns) > 0 && turns[0].Speaker != domain.SpeakerCaller {
		turns = turns[1:]
	}
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Speaker == domain.SpeakerAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return msgs
}
