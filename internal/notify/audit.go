package notify

import (
	"context"

	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/hooks"
	"github.com/soyeahso/switchboard/internal/logging"
	"github.com/soyeahso/switchboard/internal/plugin"
)

// auditEvents are the call events written to the audit log.
var auditEvents = []string{
	hooks.EventCallRouted,
	hooks.EventVoicemailReceived,
	hooks.EventEscalationCreated,
	hooks.EventBookingConfirmed,
	hooks.EventStreamOpened,
	hooks.EventCallEnded,
}

// Audit writes one structured log line per call event.
type Audit struct {
	log   *logging.Logger
	hooks *hooks.Manager
}

var _ plugin.Plugin = (*Audit)(nil)

// NewAudit creates the audit trail plugin.
func NewAudit() *Audit { return &Audit{} }

func (a *Audit) ID() string   { return "audit" }
func (a *Audit) Name() string { return "Call event audit log" }

func (a *Audit) Init(_ context.Context, api plugin.API) error {
	a.log = api.Log
	a.hooks = api.Hooks
	for _, ev := range auditEvents {
		api.Hooks.On(ev, "audit", a.record)
	}
	return nil
}

func (a *Audit) Close() error {
	if a.hooks != nil {
		for _, ev := range auditEvents {
			a.hooks.Off(ev, "audit")
		}
	}
	return nil
}

func (a *Audit) record(_ context.Context, p hooks.Payload) error {
	e := a.log.Info().
		Str("event", p.Event).
		Str("callSid", p.String(hooks.KeyCallSid)).
		Str("business", p.String(hooks.KeyBusinessID))
	if mode := p.String(hooks.KeyMode); mode != "" {
		e = e.Str("mode", mode)
	}
	if reason := p.String(hooks.KeyReason); reason != "" {
		e = e.Str("reason", reason)
	}
	if rec, ok := p.Data[hooks.KeyEscalation].(domain.EscalationRecord); ok {
		e = e.Str("escalation", rec.ID).Str("severity", string(rec.Severity))
	}
	e.Msg("call event")
	return nil
}
