// Package store persists call logs, routing events, escalations and
// business profiles. DB is the SQLite implementation; Memory keeps
// everything in process for tests and single-shot runs.
package store

import (
	"context"
	"errors"

	"github.com/soyeahso/switchboard/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the datastore surface used by the IVR, the conversation driver
// and the CLI.
type Store interface {
	// RecordRouting appends a routing event and upserts the call log.
	RecordRouting(ctx context.Context, ev domain.RoutingEvent) error
	// SaveVoicemail attaches a recording to the call log.
	SaveVoicemail(ctx context.Context, vm domain.Voicemail) error
	// UpdateCallStatus sets the provider's call status and duration.
	UpdateCallStatus(ctx context.Context, callSid, status string, durationSec int) error
	// SaveEmotionalSnapshot stores the latest per-turn analysis.
	SaveEmotionalSnapshot(ctx context.Context, callSid string, ec domain.EmotionalContext) error
	// FinalizeCall stores the final analysis and transcript summary.
	FinalizeCall(ctx context.Context, callSid string, final domain.EmotionalContext, summary string) error
	// SaveEscalation persists an escalation record. Records are never updated.
	SaveEscalation(ctx context.Context, rec domain.EscalationRecord) error

	CallLog(ctx context.Context, callSid string) (*domain.CallLog, error)
	RoutingEvents(ctx context.Context, callSid string) ([]domain.RoutingEvent, error)
	// Escalations lists records newest first, optionally for one call.
	Escalations(ctx context.Context, callSid string, limit int) ([]domain.EscalationRecord, error)

	SaveBusiness(ctx context.Context, b domain.Business) error
	Business(ctx context.Context, id string) (*domain.Business, error)

	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)
