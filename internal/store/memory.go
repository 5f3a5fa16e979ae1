package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/switchboard/internal/domain"
)

// Memory is an in-process Store. Data is lost on exit.
type Memory struct {
	mu          sync.RWMutex
	calls       map[string]*domain.CallLog
	routing     []domain.RoutingEvent
	escalations []domain.EscalationRecord
	businesses  map[string]domain.Business
	nextID      int64
	now         func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		calls:      make(map[string]*domain.CallLog),
		businesses: make(map[string]domain.Business),
		now:        time.Now,
	}
}

// call returns the call log for callSid, creating it. Caller holds mu.
func (m *Memory) call(callSid string) *domain.CallLog {
	cl, ok := m.calls[callSid]
	if !ok {
		now := m.now()
		cl = &domain.CallLog{CallSid: callSid, CreatedAt: now}
		m.calls[callSid] = cl
	}
	cl.UpdatedAt = m.now()
	return cl
}

func (m *Memory) RecordRouting(_ context.Context, ev domain.RoutingEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = m.now()
	}
	m.nextID++
	ev.ID = m.nextID
	m.routing = append(m.routing, ev)

	cl := m.call(ev.CallSid)
	cl.BusinessID = ev.BusinessID
	cl.From = ev.From
	cl.To = ev.To
	cl.Mode = ev.Mode
	cl.Status = ev.Status
	cl.ConsentGiven = ev.ConsentGiven
	return nil
}

func (m *Memory) SaveVoicemail(_ context.Context, vm domain.Voicemail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl := m.call(vm.CallSid)
	cl.Status = domain.CallStatusVoicemailReceived
	if vm.RecordingURL != "" {
		cl.RecordingURL = vm.RecordingURL
	}
	if vm.DurationSec > 0 {
		cl.DurationSec = vm.DurationSec
	}
	if vm.Transcription != "" {
		cl.Transcript = vm.Transcription
	}
	if vm.From != "" {
		cl.From = vm.From
	}
	return nil
}

func (m *Memory) UpdateCallStatus(_ context.Context, callSid, status string, durationSec int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl := m.call(callSid)
	cl.Status = status
	if durationSec > 0 {
		cl.DurationSec = durationSec
	}
	return nil
}

func (m *Memory) SaveEmotionalSnapshot(_ context.Context, callSid string, ec domain.EmotionalContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.call(callSid).EmotionalContext = cloneContext(ec)
	return nil
}

func (m *Memory) FinalizeCall(_ context.Context, callSid string, final domain.EmotionalContext, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl := m.call(callSid)
	cl.FinalEmotionalContext = cloneContext(final)
	cl.ConversationSummary = summary
	return nil
}

func (m *Memory) SaveEscalation(_ context.Context, rec domain.EscalationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.escalations {
		if e.ID == rec.ID {
			return fmt.Errorf("escalation %s already exists", rec.ID)
		}
	}
	rec.Analysis = *cloneContext(rec.Analysis)
	m.escalations = append(m.escalations, rec)
	return nil
}

func (m *Memory) CallLog(_ context.Context, callSid string) (*domain.CallLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cl, ok := m.calls[callSid]
	if !ok {
		return nil, fmt.Errorf("call %s: %w", callSid, ErrNotFound)
	}
	out := *cl
	return &out, nil
}

func (m *Memory) RoutingEvents(_ context.Context, callSid string) ([]domain.RoutingEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.RoutingEvent
	for _, ev := range m.routing {
		if ev.CallSid == callSid {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *Memory) Escalations(_ context.Context, callSid string, limit int) ([]domain.EscalationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.EscalationRecord
	for i := len(m.escalations) - 1; i >= 0; i-- {
		if callSid == "" || m.escalations[i].CallSid == callSid {
			out = append(out, m.escalations[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SaveBusiness(_ context.Context, b domain.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.businesses[b.ID] = b
	return nil
}

func (m *Memory) Business(_ context.Context, id string) (*domain.Business, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.businesses[id]
	if !ok {
		return nil, fmt.Errorf("business %s: %w", id, ErrNotFound)
	}
	return &b, nil
}

func (m *Memory) Close() error { return nil }

func cloneContext(ec domain.EmotionalContext) *domain.EmotionalContext {
	out := ec
	if ec.Scores != nil {
		out.Scores = make(map[domain.Emotion]int, len(ec.Scores))
		for k, v := range ec.Scores {
			out.Scores[k] = v
		}
	}
	return &out
}
