package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/switchboard/internal/domain"
)

// RecordRouting appends a routing event and upserts the call log in one
// transaction.
func (db *DB) RecordRouting(ctx context.Context, ev domain.RoutingEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	ts := formatTime(ev.CreatedAt)

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin routing: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO routing_events (call_sid, business_id, from_number, to_number, mode, status, consent_given, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.CallSid, ev.BusinessID, ev.From, ev.To, string(ev.Mode), ev.Status, ev.ConsentGiven, ts,
	); err != nil {
		return fmt.Errorf("inserting routing event: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO call_logs (call_sid, business_id, from_number, to_number, mode, status, consent_given, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(call_sid) DO UPDATE SET
		   business_id = excluded.business_id,
		   from_number = excluded.from_number,
		   to_number = excluded.to_number,
		   mode = excluded.mode,
		   status = excluded.status,
		   consent_given = excluded.consent_given,
		   updated_at = excluded.updated_at`,
		ev.CallSid, ev.BusinessID, ev.From, ev.To, string(ev.Mode), ev.Status, ev.ConsentGiven, ts, ts,
	); err != nil {
		return fmt.Errorf("upserting call log: %w", err)
	}

	return tx.Commit()
}

// SaveVoicemail attaches a recording to the call log. Empty fields leave
// stored values untouched, so the later transcription callback only adds
// the transcript.
func (db *DB) SaveVoicemail(ctx context.Context, vm domain.Voicemail) error {
	cols := []column{{"status", domain.CallStatusVoicemailReceived}}
	if vm.RecordingURL != "" {
		cols = append(cols, column{"recording_url", vm.RecordingURL})
	}
	if vm.DurationSec > 0 {
		cols = append(cols, column{"duration_sec", vm.DurationSec})
	}
	if vm.Transcription != "" {
		cols = append(cols, column{"transcript", vm.Transcription})
	}
	if vm.From != "" {
		cols = append(cols, column{"from_number", vm.From})
	}
	return db.upsertCall(ctx, vm.CallSid, cols...)
}

// UpdateCallStatus sets the provider's call status. A zero duration leaves
// the stored one untouched.
func (db *DB) UpdateCallStatus(ctx context.Context, callSid, status string, durationSec int) error {
	cols := []column{{"status", status}}
	if durationSec > 0 {
		cols = append(cols, column{"duration_sec", durationSec})
	}
	return db.upsertCall(ctx, callSid, cols...)
}

// SaveEmotionalSnapshot stores the latest per-turn analysis.
func (db *DB) SaveEmotionalSnapshot(ctx context.Context, callSid string, ec domain.EmotionalContext) error {
	data, err := json.Marshal(ec)
	if err != nil {
		return fmt.Errorf("encoding emotional context: %w", err)
	}
	return db.upsertCall(ctx, callSid, column{"emotional_context", string(data)})
}

// FinalizeCall stores the final analysis and transcript summary.
func (db *DB) FinalizeCall(ctx context.Context, callSid string, final domain.EmotionalContext, summary string) error {
	data, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("encoding emotional context: %w", err)
	}
	return db.upsertCall(ctx, callSid,
		column{"final_emotional_context", string(data)},
		column{"conversation_summary", summary},
	)
}

// CallLog returns the call log for a call, or ErrNotFound.
func (db *DB) CallLog(ctx context.Context, callSid string) (*domain.CallLog, error) {
	var (
		cl              domain.CallLog
		mode            string
		ec, final       sql.NullString
		created, update string
	)
	err := db.sql.QueryRowContext(ctx,
		`SELECT call_sid, business_id, from_number, to_number, mode, status, consent_given,
		        recording_url, duration_sec, transcript, emotional_context, final_emotional_context,
		        conversation_summary, created_at, updated_at
		 FROM call_logs WHERE call_sid = ?`, callSid,
	).Scan(
		&cl.CallSid, &cl.BusinessID, &cl.From, &cl.To, &mode, &cl.Status, &cl.ConsentGiven,
		&cl.RecordingURL, &cl.DurationSec, &cl.Transcript, &ec, &final,
		&cl.ConversationSummary, &created, &update,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("call %s: %w", callSid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading call %s: %w", callSid, err)
	}

	cl.Mode = domain.RouteMode(mode)
	cl.CreatedAt = parseTime(created)
	cl.UpdatedAt = parseTime(update)
	if cl.EmotionalContext, err = decodeContext(ec); err != nil {
		return nil, err
	}
	if cl.FinalEmotionalContext, err = decodeContext(final); err != nil {
		return nil, err
	}
	return &cl, nil
}

// RoutingEvents returns the routing events for a call in insertion order.
func (db *DB) RoutingEvents(ctx context.Context, callSid string) ([]domain.RoutingEvent, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT id, call_sid, business_id, from_number, to_number, mode, status, consent_given, created_at
		 FROM routing_events WHERE call_sid = ? ORDER BY id`, callSid,
	)
	if err != nil {
		return nil, fmt.Errorf("listing routing events: %w", err)
	}
	defer rows.Close()

	var out []domain.RoutingEvent
	for rows.Next() {
		var (
			ev      domain.RoutingEvent
			mode    string
			created string
		)
		if err := rows.Scan(&ev.ID, &ev.CallSid, &ev.BusinessID, &ev.From, &ev.To, &mode, &ev.Status, &ev.ConsentGiven, &created); err != nil {
			return nil, fmt.Errorf("scanning routing event: %w", err)
		}
		ev.Mode = domain.RouteMode(mode)
		ev.CreatedAt = parseTime(created)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func decodeContext(ns sql.NullString) (*domain.EmotionalContext, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var ec domain.EmotionalContext
	if err := json.Unmarshal([]byte(ns.String), &ec); err != nil {
		return nil, fmt.Errorf("decoding emotional context: %w", err)
	}
	return &ec, nil
}
