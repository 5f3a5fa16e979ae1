package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soyeahso/switchboard/internal/domain"
)

// SaveEscalation persists an escalation record. A duplicate id is an error;
// records are immutable.
func (db *DB) SaveEscalation(ctx context.Context, rec domain.EscalationRecord) error {
	analysis, err := json.Marshal(rec.Analysis)
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}
	_, err = db.sql.ExecContext(ctx,
		`INSERT INTO escalations (id, business_id, call_sid, type, severity, category, trigger_reason, transcript_snippet, analysis, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.BusinessID, rec.CallSid, string(rec.Type), string(rec.Severity), rec.Category,
		rec.TriggerReason, rec.TranscriptSnippet, string(analysis), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting escalation %s: %w", rec.ID, err)
	}
	return nil
}

// Escalations lists records newest first. An empty callSid lists all calls;
// limit <= 0 means no limit.
func (db *DB) Escalations(ctx context.Context, callSid string, limit int) ([]domain.EscalationRecord, error) {
	q := `SELECT id, business_id, call_sid, type, severity, category, trigger_reason, transcript_snippet, analysis, created_at
	      FROM escalations`
	var args []any
	if callSid != "" {
		q += ` WHERE call_sid = ?`
		args = append(args, callSid)
	}
	q += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing escalations: %w", err)
	}
	defer rows.Close()

	var out []domain.EscalationRecord
	for rows.Next() {
		var (
			rec            domain.EscalationRecord
			kind, severity string
			analysis       string
			created        string
		)
		if err := rows.Scan(&rec.ID, &rec.BusinessID, &rec.CallSid, &kind, &severity, &rec.Category,
			&rec.TriggerReason, &rec.TranscriptSnippet, &analysis, &created); err != nil {
			return nil, fmt.Errorf("scanning escalation: %w", err)
		}
		rec.Type = domain.EscalationType(kind)
		rec.Severity = domain.Severity(severity)
		rec.CreatedAt = parseTime(created)
		if err := json.Unmarshal([]byte(analysis), &rec.Analysis); err != nil {
			return nil, fmt.Errorf("decoding analysis for %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
