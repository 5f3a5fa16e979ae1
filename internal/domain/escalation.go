package domain

import "time"

// EscalationType classifies why a human is needed.
type EscalationType string

const (
	EscalationEmergency EscalationType = "emergency"
	EscalationComplex   EscalationType = "complex"
	EscalationTechnical EscalationType = "technical"
	EscalationPolicy    EscalationType = "policy"
)

// Severity of an escalation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// EscalationRecord flags a call for human intervention. It is immutable
// once persisted.
type EscalationRecord struct {
	ID                string           `json:"id"`
	BusinessID        string           `json:"businessId,omitempty"`
	CallSid           string           `json:"callSid"`
	Type              EscalationType   `json:"type"`
	Severity          Severity         `json:"severity"`
	Category          string           `json:"category,omitempty"`
	TriggerReason     string           `json:"triggerReason"`
	TranscriptSnippet string           `json:"transcriptSnippet"`
	Analysis          EmotionalContext `json:"analysis"`
	CreatedAt         time.Time        `json:"createdAt"`
}
