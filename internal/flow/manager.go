// Package flow decides the next conversational move for a caller turn:
// escalate, empathize, gather details, confirm, or carry on.
package flow

import "github.com/soyeahso/switchboard/internal/domain"

// Action is the conversational move chosen for a turn.
type Action string

const (
	ActionEscalateImmediate    Action = "escalate_immediate"
	ActionProvideEmpathy       Action = "provide_empathy"
	ActionGatherInformation    Action = "gather_information"
	ActionConfirmBooking       Action = "confirm_booking"
	ActionContinueConversation Action = "continue_conversation"
)

// Priority ranks how pressing the action is.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Decision is the outcome of Decide.
type Decision struct {
	Action   Action   `json:"action"`
	Priority Priority `json:"priority"`
	Trigger  *Trigger `json:"-"`
}

// Thresholds on the booking completion ratio.
type Thresholds struct {
	GatherBelow float64
	ConfirmAt   float64
}

// DefaultThresholds gathers below half complete and confirms from three quarters.
func DefaultThresholds() Thresholds {
	return Thresholds{GatherBelow: 0.5, ConfirmAt: 0.75}
}

// Manager applies the decision rules.
type Manager struct {
	th Thresholds
}

// NewManager creates a Manager with the given thresholds.
func NewManager(th Thresholds) *Manager {
	return &Manager{th: th}
}

// Decide evaluates the rules in order and returns the first match. An
// escalation keyword wins over every emotional or booking state.
func (m *Manager) Decide(text string, ctx domain.EmotionalContext, booking domain.BookingProgress) Decision {
	if trig, ok := Detect(text); ok {
		return Decision{Action: ActionEscalateImmediate, Priority: PriorityUrgent, Trigger: &trig}
	}
	if ctx.PrimaryEmotion == domain.EmotionFrustration && ctx.Intensity == domain.IntensityHigh {
		return Decision{Action: ActionProvideEmpathy, Priority: PriorityHigh}
	}
	ratio := booking.CompletionRatio()
	if ratio < m.th.GatherBelow {
		return Decision{Action: ActionGatherInformation, Priority: PriorityMedium}
	}
	if ratio >= m.th.ConfirmAt && !booking.Confirmed {
		return Decision{Action: ActionConfirmBooking, Priority: PriorityMedium}
	}
	return Decision{Action: ActionContinueConversation, Priority: PriorityLow}
}
