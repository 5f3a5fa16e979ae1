package agent

import "github.com/soyeahso/switchboard/internal/domain"

// Stream message types.
const (
	TypeTranscription = "transcription"
	TypeBookingUpdate = "booking_update"
	TypeResponse      = "response"
	TypeWarning       = "warning"
	TypeError         = "error"
)

// ActionEscalate marks a response that hands the call to a human.
const ActionEscalate = "escalate"

// Inbound is a message from the transport.
type Inbound struct {
	Type       string         `json:"type"`
	Transcript string         `json:"transcript,omitempty"`
	Data       map[string]any `json:"data,omitempty"`

	err error
}

// Malformed wraps a frame the transport could not decode. Delivering it
// reports a processing error in order with the surrounding messages.
func Malformed(err error) Inbound {
	return Inbound{err: err}
}

// Outbound is a message to the transport.
type Outbound struct {
	Type             string                   `json:"type"`
	Text             string                   `json:"text,omitempty"`
	Message          string                   `json:"message,omitempty"`
	Action           string                   `json:"action,omitempty"`
	EmotionalContext *domain.EmotionalContext `json:"emotional_context,omitempty"`
	BookingProgress  *domain.BookingProgress  `json:"booking_progress,omitempty"`
}

// Sender delivers outbound messages for one call. Implementations must be
// safe to call from the session goroutine.
type Sender interface {
	Send(msg Outbound) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msg Outbound) error

// Send calls f.
func (f SenderFunc) Send(msg Outbound) error { return f(msg) }
