package domain

import "time"

// IVRState is a node in the inbound call menu state machine.
type IVRState string

const (
	StateFrontDoor    IVRState = "front_door"
	StateMenuWait     IVRState = "menu_wait"
	StateRouteSales   IVRState = "route_sales"
	StateRouteSupport IVRState = "route_support"
	StateVoicemail    IVRState = "voicemail"
	StateRepeatMenu   IVRState = "repeat_menu"
	StateInvalidRetry IVRState = "invalid_retry"
)

// Terminal reports whether the call has left the menu for good.
func (s IVRState) Terminal() bool {
	switch s {
	case StateRouteSales, StateRouteSupport, StateVoicemail:
		return true
	}
	return false
}

// CallSession tracks one phone call while it moves through the menu.
type CallSession struct {
	CallSid    string    `json:"callSid"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	BusinessID string    `json:"businessId,omitempty"`
	State      IVRState  `json:"state"`
	RetryCount int       `json:"retryCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RouteMode identifies which team a caller was routed to.
type RouteMode string

const (
	RouteSales   RouteMode = "sales"
	RouteSupport RouteMode = "support"
)

// Call log statuses.
const (
	CallStatusRouting           = "routing"
	CallStatusInProgress        = "in_progress"
	CallStatusVoicemailReceived = "voicemail_received"
	CallStatusCompleted         = "completed"
)

// RoutingEvent is an append-only record of a menu routing decision.
type RoutingEvent struct {
	ID           int64     `json:"id,omitempty"`
	CallSid      string    `json:"callSid"`
	BusinessID   string    `json:"businessId,omitempty"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Mode         RouteMode `json:"mode"`
	Status       string    `json:"status"`
	ConsentGiven bool      `json:"consentGiven"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CallLog is the per-call summary row that routing, voicemail and the
// conversation driver all update.
type CallLog struct {
	CallSid               string            `json:"callSid"`
	BusinessID            string            `json:"businessId,omitempty"`
	From                  string            `json:"from,omitempty"`
	To                    string            `json:"to,omitempty"`
	Mode                  RouteMode         `json:"mode,omitempty"`
	Status                string            `json:"status,omitempty"`
	ConsentGiven          bool              `json:"consentGiven"`
	RecordingURL          string            `json:"recordingUrl,omitempty"`
	DurationSec           int               `json:"durationSec,omitempty"`
	Transcript            string            `json:"transcript,omitempty"`
	EmotionalContext      *EmotionalContext `json:"emotionalContext,omitempty"`
	FinalEmotionalContext *EmotionalContext `json:"finalEmotionalContext,omitempty"`
	ConversationSummary   string            `json:"conversationSummary,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// Voicemail carries the fields of a recording callback.
type Voicemail struct {
	CallSid       string `json:"callSid"`
	From          string `json:"from"`
	Reason        string `json:"reason"`
	RecordingURL  string `json:"recordingUrl"`
	DurationSec   int    `json:"durationSec"`
	Transcription string `json:"transcription,omitempty"`
}
