package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/emotion"
	"github.com/soyeahso/switchboard/internal/flow"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	BusinessName string
	HumanNumber  string
	Profile      domain.PersonalityProfile
	Now          time.Time
}

// BuildSystemPrompt constructs the per-call system prompt. It is built once
// when the stream opens; the per-turn block is appended by BuildTurnContext.
func BuildSystemPrompt(cfg PromptConfig) string {
	p := cfg.Profile.WithDefaults()
	var b strings.Builder

	fmt.Fprintf(&b, "You are the phone receptionist for %s. You are speaking on a live call; your words are read aloud.\n\n", cfg.BusinessName)

	b.WriteString("Personality:\n")
	fmt.Fprintf(&b, "- Tone: %s with genuine warmth\n", p.ToneStyle)
	fmt.Fprintf(&b, "- Empathy level: %s\n", p.EmpathyLevel)
	fmt.Fprintf(&b, "- Communication: %s\n", p.CommunicationStyle)
	fmt.Fprintf(&b, "- Patience: %s\n", p.PatienceLevel)
	if !p.InterruptionAllowed {
		b.WriteString("- Never interrupt; wait for the caller to finish.\n")
	}

	switch p.ToneStyle {
	case "professional":
		b.WriteString("- Professional yet approachable.\n")
	case "friendly":
		b.WriteString("- Warm and conversational.\n")
	case "empathetic":
		b.WriteString("- Highly attuned to emotions.\n")
	case "casual":
		b.WriteString("- Relaxed, natural speech.\n")
	}
	switch p.EmpathyLevel {
	case "high":
		b.WriteString("High empathy: always acknowledge feelings before addressing needs.\n")
	case "moderate":
		b.WriteString("Moderate empathy: show understanding without over-dramatizing.\n")
	}

	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Keep replies to one or two short sentences. No lists, no markup.\n")
	b.WriteString("- Ask for one missing detail at a time and read details back to confirm.\n")
	b.WriteString("- Never give medical, legal or financial advice.\n")

	b.WriteString("\nBooking fields to capture:\n")
	fmt.Fprintf(&b, "- %s: ask warmly for their name\n", domain.FieldCallerName)
	fmt.Fprintf(&b, "- %s: confirm digit by digit\n", domain.FieldCallbackNumber)
	fmt.Fprintf(&b, "- %s: spell it back\n", domain.FieldEmail)
	fmt.Fprintf(&b, "- %s: listen fully, acknowledge complexity\n", domain.FieldJobSummary)
	fmt.Fprintf(&b, "- %s: be flexible\n", domain.FieldPreferredDatetime)

	b.WriteString("\nHand the call to a human for medical emergencies, legal matters, financial advice requests, threats, or system failures.\n")

	b.WriteString("\nContext:\n")
	fmt.Fprintf(&b, "Business: %s\n", cfg.BusinessName)
	fmt.Fprintf(&b, "Human contact: %s\n", cfg.HumanNumber)
	fmt.Fprintf(&b, "Current time: %s\n", cfg.Now.Format(time.RFC3339))

	return b.String()
}

// TurnContext is the state appended to the system prompt for one turn.
type TurnContext struct {
	Style    emotion.Style
	Emotion  domain.EmotionalContext
	Decision flow.Decision
	Booking  domain.BookingProgress
	Recent   []string // last few turns, oldest first
}

// BuildTurnContext renders the per-turn block.
func BuildTurnContext(tc TurnContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\nCaller mood: %s (%s intensity, %s)\n",
		tc.Emotion.PrimaryEmotion, tc.Emotion.Intensity, tc.Emotion.ConversationFlow)
	fmt.Fprintf(&b, "Respond in a %s tone.\n", strings.ReplaceAll(tc.Style.Tone, "_", " "))
	if tc.Emotion.NeedsEmpathy {
		b.WriteString("Acknowledge how the caller feels first.\n")
	}

	switch tc.Decision.Action {
	case flow.ActionProvideEmpathy:
		b.WriteString("Next step: calm the caller down before anything else.\n")
	case flow.ActionGatherInformation:
		fmt.Fprintf(&b, "Next step: ask for the missing details (%s).\n", strings.Join(tc.Booking.Missing(), ", "))
	case flow.ActionConfirmBooking:
		b.WriteString("Next step: read the booking details back and ask the caller to confirm.\n")
	default:
		b.WriteString("Next step: continue the conversation naturally.\n")
	}

	if len(tc.Recent) > 0 {
		fmt.Fprintf(&b, "Recent turns: %s\n", strings.Join(tc.Recent, " | "))
	}
	if data, err := json.Marshal(tc.Booking); err == nil {
		fmt.Fprintf(&b, "Booking progress: %s\n", data)
	}
	return b.String()
}
