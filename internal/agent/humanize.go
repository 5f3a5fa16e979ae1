package agent

import (
	"github.com/soyeahso/switchboard/internal/domain"
	"github.com/soyeahso/switchboard/internal/emotion"
)

// Humanize frames a generated reply for the caller's mood. It is
// deterministic; the same reply and context always read the same.
func Humanize(reply string, ec domain.EmotionalContext, style emotion.Style) string {
	switch ec.PrimaryEmotion {
	case domain.EmotionUrgency:
		if ec.Intensity == domain.IntensityHigh {
			return "I completely understand this needs immediate attention. " + reply
		}
		return "I appreciate you letting me know this is time-sensitive. " + reply
	case domain.EmotionFrustration:
		if style.EmpathyLevel == "high" {
			return "I am truly sorry you are feeling frustrated about this. " + reply + " Is there anything else I can help clarify?"
		}
		return "I apologize for any inconvenience. " + reply
	case domain.EmotionConfusion:
		return "Let me make sure I understand correctly. " + reply + " Does that make sense, or would you like me to explain anything differently?"
	case domain.EmotionExcitement:
		return "That is wonderful to hear! " + reply
	case domain.EmotionConcern:
		return "I want to reassure you. " + reply + " We are here to make this as smooth as possible for you."
	}
	return reply
}
