package emotion

import "github.com/soyeahso/switchboard/internal/domain"

// Tones produced by Adapt.
const (
	ToneCalmProfessional     = "calm_professional"
	ToneHighlyEmpathetic     = "highly_empathetic"
	ToneEmpatheticSupportive = "empathetic_supportive"
	TonePatientClear         = "patient_clear"
	ToneEnthusiasticWarm     = "enthusiastic_warm"
	ToneReassuringConfident  = "reassuring_confident"
)

// Style is the effective persona for one reply.
type Style struct {
	Tone                string `json:"tone"`
	EmpathyLevel        string `json:"empathy_level"`
	CommunicationStyle  string `json:"communication_style"`
	InterruptionAllowed bool   `json:"interruption_allowed"`
	PatienceLevel       string `json:"patience_level"`
}

// Adapt starts from the profile and overrides only the tone according to
// the primary emotion. Satisfaction and neutral keep the base tone.
func Adapt(profile domain.PersonalityProfile, ctx domain.EmotionalContext) Style {
	p := profile.WithDefaults()
	s := Style{
		Tone:                p.ToneStyle,
		EmpathyLevel:        p.EmpathyLevel,
		CommunicationStyle:  p.CommunicationStyle,
		InterruptionAllowed: p.InterruptionAllowed,
		PatienceLevel:       p.PatienceLevel,
	}

	switch ctx.PrimaryEmotion {
	case domain.EmotionUrgency:
		s.Tone = ToneCalmProfessional
	case domain.EmotionFrustration:
		if p.EmpathyLevel == "high" {
			s.Tone = ToneHighlyEmpathetic
		} else {
			s.Tone = ToneEmpatheticSupportive
		}
	case domain.EmotionConfusion:
		s.Tone = TonePatientClear
	case domain.EmotionExcitement:
		s.Tone = ToneEnthusiasticWarm
	case domain.EmotionConcern:
		s.Tone = ToneReassuringConfident
	case domain.EmotionSatisfaction, domain.EmotionNeutral:
	}
	return s
}
