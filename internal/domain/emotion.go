package domain

// Emotion is a detected caller emotion category.
type Emotion string

const (
	EmotionNeutral      Emotion = "neutral"
	EmotionUrgency      Emotion = "urgency"
	EmotionFrustration  Emotion = "frustration"
	EmotionConfusion    Emotion = "confusion"
	EmotionExcitement   Emotion = "excitement"
	EmotionConcern      Emotion = "concern"
	EmotionSatisfaction Emotion = "satisfaction"
)

// Intensity tiers the strongest emotion score.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
)

// ConversationFlow labels the shape of the last few turns.
type ConversationFlow string

const (
	FlowNormal              ConversationFlow = "normal"
	FlowClarificationNeeded ConversationFlow = "clarification_needed"
	FlowFrustratedOrRushed  ConversationFlow = "frustrated_or_rushed"
)

// EmotionalContext is the per-turn emotional signal derived from a transcript.
type EmotionalContext struct {
	PrimaryEmotion    Emotion          `json:"primary_emotion"`
	Scores            map[Emotion]int  `json:"emotion_scores,omitempty"`
	Intensity         Intensity        `json:"intensity"`
	ConversationFlow  ConversationFlow `json:"conversation_flow,omitempty"`
	AvgResponseLength float64          `json:"avg_response_length,omitempty"`
	NeedsEmpathy      bool             `json:"needs_empathy"`
	SuggestsUrgency   bool             `json:"suggests_urgency"`
}

// NeutralContext is the context a call starts with before any turn is analyzed.
func NeutralContext() EmotionalContext {
	return EmotionalContext{
		PrimaryEmotion:   EmotionNeutral,
		Intensity:        IntensityLow,
		ConversationFlow: FlowNormal,
	}
}
