// Package emotion scores caller turns against fixed emotion categories and
// adapts the business persona to the detected emotion.
package emotion

import (
	"strings"

	"github.com/soyeahso/switchboard/internal/domain"
)

// Score weights per match.
const (
	KeywordWeight = 2
	PhraseWeight  = 3
)

// Intensity thresholds on the highest score.
const (
	highAbove     = 3
	moderateAbove = 1
)

// Conversation flow heuristics over the most recent turns.
const (
	flowWindow     = 3
	flowMinTurns   = 2
	flowMinMatches = 2
	shortTurnChars = 20
)

type pattern struct {
	keywords []string
	phrases  []string
}

// Categories lists the scored emotions in tie-break precedence order: when
// two categories share the top score, the earlier one wins.
var Categories = []domain.Emotion{
	domain.EmotionUrgency,
	domain.EmotionFrustration,
	domain.EmotionConcern,
	domain.EmotionConfusion,
	domain.EmotionExcitement,
	domain.EmotionSatisfaction,
}

var patterns = map[domain.Emotion]pattern{
	domain.EmotionUrgency: {
		keywords: []string{"urgent", "emergency", "asap", "right away", "immediately", "quickly", "fast"},
		phrases:  []string{"i need this done now", "this is critical", "time sensitive"},
	},
	domain.EmotionFrustration: {
		keywords: []string{"frustrated", "angry", "upset", "annoyed", "disappointed", "terrible"},
		phrases:  []string{"this is unacceptable", "i'm very upset", "this is ridiculous"},
	},
	domain.EmotionConfusion: {
		keywords: []string{"confused", "unsure", "don't understand", "not clear", "complicated"},
		phrases:  []string{"i'm not sure what you mean", "this is confusing", "can you explain"},
	},
	domain.EmotionExcitement: {
		keywords: []string{"excited", "wonderful", "fantastic", "amazing", "great", "awesome"},
		phrases:  []string{"this is perfect", "i'm so excited", "this sounds great"},
	},
	domain.EmotionConcern: {
		keywords: []string{"worried", "concerned", "anxious", "nervous", "scared"},
		phrases:  []string{"i'm worried about", "is this safe", "will this be okay"},
	},
	domain.EmotionSatisfaction: {
		keywords: []string{"happy", "satisfied", "pleased", "good", "fine", "okay"},
		phrases:  []string{"that sounds good", "i'm happy with that", "that works for me"},
	},
}

// Score returns the per-category score of text. Matching is by substring
// on the lowercased text.
func Score(text string) map[domain.Emotion]int {
	lower := strings.ToLower(text)
	scores := make(map[domain.Emotion]int, len(Categories))
	for _, c := range Categories {
		p := patterns[c]
		score := 0
		for _, k := range p.keywords {
			if strings.Contains(lower, k) {
				score += KeywordWeight
			}
		}
		for _, ph := range p.phrases {
			if strings.Contains(lower, ph) {
				score += PhraseWeight
			}
		}
		scores[c] = score
	}
	return scores
}

// Classify derives primary emotion, intensity and the empathy and urgency
// signals from a score table. All-zero scores yield the neutral emotion.
func Classify(scores map[domain.Emotion]int) domain.EmotionalContext {
	primary := domain.EmotionNeutral
	top := 0
	for _, c := range Categories {
		if s := scores[c]; s > top {
			top = s
			primary = c
		}
	}

	intensity := domain.IntensityLow
	switch {
	case top > highAbove:
		intensity = domain.IntensityHigh
	case top > moderateAbove:
		intensity = domain.IntensityModerate
	}

	return domain.EmotionalContext{
		PrimaryEmotion:   primary,
		Scores:           scores,
		Intensity:        intensity,
		ConversationFlow: domain.FlowNormal,
		NeedsEmpathy: primary == domain.EmotionFrustration ||
			primary == domain.EmotionConcern ||
			primary == domain.EmotionConfusion,
		SuggestsUrgency: primary == domain.EmotionUrgency && intensity == domain.IntensityHigh,
	}
}

// Analyze scores the current turn and labels the conversation flow from the
// last few entries of history, which holds prior turns of both speakers.
func Analyze(text string, history []string) domain.EmotionalContext {
	ctx := Classify(Score(text))
	ctx.ConversationFlow, ctx.AvgResponseLength = Flow(history)
	return ctx
}

// Flow inspects the last three turns. The question check runs first and
// the short-response check may override it.
func Flow(history []string) (domain.ConversationFlow, float64) {
	recent := history
	if len(recent) > flowWindow {
		recent = recent[len(recent)-flowWindow:]
	}

	var avg float64
	if len(recent) > 0 {
		total := 0
		for _, m := range recent {
			total += len(m)
		}
		avg = float64(total) / float64(len(recent))
	}

	flow := domain.FlowNormal
	if len(recent) < flowMinTurns {
		return flow, avg
	}
	questions, short := 0, 0
	for _, m := range recent {
		if strings.Contains(m, "?") {
			questions++
		}
		if len(m) < shortTurnChars {
			short++
		}
	}
	if questions >= flowMinMatches {
		flow = domain.FlowClarificationNeeded
	}
	if short >= flowMinMatches {
		flow = domain.FlowFrustratedOrRushed
	}
	return flow, avg
}
