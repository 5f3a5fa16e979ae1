package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/switchboard/internal/domain"
)

// Category is a class of topic that always needs a human.
type Category int

const (
	CategoryMedical Category = iota
	CategoryLegal
	CategoryFinancial
	CategoryThreat
)

// categories is the detection order.
var categories = []Category{CategoryMedical, CategoryLegal, CategoryFinancial, CategoryThreat}

type categoryInfo struct {
	name     string
	kind     domain.EscalationType
	keywords []string
}

var categoryTable = map[Category]categoryInfo{
	CategoryMedical: {
		name:     "medical",
		kind:     domain.EscalationEmergency,
		keywords: []string{"medical", "doctor", "emergency", "hospital", "health"},
	},
	CategoryLegal: {
		name:     "legal",
		kind:     domain.EscalationPolicy,
		keywords: []string{"lawsuit", "legal action", "lawyer", "court"},
	},
	CategoryFinancial: {
		name:     "financial_advice",
		kind:     domain.EscalationPolicy,
		keywords: []string{"financial advice", "investment", "money management"},
	},
	CategoryThreat: {
		name:     "threat",
		kind:     domain.EscalationEmergency,
		keywords: []string{"threat", "abuse", "harassment"},
	},
}

func (c Category) String() string {
	if info, ok := categoryTable[c]; ok {
		return info.name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// EscalationType maps the category to the record type stored for review.
func (c Category) EscalationType() domain.EscalationType {
	if info, ok := categoryTable[c]; ok {
		return info.kind
	}
	return domain.EscalationComplex
}

// Trigger is the first escalation keyword found in a turn.
type Trigger struct {
	Category Category
	Keyword  string
}

// Detect looks for an escalation keyword in text, case-insensitively.
func Detect(text string) (Trigger, bool) {
	lower := strings.ToLower(text)
	for _, c := range categories {
		for _, k := range categoryTable[c].keywords {
			if strings.Contains(lower, k) {
				return Trigger{Category: c, Keyword: k}, true
			}
		}
	}
	return Trigger{}, false
}

// NewEscalation builds the record for a triggered turn.
func NewEscalation(businessID, callSid, text string, trig Trigger, ctx domain.EmotionalContext, now time.Time) domain.EscalationRecord {
	return domain.EscalationRecord{
		ID:                uuid.NewString(),
		BusinessID:        businessID,
		CallSid:           callSid,
		Type:              trig.Category.EscalationType(),
		Severity:          domain.SeverityHigh,
		Category:          trig.Category.String(),
		TriggerReason:     fmt.Sprintf("detected %s escalation keyword %q", trig.Category, trig.Keyword),
		TranscriptSnippet: text,
		Analysis:          ctx,
		CreatedAt:         now,
	}
}
