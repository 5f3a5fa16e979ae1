package flow

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/switchboard/internal/domain"
)

func nearlyComplete() domain.BookingProgress {
	return domain.BookingProgress{CallerName: "Dana", CallbackNumber: "+15550001111", Email: "d@example.com"}
}

func TestDecideEscalationOverridesEverything(t *testing.T) {
	m := NewManager(DefaultThresholds())
	low := domain.EmotionalContext{PrimaryEmotion: domain.EmotionSatisfaction, Intensity: domain.IntensityLow}

	d := m.Decide("this is a medical emergency", low, nearlyComplete())
	assert.Equal(t, ActionEscalateImmediate, d.Action)
	assert.Equal(t, PriorityUrgent, d.Priority)
	require.NotNil(t, d.Trigger)
	assert.Equal(t, CategoryMedical, d.Trigger.Category)
	assert.Equal(t, "medical", d.Trigger.Keyword)

	high := domain.EmotionalContext{PrimaryEmotion: domain.EmotionFrustration, Intensity: domain.IntensityHigh}
	d = m.Decide("I'm calling my LAWYER", high, domain.BookingProgress{})
	assert.Equal(t, ActionEscalateImmediate, d.Action)
	assert.Equal(t, CategoryLegal, d.Trigger.Category)
}

func TestDecideRules(t *testing.T) {
	m := NewManager(DefaultThresholds())
	frustratedHigh := domain.EmotionalContext{PrimaryEmotion: domain.EmotionFrustration, Intensity: domain.IntensityHigh}
	frustratedMod := domain.EmotionalContext{PrimaryEmotion: domain.EmotionFrustration, Intensity: domain.IntensityModerate}
	neutral := domain.NeutralContext()

	half := domain.BookingProgress{CallerName: "Dana", Email: "d@example.com"}
	full := nearlyComplete()
	full.JobSummary = "furnace"
	confirmed := full
	confirmed.Confirmed = true

	tests := []struct {
		name     string
		ctx      domain.EmotionalContext
		booking  domain.BookingProgress
		action   Action
		priority Priority
	}{
		{"high frustration", frustratedHigh, nearlyComplete(), ActionProvideEmpathy, PriorityHigh},
		{"moderate frustration falls through", frustratedMod, domain.BookingProgress{}, ActionGatherInformation, PriorityMedium},
		{"empty booking", neutral, domain.BookingProgress{}, ActionGatherInformation, PriorityMedium},
		{"half complete continues", neutral, half, ActionContinueConversation, PriorityLow},
		{"three quarters confirms", neutral, nearlyComplete(), ActionConfirmBooking, PriorityMedium},
		{"complete confirms", neutral, full, ActionConfirmBooking, PriorityMedium},
		{"already confirmed continues", neutral, confirmed, ActionContinueConversation, PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.Decide("I'd like to book a visit", tt.ctx, tt.booking)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.priority, d.Priority)
			assert.Nil(t, d.Trigger)
		})
	}
}

func TestDecideCustomThresholds(t *testing.T) {
	m := NewManager(Thresholds{GatherBelow: 0.75, ConfirmAt: 1})
	half := domain.BookingProgress{CallerName: "Dana", Email: "d@example.com"}
	assert.Equal(t, ActionGatherInformation, m.Decide("hi", domain.NeutralContext(), half).Action)
	assert.Equal(t, ActionContinueConversation, m.Decide("hi", domain.NeutralContext(), nearlyComplete()).Action)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		text     string
		ok       bool
		category Category
	}{
		{"I need to see a doctor", true, CategoryMedical},
		{"we'll take legal action", true, CategoryLegal},
		{"can you give me financial advice", true, CategoryFinancial},
		{"this is harassment", true, CategoryThreat},
		{"please fix my sink", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			trig, ok := Detect(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.category, trig.Category)
			}
		})
	}
}

func TestCategoryMapping(t *testing.T) {
	assert.Len(t, categoryTable, len(categories))
	assert.Equal(t, domain.EscalationEmergency, CategoryMedical.EscalationType())
	assert.Equal(t, domain.EscalationPolicy, CategoryLegal.EscalationType())
	assert.Equal(t, domain.EscalationPolicy, CategoryFinancial.EscalationType())
	assert.Equal(t, domain.EscalationEmergency, CategoryThreat.EscalationType())
	assert.Equal(t, domain.EscalationComplex, Category(99).EscalationType())
	assert.Equal(t, "financial_advice", CategoryFinancial.String())
}

func TestNewEscalation(t *testing.T) {
	now := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	ctx := domain.EmotionalContext{PrimaryEmotion: domain.EmotionUrgency, Intensity: domain.IntensityHigh}
	trig, ok := Detect("there's been an emergency at the hospital")
	require.True(t, ok)

	rec := NewEscalation("biz1", "CA9", "there's been an emergency at the hospital", trig, ctx, now)
	_, err := uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, "biz1", rec.BusinessID)
	assert.Equal(t, "CA9", rec.CallSid)
	assert.Equal(t, domain.EscalationEmergency, rec.Type)
	assert.Equal(t, domain.SeverityHigh, rec.Severity)
	assert.Equal(t, "medical", rec.Category)
	assert.Contains(t, rec.TriggerReason, "emergency")
	assert.Equal(t, ctx, rec.Analysis)
	assert.Equal(t, now, rec.CreatedAt)
}
