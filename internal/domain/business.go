package domain

// PersonalityProfile is the business-configured voice persona. It is loaded
// once per call and never mutated.
type PersonalityProfile struct {
	ToneStyle           string `json:"tone_style" yaml:"toneStyle"`
	EmpathyLevel        string `json:"empathy_level" yaml:"empathyLevel"`
	CommunicationStyle  string `json:"communication_style" yaml:"communicationStyle"`
	InterruptionAllowed bool   `json:"interruption_allowed" yaml:"interruptionAllowed"`
	PatienceLevel       string `json:"patience_level" yaml:"patienceLevel"`
}

// DefaultProfile is used when a business has no active profile.
func DefaultProfile() PersonalityProfile {
	return PersonalityProfile{
		ToneStyle:          "professional",
		EmpathyLevel:       "moderate",
		CommunicationStyle: "conversational",
		PatienceLevel:      "moderate",
	}
}

// WithDefaults fills empty fields from DefaultProfile.
func (p PersonalityProfile) WithDefaults() PersonalityProfile {
	d := DefaultProfile()
	if p.ToneStyle == "" {
		p.ToneStyle = d.ToneStyle
	}
	if p.EmpathyLevel == "" {
		p.EmpathyLevel = d.EmpathyLevel
	}
	if p.CommunicationStyle == "" {
		p.CommunicationStyle = d.CommunicationStyle
	}
	if p.PatienceLevel == "" {
		p.PatienceLevel = d.PatienceLevel
	}
	return p
}

// Business holds the routing targets and persona for one organization.
type Business struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	SalesNumber   string             `json:"salesNumber"`
	SupportNumber string             `json:"supportNumber"`
	HumanNumber   string             `json:"humanNumber"`
	Profile       PersonalityProfile `json:"profile"`
}
