package templates

import "sort"

// Spoken templates. Every entry is validated by TestCatalogueValid and by
// the templates check command.
const (
	Greeting          = "Hi, you've reached {business_name}, your 24/7 AI receptionist! How can I help? Press 0 to speak with someone directly."
	GreetingBridge    = "Hi, you've reached {business_name}, your 24/7 AI receptionist! Connecting you now."
	ConnectingToAgent = "Connecting you to an agent now."

	FrontDoorGreeting  = "Thank you for calling {business_name}. This call may be recorded for quality and training purposes. By staying on the line, you consent to being recorded."
	FrontDoorMenu      = "Press 1 for Sales. Press 2 for Support. Press 9 to leave a voicemail. Press star to repeat this menu."
	FrontDoorRateLimit = "We're experiencing high call volume. Please try again later."

	MenuSales           = "Connecting you to our sales team."
	MenuSupport         = "Connecting you to technical support."
	MenuInvalid         = "Invalid selection. Please try again. Press 1 for Sales. Press 2 for Support. Press 9 to leave a voicemail."
	MenuTimeoutFallback = "We didn't receive your selection. Transferring you to voicemail."

	VoicemailPrompt   = "Please leave a message after the tone. Press pound when finished."
	VoicemailThankYou = "Thank you. Your message has been recorded. Goodbye."
	VoicemailError    = "We're sorry, but we couldn't record your message. Please call back later."

	ErrorTechnicalDifficulties = "We're sorry, but we're experiencing technical difficulties. Please try again later."
	ErrorGeneric               = "We're sorry, but we're experiencing technical difficulties."

	EmergencyRedirect = "This sounds urgent. Let me connect you to {human_number} immediately. One moment please."

	// Duplex channel messages.
	EscalationHandoff  = "I understand this requires immediate human assistance. Let me connect you right away."
	GenerationFallback = "I'm sorry, I'm having trouble with that right now. Could you say that again, or would you like me to connect you with someone from {business_name}?"
	ProcessingError    = "I apologize, but I encountered an issue. Let me connect you with a human representative."
	BookingFollowUp    = "Thanks {customer_name}. Before I can confirm, I still need a few details for {service_type}."
	BookingConfirmed   = "You're all set, {customer_name}. We'll call you back at {callback_number} {availability_window}."
)

// Catalogue lists every named template.
var Catalogue = map[string]string{
	"GREETING":                     Greeting,
	"GREETING_BRIDGE":              GreetingBridge,
	"CONNECTING_TO_AGENT":          ConnectingToAgent,
	"FRONTDOOR_GREETING":           FrontDoorGreeting,
	"FRONTDOOR_MENU":               FrontDoorMenu,
	"FRONTDOOR_RATE_LIMIT":         FrontDoorRateLimit,
	"MENU_SALES":                   MenuSales,
	"MENU_SUPPORT":                 MenuSupport,
	"MENU_INVALID":                 MenuInvalid,
	"MENU_TIMEOUT_FALLBACK":        MenuTimeoutFallback,
	"VOICEMAIL_PROMPT":             VoicemailPrompt,
	"VOICEMAIL_THANK_YOU":          VoicemailThankYou,
	"VOICEMAIL_ERROR":              VoicemailError,
	"ERROR_TECHNICAL_DIFFICULTIES": ErrorTechnicalDifficulties,
	"ERROR_GENERIC":                ErrorGeneric,
	"EMERGENCY_REDIRECT":           EmergencyRedirect,
	"ESCALATION_HANDOFF":           EscalationHandoff,
	"GENERATION_FALLBACK":          GenerationFallback,
	"PROCESSING_ERROR":             ProcessingError,
	"BOOKING_FOLLOW_UP":            BookingFollowUp,
	"BOOKING_CONFIRMED":            BookingConfirmed,
}

// Names returns catalogue keys in sorted order.
func Names() []string {
	names := make([]string, 0, len(Catalogue))
	for k := range Catalogue {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// CheckCatalogue validates every catalogue entry and returns the results
// keyed by template name.
func (r *Renderer) CheckCatalogue() map[string]Validation {
	out := make(map[string]Validation, len(Catalogue))
	for name, tmpl := range Catalogue {
		out[name] = r.ValidateTemplate(tmpl)
	}
	return out
}
