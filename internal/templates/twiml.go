package templates

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/twiml"
)

// ContentType is the media type of voice markup responses.
const ContentType = "text/xml"

// document renders verbs, in execution order, as a complete response.
func document(verbs ...twiml.Element) string {
	doc, err := twiml.Voice(verbs)
	if err != nil {
		// Only fixed verb types are ever rendered.
		panic("templates: render markup: " + err.Error())
	}
	return doc
}

// Webhook paths served by the gateway.
const (
	PathFrontDoor = "/voice/frontdoor"
	PathMenu      = "/voice/menu"
	PathVoicemail = "/voice/voicemail"
	PathStatus    = "/voice/status"
	PathStream    = "/voice/stream"
)

// Voicemail redirect reasons.
const (
	ReasonUserRequest = "user_request"
	ReasonMenuTimeout = "menu_timeout"
	ReasonNoAnswer    = "no_answer"
	ReasonError       = "error"
)

// Markup builds the voice markup documents for the call flow.
type Markup struct {
	base          string
	voice         string
	language      string
	gatherTimeout int
	renderer      *Renderer
}

// MarkupOption configures a Markup.
type MarkupOption func(*Markup)

// WithVoice sets the speech voice.
func WithVoice(voice string) MarkupOption {
	return func(m *Markup) { m.voice = voice }
}

// WithLanguage sets the language of the consent disclosure.
func WithLanguage(lang string) MarkupOption {
	return func(m *Markup) { m.language = lang }
}

// WithGatherTimeout sets how many seconds the menu waits for a digit.
func WithGatherTimeout(seconds int) MarkupOption {
	return func(m *Markup) { m.gatherTimeout = seconds }
}

// NewMarkup creates a Markup whose callback URLs are rooted at baseURL.
func NewMarkup(baseURL string, r *Renderer, opts ...MarkupOption) *Markup {
	m := &Markup{
		base:          strings.TrimRight(baseURL, "/"),
		voice:         "Polly.Joanna",
		language:      "en-CA",
		gatherTimeout: 5,
		renderer:      r,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// URL returns the absolute callback URL for path with optional query pairs.
func (m *Markup) URL(path string, kv ...string) string {
	u := m.base + path
	if len(kv) >= 2 {
		q := url.Values{}
		for i := 0; i+1 < len(kv); i += 2 {
			q.Set(kv[i], kv[i+1])
		}
		u += "?" + q.Encode()
	}
	return u
}

func (m *Markup) say(text string) twiml.VoiceSay {
	return twiml.VoiceSay{Voice: m.voice, Message: text}
}

func (m *Markup) menuGather(action, prompt string) twiml.VoiceGather {
	return twiml.VoiceGather{
		Action:        action,
		Method:        "POST",
		NumDigits:     "1",
		Timeout:       strconv.Itoa(m.gatherTimeout),
		InnerElements: []twiml.Element{m.say(prompt)},
	}
}

func (m *Markup) redirect(path string, kv ...string) twiml.VoiceRedirect {
	return twiml.VoiceRedirect{Method: "POST", Url: m.URL(path, kv...)}
}

// ConsentMenu plays the recording disclosure followed by the menu.
func (m *Markup) ConsentMenu(businessName string) string {
	greeting := m.renderer.Render(FrontDoorGreeting, Vars{KeyBusinessName: businessName})
	return document(
		twiml.VoiceSay{Voice: m.voice, Language: m.language, Message: greeting},
		m.menuGather(m.URL(PathMenu), FrontDoorMenu),
		m.redirect(PathVoicemail, "reason", ReasonMenuTimeout),
	)
}

// MenuOnly replays the menu without the disclosure.
func (m *Markup) MenuOnly() string {
	return document(
		m.menuGather(m.URL(PathMenu), FrontDoorMenu),
		m.redirect(PathVoicemail, "reason", ReasonMenuTimeout),
	)
}

// Route announces the team and dials its number, falling through to
// voicemail when nobody answers.
func (m *Markup) Route(announcement, number string) string {
	return document(
		m.say(announcement),
		twiml.VoiceDial{
			Timeout: "20",
			Action:  m.URL(PathStatus),
			Record:  "record-from-answer-dual",
			InnerElements: []twiml.Element{
				twiml.VoiceNumber{PhoneNumber: number, StatusCallback: m.URL(PathStatus)},
			},
		},
		m.redirect(PathVoicemail, "reason", ReasonNoAnswer),
	)
}

// InvalidRetry re-prompts after an invalid selection.
func (m *Markup) InvalidRetry(retry int) string {
	return document(
		m.menuGather(m.URL(PathMenu, "retry", strconv.Itoa(retry)), MenuInvalid),
		m.redirect(PathVoicemail, "reason", ReasonMenuTimeout),
	)
}

// TimeoutVoicemail ends the menu and sends the caller to voicemail.
func (m *Markup) TimeoutVoicemail() string {
	return document(
		m.say(MenuTimeoutFallback),
		m.redirect(PathVoicemail, "reason", ReasonMenuTimeout),
	)
}

// RedirectVoicemail sends the caller to voicemail without speaking.
func (m *Markup) RedirectVoicemail(reason string) string {
	return document(m.redirect(PathVoicemail, "reason", reason))
}

// RepeatMenu loops back to the front door without the disclosure.
func (m *Markup) RepeatMenu() string {
	return document(m.redirect(PathFrontDoor, "skip_consent", "true"))
}

// VoicemailRecord prompts for and records a message.
func (m *Markup) VoicemailRecord() string {
	return document(
		m.say(VoicemailPrompt),
		twiml.VoiceRecord{
			Action:             m.URL(PathVoicemail),
			MaxLength:          "180",
			FinishOnKey:        "#",
			Transcribe:         "true",
			TranscribeCallback: m.URL(PathVoicemail),
		},
		m.say(VoicemailThankYou),
		twiml.VoiceHangup{},
	)
}

// VoicemailFailed apologizes and hangs up.
func (m *Markup) VoicemailFailed() string {
	return document(m.say(VoicemailError), twiml.VoiceHangup{})
}

// RateLimited tells the caller to try later and hangs up.
func (m *Markup) RateLimited() string {
	return document(m.say(FrontDoorRateLimit), twiml.VoiceHangup{})
}

// Error is the generic failure document. It never carries diagnostics.
func (m *Markup) Error() string {
	return document(m.say(ErrorTechnicalDifficulties), twiml.VoiceHangup{})
}

// MenuError apologizes and falls back to voicemail.
func (m *Markup) MenuError() string {
	return document(
		m.say(ErrorGeneric),
		m.redirect(PathVoicemail, "reason", ReasonError),
	)
}

// Empty acknowledges a callback without further instructions.
func (m *Markup) Empty() string {
	return document()
}
