package templates

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsed is a loose view of a markup document for assertions.
type parsed struct {
	Says []struct {
		Voice    string `xml:"voice,attr"`
		Language string `xml:"language,attr"`
		Text     string `xml:",chardata"`
	} `xml:"Say"`
	Gather *struct {
		Action    string `xml:"action,attr"`
		NumDigits int    `xml:"numDigits,attr"`
		Timeout   int    `xml:"timeout,attr"`
		Say       string `xml:"Say"`
	} `xml:"Gather"`
	Dial *struct {
		Timeout int    `xml:"timeout,attr"`
		Record  string `xml:"record,attr"`
		Number  string `xml:"Number"`
	} `xml:"Dial"`
	Redirect *struct {
		Method string `xml:"method,attr"`
		URL    string `xml:",chardata"`
	} `xml:"Redirect"`
	Record *struct {
		MaxLength   int    `xml:"maxLength,attr"`
		FinishOnKey string `xml:"finishOnKey,attr"`
		Transcribe  bool   `xml:"transcribe,attr"`
	} `xml:"Record"`
	Hangup *struct{} `xml:"Hangup"`
}

func parse(t *testing.T, doc string) parsed {
	t.Helper()
	require.True(t, strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`), doc)
	var p parsed
	require.NoError(t, xml.Unmarshal([]byte(doc), &p))
	return p
}

func testMarkup() *Markup {
	return NewMarkup("https://voice.example.com/", New(0, 0))
}

func TestConsentMenu(t *testing.T) {
	p := parse(t, testMarkup().ConsentMenu("Northwind"))

	require.Len(t, p.Says, 1)
	assert.Equal(t, "en-CA", p.Says[0].Language)
	assert.Equal(t, "Polly.Joanna", p.Says[0].Voice)
	assert.Contains(t, p.Says[0].Text, "Thank you for calling Northwind")
	assert.Contains(t, p.Says[0].Text, "consent to being recorded")

	require.NotNil(t, p.Gather)
	assert.Equal(t, "https://voice.example.com/voice/menu", p.Gather.Action)
	assert.Equal(t, 1, p.Gather.NumDigits)
	assert.Equal(t, 5, p.Gather.Timeout)
	assert.Equal(t, FrontDoorMenu, p.Gather.Say)

	require.NotNil(t, p.Redirect)
	assert.Equal(t, "https://voice.example.com/voice/voicemail?reason=menu_timeout", p.Redirect.URL)
}

func TestMenuOnly(t *testing.T) {
	p := parse(t, testMarkup().MenuOnly())
	assert.Empty(t, p.Says)
	require.NotNil(t, p.Gather)
	assert.Equal(t, FrontDoorMenu, p.Gather.Say)
}

func TestRoute(t *testing.T) {
	p := parse(t, testMarkup().Route(MenuSupport, "+15550002222"))
	require.Len(t, p.Says, 1)
	assert.Equal(t, MenuSupport, p.Says[0].Text)
	require.NotNil(t, p.Dial)
	assert.Equal(t, 20, p.Dial.Timeout)
	assert.Equal(t, "record-from-answer-dual", p.Dial.Record)
	assert.Equal(t, "+15550002222", p.Dial.Number)
	require.NotNil(t, p.Redirect)
	assert.Equal(t, "https://voice.example.com/voice/voicemail?reason=no_answer", p.Redirect.URL)
}

func TestInvalidRetry(t *testing.T) {
	p := parse(t, testMarkup().InvalidRetry(1))
	require.NotNil(t, p.Gather)
	assert.Equal(t, "https://voice.example.com/voice/menu?retry=1", p.Gather.Action)
	assert.Equal(t, MenuInvalid, p.Gather.Say)
}

func TestRedirects(t *testing.T) {
	p := parse(t, testMarkup().RepeatMenu())
	require.NotNil(t, p.Redirect)
	assert.Equal(t, "POST", p.Redirect.Method)
	assert.Equal(t, "https://voice.example.com/voice/frontdoor?skip_consent=true", p.Redirect.URL)

	p = parse(t, testMarkup().RedirectVoicemail(ReasonUserRequest))
	assert.Equal(t, "https://voice.example.com/voice/voicemail?reason=user_request", p.Redirect.URL)

	p = parse(t, testMarkup().TimeoutVoicemail())
	require.Len(t, p.Says, 1)
	assert.Equal(t, MenuTimeoutFallback, p.Says[0].Text)
}

func TestVoicemailRecord(t *testing.T) {
	p := parse(t, testMarkup().VoicemailRecord())
	require.Len(t, p.Says, 2)
	assert.Equal(t, VoicemailPrompt, p.Says[0].Text)
	assert.Equal(t, VoicemailThankYou, p.Says[1].Text)
	require.NotNil(t, p.Record)
	assert.Equal(t, 180, p.Record.MaxLength)
	assert.Equal(t, "#", p.Record.FinishOnKey)
	assert.True(t, p.Record.Transcribe)
	assert.NotNil(t, p.Hangup)
}

func TestErrorDocuments(t *testing.T) {
	p := parse(t, testMarkup().RateLimited())
	assert.Equal(t, FrontDoorRateLimit, p.Says[0].Text)
	assert.NotNil(t, p.Hangup)

	p = parse(t, testMarkup().Error())
	assert.Equal(t, ErrorTechnicalDifficulties, p.Says[0].Text)

	p = parse(t, testMarkup().MenuError())
	assert.Equal(t, ErrorGeneric, p.Says[0].Text)
	assert.Contains(t, p.Redirect.URL, "reason=error")

	p = parse(t, testMarkup().VoicemailFailed())
	assert.Equal(t, VoicemailError, p.Says[0].Text)
}

func TestMarkupOptions(t *testing.T) {
	m := NewMarkup("http://localhost:8080", New(0, 0), WithVoice("alice"), WithLanguage("fr-CA"), WithGatherTimeout(8))
	p := parse(t, m.ConsentMenu(""))
	assert.Equal(t, "alice", p.Says[0].Voice)
	assert.Equal(t, "fr-CA", p.Says[0].Language)
	assert.Contains(t, p.Says[0].Text, DefaultBusinessName)
	assert.Equal(t, 8, p.Gather.Timeout)
}

func TestURLEscapesAmpersand(t *testing.T) {
	m := testMarkup()
	assert.Equal(t, "https://voice.example.com/voice/stream?business=b1&callSid=CA1",
		m.URL(PathStream, "callSid", "CA1", "business", "b1"))
	doc := document(m.redirect(PathMenu, "a", "1", "b", "2"))
	assert.Contains(t, doc, "a=1&amp;b=2")
}

func TestRouteNumberCallback(t *testing.T) {
	var p struct {
		Dial struct {
			Action string `xml:"action,attr"`
			Number struct {
				StatusCallback string `xml:"statusCallback,attr"`
				Value          string `xml:",chardata"`
			} `xml:"Number"`
		} `xml:"Dial"`
	}
	require.NoError(t, xml.Unmarshal([]byte(testMarkup().Route(MenuSales, "+15550001111")), &p))
	assert.Equal(t, "https://voice.example.com/voice/status", p.Dial.Action)
	assert.Equal(t, "https://voice.example.com/voice/status", p.Dial.Number.StatusCallback)
	assert.Equal(t, "+15550001111", p.Dial.Number.Value)
}

func TestEmptyDocument(t *testing.T) {
	doc := testMarkup().Empty()
	assert.Contains(t, doc, "<Response")
	assert.NotContains(t, doc, "<Say")
}
