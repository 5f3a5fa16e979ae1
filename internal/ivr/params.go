package ivr

import (
	"net/url"
	"strconv"
	"strings"
)

// Params are the webhook fields the state machine reads. Provider fields
// come from the signed form body, flow flags from the query string.
type Params struct {
	CallSid string
	From    string
	To      string
	Digits  string

	RecordingURL      string
	RecordingDuration int
	TranscriptionText string

	CallStatus     string
	DialCallStatus string
	CallDuration   int

	// Query flags set by our own markup.
	BusinessID  string
	SkipConsent bool
	Retry       int
	Reason      string
}

// ParseParams builds Params from the verified form and the request query.
func ParseParams(form, query url.Values) Params {
	return Params{
		CallSid:           form.Get("CallSid"),
		From:              form.Get("From"),
		To:                form.Get("To"),
		Digits:            strings.TrimSpace(form.Get("Digits")),
		RecordingURL:      form.Get("RecordingUrl"),
		RecordingDuration: atoi(form.Get("RecordingDuration")),
		TranscriptionText: form.Get("TranscriptionText"),
		CallStatus:        form.Get("CallStatus"),
		DialCallStatus:    form.Get("DialCallStatus"),
		CallDuration:      atoi(form.Get("CallDuration")),

		BusinessID:  query.Get("business"),
		SkipConsent: query.Get("skip_consent") == "true",
		Retry:       atoi(query.Get("retry")),
		Reason:      query.Get("reason"),
	}
}

// atoi parses a non-negative count, treating anything else as zero.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
