package domain

import (
	"strings"
	"time"
)

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerCaller    Speaker = "caller"
	SpeakerAssistant Speaker = "assistant"
)

// TranscriptTurn is one utterance in a call. Turns are append-only.
type TranscriptTurn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Texts returns the text of each turn in order.
func Texts(turns []TranscriptTurn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Text
	}
	return out
}

// Summarize joins turn texts with " | " and truncates to maxRunes.
func Summarize(turns []TranscriptTurn, maxRunes int) string {
	s := strings.Join(Texts(turns), " | ")
	r := []rune(s)
	if maxRunes > 0 && len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}
