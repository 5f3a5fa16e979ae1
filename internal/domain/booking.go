package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBookingIncomplete is returned when confirmation is attempted before
// enough required fields are captured.
var ErrBookingIncomplete = errors.New("booking incomplete")

// Booking field names as they appear in booking_update payloads.
const (
	FieldCallerName        = "caller_name"
	FieldCallbackNumber    = "callback_number"
	FieldEmail             = "email"
	FieldJobSummary        = "job_summary"
	FieldPreferredDatetime = "preferred_datetime"
)

// RequiredBookingFields are the fields counted by CompletionRatio.
var RequiredBookingFields = []string{FieldCallerName, FieldCallbackNumber, FieldEmail, FieldJobSummary}

// BookingProgress holds what has been captured during a call.
type BookingProgress struct {
	BookingID         string     `json:"bookingId,omitempty"`
	CallerName        string     `json:"caller_name,omitempty"`
	CallbackNumber    string     `json:"callback_number,omitempty"`
	Email             string     `json:"email,omitempty"`
	JobSummary        string     `json:"job_summary,omitempty"`
	PreferredDatetime string     `json:"preferred_datetime,omitempty"`
	Confirmed         bool       `json:"confirmed"`
	ConfirmedAt       *time.Time `json:"confirmedAt,omitempty"`
}

// Field returns the captured value of a named booking field.
func (b *BookingProgress) Field(name string) string {
	switch name {
	case FieldCallerName:
		return b.CallerName
	case FieldCallbackNumber:
		return b.CallbackNumber
	case FieldEmail:
		return b.Email
	case FieldJobSummary:
		return b.JobSummary
	case FieldPreferredDatetime:
		return b.PreferredDatetime
	}
	return ""
}

// Merge applies a booking_update payload. Unknown keys and non-string
// values are ignored; empty strings do not clear captured fields.
func (b *BookingProgress) Merge(data map[string]any) {
	for k, v := range data {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		switch k {
		case FieldCallerName:
			b.CallerName = s
		case FieldCallbackNumber:
			b.CallbackNumber = s
		case FieldEmail:
			b.Email = s
		case FieldJobSummary:
			b.JobSummary = s
		case FieldPreferredDatetime:
			b.PreferredDatetime = s
		case "bookingId":
			b.BookingID = s
		}
	}
}

// CompletionRatio is filled required fields over required fields.
func (b *BookingProgress) CompletionRatio() float64 {
	filled := 0
	for _, f := range RequiredBookingFields {
		if b.Field(f) != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(RequiredBookingFields))
}

// Missing lists the required fields not yet captured.
func (b *BookingProgress) Missing() []string {
	var out []string
	for _, f := range RequiredBookingFields {
		if b.Field(f) == "" {
			out = append(out, f)
		}
	}
	return out
}

// Confirm marks the booking confirmed if the completion ratio has reached
// minRatio. Confirming twice is a no-op.
func (b *BookingProgress) Confirm(minRatio float64, now time.Time) error {
	if b.Confirmed {
		return nil
	}
	if ratio := b.CompletionRatio(); ratio < minRatio {
		return fmt.Errorf("%w: %.0f%% complete, missing %s",
			ErrBookingIncomplete, ratio*100, strings.Join(b.Missing(), ", "))
	}
	b.Confirmed = true
	b.ConfirmedAt = &now
	return nil
}
