// Package templates renders spoken response templates into safe, bounded
// text and builds the voice markup returned to the telephony provider.
package templates

import (
	"regexp"
	"strings"
)

// Vars maps placeholder names to values.
type Vars map[string]string

// Placeholder names understood by the renderer.
const (
	KeyBusinessName       = "business_name"
	KeyCompanyName        = "company_name"
	KeyHumanNumber        = "human_number"
	KeyCallbackNumber     = "callback_number"
	KeyCustomerName       = "customer_name"
	KeyServiceType        = "service_type"
	KeyUrgency            = "urgency"
	KeyAvailabilityWindow = "availability_window"
)

// Default fallback values.
const (
	DefaultBusinessName = "Apex Business Systems"
	DefaultHumanNumber  = "+14319900222"
	DefaultMaxValue     = 100
	DefaultMaxLength    = 500
)

// bannedStrings must never reach synthesized speech.
var bannedStrings = []string{"undefined", "null", "NaN", "[object Object]"}

var (
	placeholderRe = regexp.MustCompile(`\{([a-z_]+)\}`)
	tagRe         = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)
)

var fallbacks = map[string]string{
	KeyBusinessName:       DefaultBusinessName,
	KeyCompanyName:        DefaultBusinessName,
	KeyHumanNumber:        DefaultHumanNumber,
	KeyCallbackNumber:     "the number you provided",
	KeyCustomerName:       "there",
	KeyServiceType:        "your request",
	KeyUrgency:            "standard priority",
	KeyAvailabilityWindow: "at your earliest convenience",
}

// KnownPlaceholders returns the placeholder names with a defined fallback.
func KnownPlaceholders() []string {
	return []string{
		KeyBusinessName, KeyCompanyName, KeyHumanNumber, KeyCallbackNumber,
		KeyCustomerName, KeyServiceType, KeyUrgency, KeyAvailabilityWindow,
	}
}

// Fallback returns the safe default for a placeholder. Unknown keys render
// as the key in brackets with underscores turned into spaces.
func Fallback(key string) string {
	if v, ok := fallbacks[key]; ok {
		return v
	}
	return "[" + strings.ReplaceAll(key, "_", " ") + "]"
}

// Renderer substitutes placeholders. The zero value is not usable; use New.
type Renderer struct {
	maxValue  int
	maxLength int
}

// New creates a Renderer. Non-positive limits fall back to the defaults.
func New(maxValue, maxLength int) *Renderer {
	if maxValue <= 0 {
		maxValue = DefaultMaxValue
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Renderer{maxValue: maxValue, maxLength: maxLength}
}

var defaultRenderer = New(DefaultMaxValue, DefaultMaxLength)

// Render substitutes placeholders using the default limits.
func Render(tmpl string, vars Vars) string {
	return defaultRenderer.Render(tmpl, vars)
}

// Render replaces every {placeholder} in tmpl. Output is deterministic for a
// given template and variable set.
func (r *Renderer) Render(tmpl string, vars Vars) string {
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := r.lookup(vars, key); ok {
			return v
		}
		return Fallback(key)
	})
	return stripBanned(out)
}

// lookup resolves a placeholder, treating company_name and business_name
// as aliases of each other.
func (r *Renderer) lookup(vars Vars, key string) (string, bool) {
	if v, ok := r.usable(vars[key]); ok {
		return v, true
	}
	switch key {
	case KeyBusinessName:
		return r.usable(vars[KeyCompanyName])
	case KeyCompanyName:
		return r.usable(vars[KeyBusinessName])
	}
	return "", false
}

// usable sanitizes a raw value and reports whether it may be substituted.
func (r *Renderer) usable(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" || containsBanned(raw) {
		return "", false
	}
	v := r.SanitizeValue(raw)
	if v == "" {
		return "", false
	}
	return v, true
}

// SanitizeValue strips markup and quotes, collapses whitespace, and
// truncates to the renderer's per-value limit.
func (r *Renderer) SanitizeValue(v string) string {
	return truncate(collapseSpaces(sanitize(v)), r.maxValue)
}

// SanitizeReply cleans free text bound for speech synthesis, such as a
// generated reply, and bounds it to maxRunes.
func (r *Renderer) SanitizeReply(text string, maxRunes int) string {
	out := stripBanned(strings.TrimSpace(sanitize(text)))
	return truncate(collapseSpaces(out), maxRunes)
}

// MaxLength is the soft length limit reported by validation.
func (r *Renderer) MaxLength() int { return r.maxLength }

// sanitize drops tag-shaped spans, then any stray bracket or quote. Text
// between stray brackets is kept.
func sanitize(s string) string {
	s = tagRe.ReplaceAllString(s, "")
	s = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "").Replace(s)
	return s
}

func containsBanned(s string) bool {
	for _, b := range bannedStrings {
		if strings.Contains(s, b) {
			return true
		}
	}
	return false
}

// stripBanned removes banned substrings until none remain, since a removal
// can join fragments into a new occurrence. Text is only respaced when
// something was removed.
func stripBanned(s string) string {
	for containsBanned(s) {
		for _, b := range bannedStrings {
			s = strings.ReplaceAll(s, b, "")
		}
		s = collapseSpaces(s)
	}
	return s
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(r[:maxRunes]))
}
