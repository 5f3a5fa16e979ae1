package templates

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Validation is the result of checking a raw template.
type Validation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateTemplate checks a template with the default soft length limit.
func ValidateTemplate(tmpl string) Validation {
	return defaultRenderer.ValidateTemplate(tmpl)
}

// ValidateTemplate reports banned strings as errors, and unknown
// placeholders or an over-long template as warnings.
func (r *Renderer) ValidateTemplate(tmpl string) Validation {
	v := Validation{Errors: []string{}, Warnings: []string{}}

	for _, b := range bannedStrings {
		if strings.Contains(tmpl, b) {
			v.Errors = append(v.Errors, fmt.Sprintf("template contains banned string: %q", b))
		}
	}

	known := KnownPlaceholders()
	var unknown []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !slices.Contains(known, m[1]) {
			unknown = append(unknown, m[0])
		}
	}
	if len(unknown) > 0 {
		v.Warnings = append(v.Warnings, "unknown placeholders: "+strings.Join(unknown, ", "))
	}

	if n := utf8.RuneCountInString(tmpl); n > r.maxLength {
		v.Warnings = append(v.Warnings, fmt.Sprintf("template exceeds recommended max length: %d chars (limit %d)", n, r.maxLength))
	}

	v.Valid = len(v.Errors) == 0
	return v
}
