// Package validation cleans free text typed by users before it is stored or
// written into exported documents.
package validation

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictHTMLPolicy = bluemonday.StrictPolicy()

// SanitizeText strips markup and non-printable characters and trims the
// result. Entities escaped by the policy are turned back into text, so
// "Pérez & Hijos" survives unchanged.
func SanitizeText(s string) string {
	s = StripUnprintable(s)
	s = html.UnescapeString(strictHTMLPolicy.Sanitize(s))
	return strings.TrimSpace(s)
}

// SanitizeForFormulaInjection prefixes a quote when a spreadsheet would
// read the cell as a formula.
func SanitizeForFormulaInjection(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// StripUnprintable drops non-printable runes, keeping tab and newlines.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// OptionalText sanitizes s and returns nil when nothing is left.
func OptionalText(s string) *string {
	s = SanitizeText(s)
	if s == "" {
		return nil
	}
	return &s
}
