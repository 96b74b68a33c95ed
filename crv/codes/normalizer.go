// Package codes normalizes raw procedure-code and identifier strings as they
// arrive from claim documents and reference orders. Everything above it in the
// validation stack assumes codes have passed through here first.
package codes

import (
	"strings"
	"unicode"

	"github.com/claimrecon/crv-app/crv/constants"
)

// Normalize strips all characters except alphanumerics and uppercases the
// rest. Empty or garbage input yields an empty normalized code rather than an
// error so callers can branch on emptiness.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// NormalizeTaxID strips non-digits and returns the 9-digit provider tax
// identifier, or "" when the input cannot be a valid tax id. Malformed
// identifiers must fail gracefully into "no match", never an error.
func NormalizeTaxID(raw string) string {
	var b strings.Builder
	b.Grow(constants.TaxIDLength)
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() != constants.TaxIDLength {
		return ""
	}
	return b.String()
}
