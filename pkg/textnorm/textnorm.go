// Package textnorm normalizes user-typed text before it is matched or stored.
//
// Recruiters and candidates type national IDs and mobile numbers with Persian
// or Arabic-Indic keyboards. Digits is applied to every search query and every
// numeric form field so that "۰۹۱۲" and "0912" are the same key.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// digitZeros lists the zero glyph of each decimal digit block we accept.
// Fullwidth and mathematical digits are already folded to ASCII by NFKC.
var digitZeros = []rune{
	'\u0660', // Arabic-Indic
	'\u06F0', // Extended Arabic-Indic (Persian, Urdu)
	'\u0966', // Devanagari
}

func toASCIIDigit(r rune) rune {
	if r < 0x0660 || !unicode.IsDigit(r) {
		return r
	}
	for _, zero := range digitZeros {
		if r >= zero && r <= zero+9 {
			return '0' + (r - zero)
		}
	}
	return r
}

var arabicLetters = strings.NewReplacer(
	"ي", "ی", // Arabic yeh -> Persian yeh
	"ك", "ک", // Arabic kaf -> Persian keheh
	"‌", " ", // ZWNJ
)

// Digits converts localized digit glyphs to ASCII and applies NFKC.
func Digits(s string) string {
	t := transform.Chain(norm.NFKC, runes.Map(toASCIIDigit))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Letters folds Arabic yeh and kaf to their Persian forms and ZWNJ to a space.
func Letters(s string) string {
	return arabicLetters.Replace(s)
}

// Fold applies Digits and Letters. Stored names and search queries both go
// through it so they compare equal.
func Fold(s string) string {
	return Letters(Digits(s))
}

// Query normalizes a free-text search query: Fold plus surrounding space.
func Query(s string) string {
	return strings.TrimSpace(Fold(s))
}

// Numeric normalizes a numeric identifier (national ID, mobile) and drops
// separators users commonly type.
func Numeric(s string) string {
	s = Digits(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
