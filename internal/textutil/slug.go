package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify converts a term name to a lowercase, hyphen-separated slug.
// Accents are folded and HTML ampersand entities are dropped.
func Slugify(value string) string {
	value = strings.ReplaceAll(value, "&amp;", " ")
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		folded = value
	}
	folded = Lower(folded)

	var b strings.Builder
	dash := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// Lower lowercases using Unicode-aware case mapping. Casers are stateful,
// so one is built per call.
func Lower(value string) string {
	return cases.Lower(language.Und).String(value)
}

// Title title-cases a term name for display.
func Title(value string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(value))
}
