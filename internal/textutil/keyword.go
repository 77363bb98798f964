package textutil

import (
	"regexp"
	"strings"
)

const keywordCutset = " \t\n\r\x00\x0B-.,;:/\\"

// TrimPunctuation removes surrounding whitespace and list punctuation.
func TrimPunctuation(value string) string {
	return strings.Trim(value, keywordCutset)
}

// NormalizeKeyword trims list punctuation and lowercases a keyword.
func NormalizeKeyword(value string) string {
	return Lower(TrimPunctuation(value))
}

// SplitList splits a comma separated list, normalizing and de-duplicating
// each entry. Empty entries are dropped and first-seen order is kept.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return UniqueKeywords(strings.Split(value, ","))
}

// UniqueKeywords normalizes values and drops empties and duplicates.
func UniqueKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = NormalizeKeyword(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

var bracketed = regexp.MustCompile(`\s*(\[[^\]]*\]|\([^)]*\))`)

// StripBracketed removes bracketed and parenthesized segments such as
// "[videorecording]" or "(Motion picture)".
func StripBracketed(value string) string {
	return strings.Join(strings.Fields(bracketed.ReplaceAllString(value, "")), " ")
}

// JoinNames renders a list as "a, b and c".
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// Initials returns the uppercase first letter of each word, e.g. "Main Library" -> "ML".
func Initials(value string) string {
	var b strings.Builder
	for _, word := range strings.Fields(value) {
		for _, r := range word {
			b.WriteString(strings.ToUpper(string(r)))
			break
		}
	}
	return b.String()
}

// AuthorQuery formats a creator name for a title+author search.
// "Last, First Middle" becomes "Last+First"; names ending in ", inc" and
// names without a comma are used whole with parentheticals removed.
func AuthorQuery(name string) string {
	name = StripBracketed(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	lower := strings.ToLower(name)
	if strings.Contains(name, ",") && !strings.HasSuffix(strings.TrimRight(lower, ". "), ", inc") {
		parts := strings.SplitN(name, ",", 2)
		last := strings.TrimSpace(parts[0])
		rest := strings.Fields(TrimPunctuation(parts[1]))
		if len(rest) > 0 {
			return last + "+" + TrimPunctuation(rest[0])
		}
		return last
	}
	if idx := strings.Index(name, ","); idx >= 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}
