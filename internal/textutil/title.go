package textutil

import "strings"

// TitleParts are the MODS title components of a catalog record.
type TitleParts struct {
	NonSort    string
	Title      string
	SubTitle   string
	PartNumber string
	PartName   string
}

// FormatTitle joins title parts: "The Hobbit: or There and Back Again (Part 1 - Name)".
func FormatTitle(p TitleParts) string {
	var b strings.Builder
	if s := strings.TrimSpace(p.NonSort); s != "" {
		b.WriteString(s)
		b.WriteByte(' ')
	}
	b.WriteString(strings.TrimSpace(p.Title))
	if p.SubTitle != "" {
		b.WriteString(": ")
		b.WriteString(p.SubTitle)
	}
	switch {
	case p.PartNumber != "" && p.PartName != "":
		b.WriteString(" (" + p.PartNumber + " - " + p.PartName + ")")
	case p.PartNumber != "":
		b.WriteString(" (" + p.PartNumber + ")")
	case p.PartName != "":
		b.WriteString(" (" + p.PartName + ")")
	}
	return b.String()
}

// NormalizeISBN strips non-digits; a nine digit result gains its X check digit back.
func NormalizeISBN(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) == 9 {
		out += "X"
	}
	return out
}
