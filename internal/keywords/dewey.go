package keywords

import (
	"regexp"
	"strconv"
	"strings"

	"fontana/internal/textutil"
)

// Dewey is a parsed Dewey Decimal call number. Numeric is the class number
// ("741.5" from "741.5 SMI"); Text is the remaining label ("smi"), used to
// match keyword terms when a call number has no numeric part (e.g. "FIC").
type Dewey struct {
	Value      string
	Numeric    float64
	HasNumeric bool
	Text       string
}

var (
	deweyNonNumeric = regexp.MustCompile(`[^ .0-9]`)
	deweyNumeric    = regexp.MustCompile(`^[0-9]*\.?[0-9]*`)
	deweyMarks      = regexp.MustCompile(`[\d/\\.\[\]]`)
)

// ParseDewey splits a call number into its numeric class and text label.
func ParseDewey(value string) Dewey {
	value = strings.TrimSpace(value)
	if value == "" {
		return Dewey{}
	}
	d := Dewey{Value: value}

	digits := strings.TrimSpace(deweyNonNumeric.ReplaceAllString(value, ""))
	digits = strings.Trim(strings.TrimLeft(digits, "0"), ".")
	if prefix := deweyNumeric.FindString(digits); prefix != "" && prefix != "." {
		if n, err := strconv.ParseFloat(strings.TrimSuffix(prefix, "."), 64); err == nil && n != 0 {
			d.Numeric = n
			d.HasNumeric = true
		}
	}

	d.Text = textutil.Lower(strings.TrimSpace(deweyMarks.ReplaceAllString(value, " ")))
	return d
}
