package textutil

import (
	"regexp"
	"strings"
	"time"
)

var (
	isoDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)
	slashDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}`)
	digitsPattern    = regexp.MustCompile(`^\d{8,}`)
)

// FormatDate normalizes catalog change dates for comparison and storage.
//
//	""               -> today (YYYY-MM-DD)
//	"YYMMDD"         -> YYYY-MM-DD, years below 30 are 20xx
//	"MM/DD/YYYY"     -> YYYY-MM-DD
//	"YYYY-MM-DDT..." -> YYYY-MM-DD HH:MM:00
//	"YYYYMMDDHHMM.." -> YYYY-MM-DD HH:MM:00
//
// Anything else is returned trimmed.
func FormatDate(value string, now time.Time) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return now.Format("2006-01-02")
	}
	if len(value) == 6 && isDigits(value) {
		century := "19"
		if value[:2] < "30" {
			century = "20"
		}
		return century + value[:2] + "-" + value[2:4] + "-" + value[4:6]
	}
	if slashDatePattern.MatchString(value) {
		return value[6:10] + "-" + value[0:2] + "-" + value[3:5]
	}
	if isoDatePattern.MatchString(value) {
		if t, err := time.Parse(time.RFC3339, value); err == nil {
			return t.UTC().Format("2006-01-02 15:04:00")
		}
		compact := value[0:4] + value[5:7] + value[8:10]
		if len(value) >= 16 {
			compact += value[11:13] + value[14:16]
		}
		value = compact
	}
	if digitsPattern.MatchString(value) {
		padded := value
		for len(padded) < 12 {
			padded += "0"
		}
		return padded[0:4] + "-" + padded[4:6] + "-" + padded[6:8] + " " + padded[8:10] + ":" + padded[10:12] + ":00"
	}
	return value
}

// Today returns now as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.Format("2006-01-02")
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
