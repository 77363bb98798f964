package textutil

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty is today", "", "2026-10-14"},
		{"six digit recent", "190412", "2019-04-12"},
		{"six digit last century", "980101", "1998-01-01"},
		{"slash date", "03/07/2021", "2021-03-07"},
		{"marc datetime", "20210307153012.0", "2021-03-07 15:30:00"},
		{"iso datetime", "2021-03-07T15:30:12Z", "2021-03-07 15:30:00"},
		{"unrecognized", " sometime ", "sometime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.input, now); got != tt.want {
				t.Errorf("FormatDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		parts TitleParts
		want  string
	}{
		{TitleParts{NonSort: "The ", Title: "Hobbit"}, "The Hobbit"},
		{TitleParts{Title: "Dune", SubTitle: "a novel"}, "Dune: a novel"},
		{TitleParts{Title: "Friends", PartNumber: "Season 2"}, "Friends (Season 2)"},
		{TitleParts{Title: "Friends", PartNumber: "Season 2", PartName: "Disc 1"}, "Friends (Season 2 - Disc 1)"},
		{TitleParts{Title: "Atlas", PartName: "Europe"}, "Atlas (Europe)"},
	}
	for _, tt := range tests {
		if got := FormatTitle(tt.parts); got != tt.want {
			t.Errorf("FormatTitle(%+v) = %q, want %q", tt.parts, got, tt.want)
		}
	}
}

func TestNormalizeISBN(t *testing.T) {
	if got := NormalizeISBN("0-306-40615-2 (pbk.)"); got != "0306406152" {
		t.Errorf("unexpected isbn: %q", got)
	}
	if got := NormalizeISBN("080442957X"); got != "080442957X" {
		t.Errorf("expected X check digit restored, got %q", got)
	}
}

func TestSplitListNormalizesAndDeduplicates(t *testing.T) {
	got := SplitList(" Fiction., fiction ; ,Mystery/ ,")
	want := []string{"fiction", "mystery"}
	if len(got) != len(want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SplitList = %v, want %v", got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Graphic Novel":        "graphic-novel",
		"Science &amp; Nature": "science-nature",
		"Café Société":         "cafe-societe",
		"  Reading Level  ":    "reading-level",
	}
	for input, want := range tests {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAuthorQuery(t *testing.T) {
	tests := map[string]string{
		"Tolkien, J. R. R. (John Ronald Reuel)": "Tolkien+J",
		"Christie, Agatha, 1890-1976":           "Christie+Agatha",
		"Marvel Comics, Inc.":                   "Marvel Comics",
		"Homer":                                 "Homer",
	}
	for input, want := range tests {
		if got := AuthorQuery(input); got != want {
			t.Errorf("AuthorQuery(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestJoinNamesAndInitials(t *testing.T) {
	if got := JoinNames([]string{"Bryson City", "Robbinsville", "Sylva"}); got != "Bryson City, Robbinsville and Sylva" {
		t.Errorf("unexpected join: %q", got)
	}
	if got := JoinNames([]string{"Sylva"}); got != "Sylva" {
		t.Errorf("unexpected single join: %q", got)
	}
	if got := Initials("Marianna Black Library"); got != "MBL" {
		t.Errorf("unexpected initials: %q", got)
	}
}

func TestStripBracketed(t *testing.T) {
	if got := StripBracketed("Frozen [videorecording] (Motion picture : 2013)"); got != "Frozen" {
		t.Errorf("unexpected strip: %q", got)
	}
}
