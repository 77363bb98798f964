package classify

import (
	"strings"

	"fontana/internal/keywords"
	"fontana/internal/termkeys"
)

// Genre names the cleanup rules depend on.
const (
	GenreFiction      = "fiction"
	GenreNonfiction   = "nonfiction"
	GenreGraphicNovel = "graphic novel"
	GenreBiography    = "biography"
	GenrePoetry       = "poetry"
	GenrePuzzle       = "puzzle"
	GenreMagazines    = "magazines"
	GenreVideo        = "video"
	GenreDocumentary  = "documentary"
	GenreMusic        = "music"
)

type span struct{ lo, hi float64 }

// Open intervals: a bound itself never matches.
var (
	graphicNovelSpans = []span{{739, 742}}
	biographySpans    = []span{{919, 921}, {758, 760}, {708, 710}, {608, 610}, {508, 510}, {408, 410}, {269, 271}, {108, 110}}
	poetrySpans       = []span{{810, 812}, {820, 822}, {830, 832}, {840, 842}, {850, 852}, {860, 862}, {870, 875}, {880, 885}}
)

func inSpans(d float64, spans []span) bool {
	for _, s := range spans {
		if d > s.lo && d < s.hi {
			return true
		}
	}
	return false
}

// DeweyGenre maps a Dewey class number to a fallback genre name. It reports
// false for numbers that imply no genre (770 up to 900).
func DeweyGenre(d float64) (string, bool) {
	switch {
	case inSpans(d, graphicNovelSpans):
		return GenreGraphicNovel, true
	case inSpans(d, biographySpans):
		return GenreBiography, true
	case inSpans(d, poetrySpans):
		return GenrePoetry, true
	case d < 770 || d >= 900:
		return GenreNonfiction, true
	}
	return "", false
}

// cleanupGenres resolves conflicting genre assignments. Rules apply in
// priority order: Dewey fallback for an item with no genre, puzzle,
// magazines, video, and finally the fiction/nonfiction partition.
func cleanupGenres(set *termkeys.Set, genres []int64, dewey keywords.Dewey, itemTypes, forms []string) ([]int64, string) {
	if len(genres) == 0 && dewey.HasNumeric {
		if name, ok := DeweyGenre(dewey.Numeric); ok {
			if id, found := set.GenreID(name); found {
				return []int64{id}, "dewey " + name
			}
			return nil, "dewey " + name + " term missing"
		}
	}

	puzzle, hasPuzzle := set.GenreID(GenrePuzzle)
	if hasPuzzle && (hasValue(forms, "puzzle") || (hasValue(itemTypes, "three dimensional object") && contains(genres, puzzle))) {
		return []int64{puzzle}, "puzzle"
	}

	if magazines, ok := set.GenreID(GenreMagazines); ok && contains(genres, magazines) {
		return []int64{magazines}, "magazines"
	}

	nonfictionChildren := set.ChildrenOf(GenreNonfiction)
	fictionChildren := set.ChildrenOf(GenreFiction)
	videoChildren := set.ChildrenOf(GenreVideo)
	nonFicCheck := intersect(nonfictionChildren, genres)

	if isVideo(itemTypes) {
		var out []int64
		if video, ok := set.GenreID(GenreVideo); ok {
			out = append(out, video)
		}
		for _, id := range videoChildren {
			if contains(genres, id) {
				out = appendIDs(out, id)
			}
		}
		if len(nonFicCheck) > 0 {
			if documentary, ok := set.GenreID(GenreDocumentary); ok {
				out = appendIDs(out, documentary)
			}
		}
		return out, "video"
	}

	music, hasMusic := set.GenreID(GenreMusic)
	text := hasValue(itemTypes, "text")
	kept := make([]int64, 0, len(genres))
	for _, id := range genres {
		if (hasPuzzle && id == puzzle) || contains(videoChildren, id) {
			continue
		}
		if text && hasMusic && id == music {
			continue
		}
		kept = append(kept, id)
	}

	fictionCheck := intersect(fictionChildren, genres)
	drop, reason := fictionChildren, "nonfiction"
	if len(fictionCheck) > len(nonFicCheck) {
		drop, reason = nonfictionChildren, "fiction"
	}
	out := make([]int64, 0, len(kept))
	for _, id := range kept {
		if !contains(drop, id) {
			out = append(out, id)
		}
	}
	return out, reason
}

func isVideo(itemTypes []string) bool {
	return hasValue(itemTypes, "moving image") || hasValue(itemTypes, "video")
}

func hasValue(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), want) {
			return true
		}
	}
	return false
}

func intersect(candidates, assigned []int64) []int64 {
	var out []int64
	for _, id := range candidates {
		if contains(assigned, id) {
			out = append(out, id)
		}
	}
	return out
}
