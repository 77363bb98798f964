package keywords

import (
	"strings"
)

// EvergreenFields are the comma separated MARC-derived keyword fields of a
// union catalog record.
type EvergreenFields struct {
	MarcGenre     string
	OtherGenre    string
	MarcAudience  string
	OtherAudience string
	Topic         string
	DDC           string
	SeriesLabel   string
}

// FromEvergreen builds buckets from a union catalog record. Abbreviation
// stubs such as "etc." are dropped.
func FromEvergreen(f EvergreenFields) Buckets {
	topics := append(split(f.Topic), f.SeriesLabel)
	lists := map[Bucket][]string{
		Genres:        dropStubs(split(f.MarcGenre)),
		Audience:      dropStubs(split(f.MarcAudience)),
		Topics:        dropStubs(topics),
		GenresOther:   dropStubs(split(f.OtherGenre)),
		AudienceOther: dropStubs(split(f.OtherAudience)),
	}
	return New(lists, ParseDewey(f.DDC))
}

// OverdriveFields are the keyword fields of a lending platform record.
type OverdriveFields struct {
	Subjects []string
	Interest []string
	Keywords []string
	Grade    []string
	ATOS     string
	Lexile   string
}

// FromOverdrive builds buckets from lending platform metadata. Interest
// levels, Lexile and ATOS scores become labelled audience_other entries.
func FromOverdrive(f OverdriveFields) Buckets {
	other := append([]string(nil), f.Grade...)
	for _, level := range f.Interest {
		if level = strings.TrimSpace(level); level != "" {
			other = append(other, "Interest Level: "+level)
		}
	}
	if lexile := strings.TrimSpace(f.Lexile); lexile != "" {
		other = append(other, lexile+"L Lexile")
	}
	if atos := strings.TrimSpace(f.ATOS); atos != "" {
		other = append(other, "ATOS: "+atos)
	}
	return New(map[Bucket][]string{
		Audience:      f.Interest,
		Topics:        f.Keywords,
		GenresOther:   f.Subjects,
		AudienceOther: other,
	}, Dewey{})
}

func split(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, ",")
}

func dropStubs(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), "etc.") && len(v) < 7 {
			continue
		}
		out = append(out, v)
	}
	return out
}
