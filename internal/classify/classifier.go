package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fontana/internal/keywords"
	"fontana/internal/logging"
	"fontana/internal/termkeys"
	"fontana/internal/textutil"
)

// Root keyword terms.
const (
	KeywordDeweyKey  = "Dewey Key"
	KeywordMarcTerms = "Marc Terms"
)

// Topic parents for leftover genre and audience values.
const (
	TopicReadingLevel = "Reading Level"
	TopicSubGenre     = "Sub-Genre"
)

// AudienceAdult is the audience assigned when nothing else matched.
const AudienceAdult = "adult"

// Input is everything a classification needs from an item.
type Input struct {
	Buckets   keywords.Buckets
	Genres    []int64
	Audience  []int64
	ItemTypes []string
	Forms     []string
}

// Result holds the term ids to write. Genres and Topics are appended to the
// item's assignments; Audience replaces them.
type Result struct {
	Genres   []int64
	Audience []int64
	Topics   []int64
	Buckets  keywords.Buckets
}

// Classifier assigns genre, audience and topic terms from keyword buckets.
type Classifier struct {
	index  KeywordIndex
	topics TopicWriter
	logger *slog.Logger
}

// New creates a classifier.
func New(index KeywordIndex, topics TopicWriter, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Classifier{
		index:  index,
		topics: topics,
		logger: logging.NewComponentLogger(logger, "classify"),
	}
}

// state is the value threaded through the stages. Each stage returns an
// updated copy.
type state struct {
	buckets  keywords.Buckets
	genres   []int64
	audience []int64
	topics   []int64
}

func (s state) withGenres(ids ...int64) state {
	s.genres = appendIDs(append([]int64(nil), s.genres...), ids...)
	return s
}

func (s state) withAudience(ids ...int64) state {
	s.audience = appendIDs(append([]int64(nil), s.audience...), ids...)
	return s
}

func (s state) withTopics(ids ...int64) state {
	s.topics = appendIDs(append([]int64(nil), s.topics...), ids...)
	return s
}

// Classify runs every stage and records genre and audience completeness in
// report.
func (c *Classifier) Classify(ctx context.Context, set *termkeys.Set, in Input, report *Report) (Result, error) {
	if set == nil {
		return Result{}, fmt.Errorf("classify: term keys not loaded")
	}
	if report == nil {
		report = NewReport()
	}
	st := state{
		buckets:  in.Buckets,
		genres:   appendIDs(nil, in.Genres...),
		audience: appendIDs(nil, in.Audience...),
	}

	st = exactMatch(set, st)

	st, err := c.relatedTerms(ctx, set, st, in.ItemTypes)
	if err != nil {
		return Result{}, err
	}

	st, err = c.subTopics(ctx, set, st)
	if err != nil {
		return Result{}, err
	}

	genres, reason := cleanupGenres(set, st.genres, st.buckets.Dewey(), in.ItemTypes, in.Forms)
	c.logger.DebugContext(ctx, "genres cleaned up",
		logging.Args(logging.DecisionAttrs("genre_cleanup", fmt.Sprintf("%d genres", len(genres)), reason)...)...)
	st.genres = genres

	if len(st.audience) == 0 {
		if adult, ok := set.AudienceID(AudienceAdult); ok {
			st.audience = []int64{adult}
		}
		report.Set(KeyCheckAudience, false)
		c.logger.DebugContext(ctx, "audience defaulted",
			logging.Args(logging.DecisionAttrs("audience_default", AudienceAdult, "no audience matched")...)...)
	}

	if len(st.genres) > 0 {
		report.Set(KeyGenres, true)
	}
	if len(st.audience) > 0 {
		report.Set(KeyAudience, true)
	}

	return Result{
		Genres:   st.genres,
		Audience: st.audience,
		Topics:   st.topics,
		Buckets:  st.buckets,
	}, nil
}

// exactMatch assigns every bucket value that is verbatim a genre or audience
// name and removes it from the buckets.
func exactMatch(set *termkeys.Set, st state) state {
	for _, bucket := range keywords.All {
		var matched []string
		for _, value := range st.buckets.Get(bucket) {
			hit := false
			if id, ok := set.GenreID(value); ok {
				st = st.withGenres(id)
				hit = true
			}
			if id, ok := set.AudienceID(value); ok {
				st = st.withAudience(id)
				hit = true
			}
			if hit {
				matched = append(matched, value)
			}
		}
		st.buckets = st.buckets.Without(bucket, matched...)
	}
	return st
}

func (c *Classifier) relatedTerms(ctx context.Context, set *termkeys.Set, st state, itemTypes []string) (state, error) {
	for _, bucket := range []keywords.Bucket{keywords.Audience, keywords.Genres} {
		other, _ := bucket.Other()
		names := append(st.buckets.Get(bucket), st.buckets.Get(other)...)
		related, err := c.related(ctx, names, Filter{})
		if err != nil {
			return st, err
		}
		st = st.withAudience(related.Audience...).withGenres(related.Genres...)
	}

	if dewey := st.buckets.Dewey(); dewey.Text != "" && !dewey.HasNumeric {
		parent, _ := set.ParentKeyword(KeywordDeweyKey)
		related, err := c.related(ctx, []string{dewey.Value, dewey.Text}, Filter{Parent: parent})
		if err != nil {
			return st, err
		}
		st = st.addSecondary(related)
	}

	if len(st.audience) == 0 || len(st.genres) == 0 {
		exclude, _ := set.ParentKeyword(KeywordMarcTerms)
		related, err := c.related(ctx, st.buckets.Get(keywords.Topics), Filter{ExcludeTree: exclude})
		if err != nil {
			return st, err
		}
		st = st.addSecondary(related)
	}

	if len(itemTypes) > 0 {
		related, err := c.related(ctx, itemTypes, Filter{})
		if err != nil {
			return st, err
		}
		st = st.addSecondary(related)
	}
	return st, nil
}

// addSecondary adds related genres, and related audience only when none is
// assigned yet.
func (s state) addSecondary(r Related) state {
	if len(s.audience) == 0 {
		s = s.withAudience(r.Audience...)
	}
	return s.withGenres(r.Genres...)
}

func (c *Classifier) related(ctx context.Context, names []string, f Filter) (Related, error) {
	if c.index == nil || len(names) == 0 {
		return Related{}, nil
	}
	related, err := c.index.Related(ctx, names, f)
	if err != nil {
		return Related{}, fmt.Errorf("related terms: %w", err)
	}
	return related, nil
}

// subTopics files leftover audience and genre values as topics under the
// Reading Level and Sub-Genre parents.
func (c *Classifier) subTopics(ctx context.Context, set *termkeys.Set, st state) (state, error) {
	groups := []struct {
		parent string
		bucket keywords.Bucket
	}{
		{TopicReadingLevel, keywords.Audience},
		{TopicSubGenre, keywords.Genres},
	}
	for _, g := range groups {
		other, _ := g.bucket.Other()
		var values []string
		seen := map[string]struct{}{}
		for _, v := range append(st.buckets.Get(g.bucket), st.buckets.Get(other)...) {
			v = textutil.Lower(v)
			if v == "" || set.IsTermName(v) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		if len(values) == 0 {
			continue
		}
		ids, err := c.InsertTopics(ctx, g.parent, values)
		if err != nil {
			return st, err
		}
		st = st.withTopics(ids...)
	}
	return st, nil
}

// InsertTopics files values as topics under path. Path segments separated by
// ">" form a parent chain created from the root; a value written "a:::b"
// becomes a chain of its own below the last parent. Only the value terms are
// returned, not their parents.
func (c *Classifier) InsertTopics(ctx context.Context, path string, values []string) ([]int64, error) {
	if c.topics == nil || len(values) == 0 {
		return nil, nil
	}
	var parent int64
	for _, segment := range strings.Split(path, ">") {
		if segment = strings.TrimSpace(segment); segment == "" {
			continue
		}
		id, err := c.topics.EnsureTopic(ctx, segment, parent)
		if err != nil {
			return nil, fmt.Errorf("topic parent %q: %w", segment, err)
		}
		parent = id
	}

	var ids []int64
	for _, value := range values {
		current := parent
		for _, part := range strings.Split(value, ":::") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := c.topics.EnsureTopic(ctx, part, current)
			if err != nil {
				return nil, fmt.Errorf("topic %q: %w", part, err)
			}
			ids = appendIDs(ids, id)
			current = id
		}
	}
	return ids, nil
}
