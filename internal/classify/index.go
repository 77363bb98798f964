package classify

import (
	"context"
	"fmt"
	"strings"

	"fontana/internal/store"
)

// Filter restricts a keyword lookup to the children of Parent and/or away
// from the subtree rooted at ExcludeTree. Zero disables either filter.
type Filter struct {
	Parent      int64
	ExcludeTree int64
}

// Related are the genre and audience ids linked from matched keyword terms.
type Related struct {
	Genres   []int64
	Audience []int64
}

// KeywordIndex finds keyword-taxonomy terms by name.
type KeywordIndex interface {
	Related(ctx context.Context, names []string, f Filter) (Related, error)
}

// TopicWriter creates or finds topic terms.
type TopicWriter interface {
	EnsureTopic(ctx context.Context, name string, parentID int64) (int64, error)
}

// TermStore is the subset of the store backing StoreIndex.
type TermStore interface {
	KeywordTerms(ctx context.Context, q store.KeywordQuery) ([]store.Term, error)
	EnsureTerm(ctx context.Context, taxonomy, name string, parentID int64) (store.Term, error)
}

// StoreIndex implements KeywordIndex and TopicWriter over the SQLite store.
type StoreIndex struct {
	store TermStore
}

// NewStoreIndex wraps st.
func NewStoreIndex(st TermStore) *StoreIndex {
	return &StoreIndex{store: st}
}

// Related looks up childless keyword terms for each name and collects their
// related_genres and related_audience meta ids.
func (s *StoreIndex) Related(ctx context.Context, names []string, f Filter) (Related, error) {
	var out Related
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		terms, err := s.store.KeywordTerms(ctx, store.KeywordQuery{
			Name:          name,
			ParentID:      f.Parent,
			ExcludeTreeID: f.ExcludeTree,
		})
		if err != nil {
			return Related{}, fmt.Errorf("keyword %q: %w", name, err)
		}
		for _, term := range terms {
			out.Genres = appendIDs(out.Genres, term.MetaIDs("related_genres")...)
			out.Audience = appendIDs(out.Audience, term.MetaIDs("related_audience")...)
		}
	}
	return out, nil
}

// EnsureTopic returns the topic term named name under parentID, creating it.
func (s *StoreIndex) EnsureTopic(ctx context.Context, name string, parentID int64) (int64, error) {
	term, err := s.store.EnsureTerm(ctx, store.TaxTopics, name, parentID)
	if err != nil {
		return 0, err
	}
	return term.ID, nil
}

// appendIDs appends positive ids not already in list.
func appendIDs(list []int64, ids ...int64) []int64 {
	for _, id := range ids {
		if id <= 0 || contains(list, id) {
			continue
		}
		list = append(list, id)
	}
	return list
}

func contains(list []int64, id int64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
