package termkeys

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"fontana/internal/store"
	"fontana/internal/textutil"
)

// OptionKey is the options row holding the cached set.
const OptionKey = "collection_term_lists"

// Set is a lookup table of genre and audience names, root keyword terms and
// the genre hierarchy.
type Set struct {
	Genres         map[string]int64  `json:"genres"`
	Audience       map[string]int64  `json:"audience"`
	ParentKeywords map[string]int64  `json:"parent_keywords"`
	Children       map[int64][]int64 `json:"children"`
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{
		Genres:         map[string]int64{},
		Audience:       map[string]int64{},
		ParentKeywords: map[string]int64{},
		Children:       map[int64][]int64{},
	}
}

// Build derives a set from taxonomy terms. A genre named "A & B" registers
// both "a" and "b"; the second part only when no other genre owns it.
func Build(genres, audience, keywordRoots []store.Term) *Set {
	set := NewSet()
	for _, g := range genres {
		parts := splitCompound(g.Name)
		if len(parts) == 0 {
			continue
		}
		if _, taken := set.Genres[parts[0]]; !taken {
			set.Genres[parts[0]] = g.ID
		}
		for _, extra := range parts[1:] {
			if _, taken := set.Genres[extra]; !taken {
				set.Genres[extra] = g.ID
			}
		}
		if g.ParentID >= 1 {
			set.addChild(g.ParentID, g.ID)
		}
	}
	for _, a := range audience {
		if name := textutil.Lower(strings.TrimSpace(a.Name)); name != "" {
			if _, taken := set.Audience[name]; !taken {
				set.Audience[name] = a.ID
			}
		}
	}
	for _, k := range keywordRoots {
		if k.ParentID == 0 && strings.TrimSpace(k.Name) != "" {
			set.ParentKeywords[strings.TrimSpace(k.Name)] = k.ID
		}
	}
	return set
}

func splitCompound(name string) []string {
	name = strings.ReplaceAll(textutil.Lower(strings.TrimSpace(name)), " &amp; ", " & ")
	var parts []string
	for _, part := range strings.Split(name, " & ") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// addChild records child under parent. The parent is listed in its own
// child list.
func (s *Set) addChild(parent, child int64) {
	list := s.Children[parent]
	if !containsID(list, child) {
		list = append(list, child)
	}
	if !containsID(list, parent) {
		list = append(list, parent)
	}
	s.Children[parent] = list
}

// GenreID returns the genre term id registered for name.
func (s *Set) GenreID(name string) (int64, bool) {
	id, ok := s.Genres[textutil.Lower(strings.TrimSpace(name))]
	return id, ok
}

// AudienceID returns the audience term id registered for name.
func (s *Set) AudienceID(name string) (int64, bool) {
	id, ok := s.Audience[textutil.Lower(strings.TrimSpace(name))]
	return id, ok
}

// ParentKeyword returns the id of a root keyword term.
func (s *Set) ParentKeyword(name string) (int64, bool) {
	id, ok := s.ParentKeywords[strings.TrimSpace(name)]
	return id, ok
}

// IsTermName reports whether value names a genre or an audience.
func (s *Set) IsTermName(value string) bool {
	_, genre := s.GenreID(value)
	_, audience := s.AudienceID(value)
	return genre || audience
}

// ChildrenOf returns the children of the named genre, including the genre
// itself. An unknown name yields nil.
func (s *Set) ChildrenOf(name string) []int64 {
	id, ok := s.GenreID(name)
	if !ok {
		return nil
	}
	return append([]int64(nil), s.Children[id]...)
}

func containsID(list []int64, id int64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// Store is the persistence the cache needs.
type Store interface {
	TermsByTaxonomy(ctx context.Context, taxonomy string) ([]store.Term, error)
	GetOption(ctx context.Context, key string) (string, bool, error)
	SetOption(ctx context.Context, key, value string) error
}

// Cache holds the current Set. Reads are served from memory after the first
// load; only Refresh rebuilds from the taxonomies.
type Cache struct {
	store Store

	mu  sync.RWMutex
	set *Set
}

// NewCache creates a cache backed by st.
func NewCache(st Store) *Cache {
	return &Cache{store: st}
}

// Get returns the cached set, loading it from the options table. When no
// set has ever been stored, one is built.
func (c *Cache) Get(ctx context.Context) (*Set, error) {
	c.mu.RLock()
	set := c.set
	c.mu.RUnlock()
	if set != nil {
		return set, nil
	}

	raw, ok, err := c.store.GetOption(ctx, OptionKey)
	if err != nil {
		return nil, fmt.Errorf("load term keys: %w", err)
	}
	if !ok {
		return c.Refresh(ctx)
	}
	loaded := NewSet()
	if err := json.Unmarshal([]byte(raw), loaded); err != nil {
		return nil, fmt.Errorf("decode term keys: %w", err)
	}
	c.mu.Lock()
	if c.set == nil {
		c.set = loaded
	}
	set = c.set
	c.mu.Unlock()
	return set, nil
}

// Refresh rebuilds the set from the genre, audience and keyword taxonomies
// and stores it.
func (c *Cache) Refresh(ctx context.Context) (*Set, error) {
	genres, err := c.store.TermsByTaxonomy(ctx, store.TaxGenres)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	audience, err := c.store.TermsByTaxonomy(ctx, store.TaxAudience)
	if err != nil {
		return nil, fmt.Errorf("list audience: %w", err)
	}
	keywords, err := c.store.TermsByTaxonomy(ctx, store.TaxKeyword)
	if err != nil {
		return nil, fmt.Errorf("list keywords: %w", err)
	}
	set := Build(genres, audience, keywords)

	data, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode term keys: %w", err)
	}
	if err := c.store.SetOption(ctx, OptionKey, string(data)); err != nil {
		return nil, fmt.Errorf("store term keys: %w", err)
	}
	c.mu.Lock()
	c.set = set
	c.mu.Unlock()
	return set, nil
}

// Missing returns the names, from required, that have no genre term.
func (s *Set) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := s.GenreID(name); !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
