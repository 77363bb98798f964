package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fontana/internal/textutil"
)

const termColumns = "id, taxonomy, name, slug, parent_id, meta_json"

// CreateTerm inserts a taxonomy term. An empty slug is derived from the name.
func (s *Store) CreateTerm(ctx context.Context, term Term) (Term, error) {
	term.Name = strings.TrimSpace(term.Name)
	if term.Name == "" {
		return Term{}, errors.New("term name is required")
	}
	if term.Slug == "" {
		term.Slug = textutil.Slugify(term.Name)
	}
	meta, err := encodeMap(term.Meta)
	if err != nil {
		return Term{}, fmt.Errorf("encode term meta: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO terms (taxonomy, name, slug, parent_id, meta_json) VALUES (?, ?, ?, ?, ?)`,
		term.Taxonomy, term.Name, term.Slug, term.ParentID, meta,
	)
	if err != nil {
		return Term{}, fmt.Errorf("insert term %q: %w", term.Name, err)
	}
	if term.ID, err = res.LastInsertId(); err != nil {
		return Term{}, fmt.Errorf("last insert id: %w", err)
	}
	if term.Meta == nil {
		term.Meta = map[string]string{}
	}
	return term, nil
}

// GetTerm fetches a term by id. A missing term yields nil, nil.
func (s *Store) GetTerm(ctx context.Context, id int64) (*Term, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+termColumns+` FROM terms WHERE id = ?`, id)
	term, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get term: %w", err)
	}
	return &term, nil
}

// TermBySlug fetches a term by taxonomy and slug. A missing term yields nil, nil.
func (s *Store) TermBySlug(ctx context.Context, taxonomy, slug string) (*Term, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM terms WHERE taxonomy = ? AND slug = ?`, taxonomy, slug)
	term, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("term by slug: %w", err)
	}
	return &term, nil
}

// TermByName fetches the first term under parentID whose name matches case-insensitively.
// A negative parentID matches any parent.
func (s *Store) TermByName(ctx context.Context, taxonomy, name string, parentID int64) (*Term, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM terms
         WHERE taxonomy = ? AND lower(name) = lower(?) AND (? < 0 OR parent_id = ?)
         ORDER BY id LIMIT 1`,
		taxonomy, strings.TrimSpace(name), parentID, parentID,
	)
	term, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("term by name: %w", err)
	}
	return &term, nil
}

// TermByMeta returns the first term in taxonomy whose meta key equals value.
func (s *Store) TermByMeta(ctx context.Context, taxonomy, key, value string) (*Term, error) {
	terms, err := s.TermsByTaxonomy(ctx, taxonomy)
	if err != nil {
		return nil, err
	}
	for i := range terms {
		if terms[i].Meta[key] == value {
			return &terms[i], nil
		}
	}
	return nil, nil
}

// TermsByTaxonomy lists every term in a taxonomy ordered by id.
func (s *Store) TermsByTaxonomy(ctx context.Context, taxonomy string) ([]Term, error) {
	return s.queryTerms(ctx, `SELECT `+termColumns+` FROM terms WHERE taxonomy = ? ORDER BY id`, taxonomy)
}

// TermsByIDs fetches terms by id preserving the caller's order.
func (s *Store) TermsByIDs(ctx context.Context, ids []int64) ([]Term, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	terms, err := s.queryTerms(ctx,
		`SELECT `+termColumns+` FROM terms WHERE id IN (`+makePlaceholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]Term, len(terms))
	for _, term := range terms {
		byID[term.ID] = term
	}
	ordered := make([]Term, 0, len(terms))
	for _, id := range ids {
		if term, ok := byID[id]; ok {
			ordered = append(ordered, term)
		}
	}
	return ordered, nil
}

// KeywordQuery filters keyword-taxonomy lookups.
type KeywordQuery struct {
	Name string
	// ParentID restricts matches to direct children of a term.
	ParentID int64
	// ExcludeTreeID drops the named term and all of its descendants.
	ExcludeTreeID int64
}

// KeywordTerms returns childless keyword terms named q.Name.
func (s *Store) KeywordTerms(ctx context.Context, q KeywordQuery) ([]Term, error) {
	terms, err := s.queryTerms(ctx,
		`WITH RECURSIVE excluded(id) AS (
             SELECT id FROM terms WHERE id = ?
             UNION
             SELECT t.id FROM terms t JOIN excluded e ON t.parent_id = e.id
         )
         SELECT `+termColumns+` FROM terms
         WHERE taxonomy = ? AND lower(name) = lower(?)
           AND (? = 0 OR parent_id = ?)
           AND id NOT IN (SELECT id FROM excluded)
           AND NOT EXISTS (SELECT 1 FROM terms c WHERE c.parent_id = terms.id)
         ORDER BY id`,
		q.ExcludeTreeID, TaxKeyword, strings.TrimSpace(q.Name), q.ParentID, q.ParentID,
	)
	if err != nil {
		return nil, fmt.Errorf("keyword terms: %w", err)
	}
	return terms, nil
}

// EnsureTerm returns the term named name under parentID, creating it when missing.
func (s *Store) EnsureTerm(ctx context.Context, taxonomy, name string, parentID int64) (Term, error) {
	existing, err := s.TermByName(ctx, taxonomy, name, parentID)
	if err != nil {
		return Term{}, err
	}
	if existing != nil {
		return *existing, nil
	}
	base := textutil.Slugify(name)
	slug := base
	for n := 2; ; n++ {
		clash, err := s.TermBySlug(ctx, taxonomy, slug)
		if err != nil {
			return Term{}, err
		}
		if clash == nil {
			break
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	return s.CreateTerm(ctx, Term{Taxonomy: taxonomy, Name: strings.TrimSpace(name), Slug: slug, ParentID: parentID})
}

func (s *Store) queryTerms(ctx context.Context, query string, args ...any) ([]Term, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var terms []Term
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

func scanTerm(scanner interface{ Scan(dest ...any) error }) (Term, error) {
	var (
		term Term
		meta sql.NullString
	)
	if err := scanner.Scan(&term.ID, &term.Taxonomy, &term.Name, &term.Slug, &term.ParentID, &meta); err != nil {
		return Term{}, err
	}
	decoded, err := decodeMap(meta.String)
	if err != nil {
		return Term{}, fmt.Errorf("decode term meta: %w", err)
	}
	term.Meta = decoded
	return term, nil
}
