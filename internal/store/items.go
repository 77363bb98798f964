package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const itemColumns = "id, title, collection, library, record_id, status, item_types_json, forms_json, identifiers_json, alt_titles_json, creator, date_issued, part_number, cover_url, verify, check_fail_count, check_fail_at, record_change_date, active_date, term_keys_json, holdings_json, goodreads_id, openlibrary_id, google_book_id, imdb_id, rating, created_at, updated_at"

// CreateItem inserts a new collection item and its term assignments.
func (s *Store) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	if item == nil {
		return nil, errors.New("item is nil")
	}
	if strings.TrimSpace(item.RecordID) == "" {
		return nil, errors.New("item record id is required")
	}
	if item.Status == "" {
		item.Status = StatusDraft
	}
	args, err := itemArgs(item)
	if err != nil {
		return nil, err
	}
	now := s.timestamp()

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO items (
                title, collection, library, record_id, status, item_types_json, forms_json, identifiers_json,
                alt_titles_json, creator, date_issued, part_number, cover_url, verify, check_fail_count,
                check_fail_at, record_change_date, active_date, term_keys_json, holdings_json, goodreads_id,
                openlibrary_id, google_book_id, imdb_id, rating, created_at, updated_at
            ) VALUES (`+makePlaceholders(27)+`)`,
			append(args, now, now)...,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return replaceTerms(ctx, tx, id, item.Terms)
	})
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	return s.GetItem(ctx, id)
}

// GetItem fetches an item by identifier. A missing item yields nil, nil.
func (s *Store) GetItem(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if err := s.loadTerms(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// FindItemByRecord returns the item imported from the given source record.
func (s *Store) FindItemByRecord(ctx context.Context, collection Collection, recordID string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE collection = ? AND record_id = ?`,
		string(collection), recordID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item by record: %w", err)
	}
	if err := s.loadTerms(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem persists every field of an existing item, replacing its term assignments.
func (s *Store) UpdateItem(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	args, err := itemArgs(item)
	if err != nil {
		return err
	}
	item.UpdatedAt = s.now().UTC()
	args = append(args, item.UpdatedAt.Format(time.RFC3339Nano), item.ID)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE items
             SET title = ?, collection = ?, library = ?, record_id = ?, status = ?, item_types_json = ?,
                 forms_json = ?, identifiers_json = ?, alt_titles_json = ?, creator = ?, date_issued = ?,
                 part_number = ?, cover_url = ?, verify = ?, check_fail_count = ?, check_fail_at = ?,
                 record_change_date = ?, active_date = ?, term_keys_json = ?, holdings_json = ?,
                 goodreads_id = ?, openlibrary_id = ?, google_book_id = ?, imdb_id = ?, rating = ?,
                 updated_at = ?
             WHERE id = ?`,
			args...,
		)
		if err != nil {
			return err
		}
		if rows, err := res.RowsAffected(); err == nil && rows == 0 {
			return ErrNotFound
		}
		return replaceTerms(ctx, tx, item.ID, item.Terms)
	})
	if err != nil {
		return fmt.Errorf("update item %d: %w", item.ID, err)
	}
	return nil
}

// ItemsByIDs returns the existing items for ids, preserving the caller's order.
func (s *Store) ItemsByIDs(ctx context.Context, ids []int64) ([]*Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	items, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id IN (`+makePlaceholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("items by ids: %w", err)
	}
	byID := make(map[int64]*Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	ordered := make([]*Item, 0, len(items))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			ordered = append(ordered, item)
			delete(byID, id)
		}
	}
	return ordered, nil
}

// FailedItems returns up to limit items with a nonzero failure count, oldest source change first.
// An empty library matches every library.
func (s *Store) FailedItems(ctx context.Context, collection Collection, library string, limit int) ([]*Item, error) {
	items, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items
         WHERE collection = ? AND check_fail_count > 0 AND (? = '' OR library = ?)
         ORDER BY record_change_date ASC, id ASC LIMIT ?`,
		string(collection), library, library, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed items: %w", err)
	}
	return items, nil
}

// CountFailed returns the number of items with a nonzero failure count.
func (s *Store) CountFailed(ctx context.Context, collection Collection, library string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM items WHERE collection = ? AND check_fail_count > 0 AND (? = '' OR library = ?)`,
		string(collection), library, library,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}

// StaleHoldings returns Evergreen items whose last holdings sync is before cutoff (YYYY-MM-DD).
func (s *Store) StaleHoldings(ctx context.Context, cutoff string, limit int) ([]*Item, error) {
	items, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items
         WHERE collection = ? AND status != ? AND (active_date IS NULL OR active_date < ?)
         ORDER BY active_date ASC, id ASC LIMIT ?`,
		string(CollectionEvergreen), string(StatusTrash), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("stale holdings: %w", err)
	}
	return items, nil
}

// StaleOverdrive returns lending-platform items for library whose change date is before cutoff.
func (s *Store) StaleOverdrive(ctx context.Context, library, cutoff string, limit int) ([]*Item, error) {
	items, err := s.queryItems(ctx,
		`SELECT `+itemColumns+` FROM items
         WHERE collection = ? AND library = ? AND status != ?
           AND (record_change_date IS NULL OR record_change_date < ?)
         ORDER BY record_change_date ASC, id ASC LIMIT ?`,
		string(CollectionOverdrive), library, string(StatusTrash), cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("stale overdrive items: %w", err)
	}
	return items, nil
}

// Libraries lists the distinct lending-platform library keys.
func (s *Store) Libraries(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT library FROM items WHERE collection = ? AND library IS NOT NULL AND library != '' ORDER BY library`,
		string(CollectionOverdrive),
	)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var library string
		if err := rows.Scan(&library); err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		out = append(out, library)
	}
	return out, rows.Err()
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for _, item := range items {
		if err := s.loadTerms(ctx, item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (s *Store) loadTerms(ctx context.Context, item *Item) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT taxonomy, term_id FROM item_terms WHERE item_id = ? ORDER BY taxonomy, position`, item.ID)
	if err != nil {
		return fmt.Errorf("load item terms: %w", err)
	}
	defer rows.Close()
	item.Terms = map[string][]int64{}
	for rows.Next() {
		var (
			taxonomy string
			termID   int64
		)
		if err := rows.Scan(&taxonomy, &termID); err != nil {
			return fmt.Errorf("scan item term: %w", err)
		}
		item.Terms[taxonomy] = append(item.Terms[taxonomy], termID)
	}
	return rows.Err()
}

func replaceTerms(ctx context.Context, tx *sql.Tx, itemID int64, terms map[string][]int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_terms WHERE item_id = ?`, itemID); err != nil {
		return err
	}
	for taxonomy, ids := range terms {
		seen := make(map[int64]struct{}, len(ids))
		position := 0
		for _, termID := range ids {
			if termID <= 0 {
				continue
			}
			if _, dup := seen[termID]; dup {
				continue
			}
			seen[termID] = struct{}{}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO item_terms (item_id, taxonomy, term_id, position) VALUES (?, ?, ?, ?)`,
				itemID, taxonomy, termID, position,
			); err != nil {
				return fmt.Errorf("assign %s term %d: %w", taxonomy, termID, err)
			}
			position++
		}
	}
	return nil
}

func itemArgs(item *Item) ([]any, error) {
	itemTypes, err := encodeJSON(item.ItemTypes)
	if err != nil {
		return nil, fmt.Errorf("encode item types: %w", err)
	}
	forms, err := encodeJSON(item.Forms)
	if err != nil {
		return nil, fmt.Errorf("encode forms: %w", err)
	}
	identifiers, err := encodeJSON(item.Identifiers)
	if err != nil {
		return nil, fmt.Errorf("encode identifiers: %w", err)
	}
	altTitles, err := encodeJSON(item.AltTitles)
	if err != nil {
		return nil, fmt.Errorf("encode alt titles: %w", err)
	}
	holdings, err := encodeJSON(item.Holdings)
	if err != nil {
		return nil, fmt.Errorf("encode holdings: %w", err)
	}
	var rating any
	if item.Rating > 0 {
		rating = item.Rating
	}
	return []any{
		item.Title,
		string(item.Collection),
		nullableString(item.Library),
		item.RecordID,
		string(item.Status),
		itemTypes,
		forms,
		identifiers,
		altTitles,
		nullableString(item.Creator),
		nullableString(item.DateIssued),
		nullableString(item.PartNumber),
		nullableString(item.CoverURL),
		nullableString(item.Verify),
		item.CheckFailCount,
		nullableTime(item.CheckFailAt),
		nullableString(item.RecordChangeDate),
		nullableString(item.ActiveDate),
		nullableString(item.TermKeysJSON),
		holdings,
		nullableString(item.GoodreadsID),
		nullableString(item.OpenLibraryID),
		nullableString(item.GoogleBookID),
		nullableString(item.IMDbID),
		rating,
	}, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item          Item
		collection    string
		status        string
		library       sql.NullString
		itemTypes     sql.NullString
		forms         sql.NullString
		identifiers   sql.NullString
		altTitles     sql.NullString
		creator       sql.NullString
		dateIssued    sql.NullString
		partNumber    sql.NullString
		coverURL      sql.NullString
		verify        sql.NullString
		failAt        sql.NullString
		changeDate    sql.NullString
		activeDate    sql.NullString
		termKeys      sql.NullString
		holdings      sql.NullString
		goodreadsID   sql.NullString
		openLibraryID sql.NullString
		googleBookID  sql.NullString
		imdbID        sql.NullString
		rating        sql.NullFloat64
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)
	if err := scanner.Scan(
		&item.ID, &item.Title, &collection, &library, &item.RecordID, &status,
		&itemTypes, &forms, &identifiers, &altTitles, &creator, &dateIssued, &partNumber,
		&coverURL, &verify, &item.CheckFailCount, &failAt, &changeDate, &activeDate,
		&termKeys, &holdings, &goodreadsID, &openLibraryID, &googleBookID, &imdbID, &rating,
		&createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}

	item.Collection = Collection(collection)
	item.Status = Status(status)
	item.Library = library.String
	item.Creator = creator.String
	item.DateIssued = dateIssued.String
	item.PartNumber = partNumber.String
	item.CoverURL = coverURL.String
	item.Verify = verify.String
	item.RecordChangeDate = changeDate.String
	item.ActiveDate = activeDate.String
	item.TermKeysJSON = termKeys.String
	item.GoodreadsID = goodreadsID.String
	item.OpenLibraryID = openLibraryID.String
	item.GoogleBookID = googleBookID.String
	item.IMDbID = imdbID.String
	item.Rating = rating.Float64

	var err error
	if item.ItemTypes, err = decodeJSON[string](itemTypes.String); err != nil {
		return nil, fmt.Errorf("decode item types: %w", err)
	}
	if item.Forms, err = decodeJSON[string](forms.String); err != nil {
		return nil, fmt.Errorf("decode forms: %w", err)
	}
	if item.Identifiers, err = decodeJSON[Identifier](identifiers.String); err != nil {
		return nil, fmt.Errorf("decode identifiers: %w", err)
	}
	if item.AltTitles, err = decodeJSON[string](altTitles.String); err != nil {
		return nil, fmt.Errorf("decode alt titles: %w", err)
	}
	if item.Holdings, err = decodeJSON[HoldingRow](holdings.String); err != nil {
		return nil, fmt.Errorf("decode holdings: %w", err)
	}

	if failAt.Valid {
		if ts, err := parseTimeString(failAt.String); err == nil {
			item.CheckFailAt = &ts
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return &item, nil
}
