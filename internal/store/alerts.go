package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const alertColumns = "id, title, notice_type, locations_json, start_at, end_at, body, is_revision, is_autosave, email_tracker"

// CreateAlert inserts an alert post.
func (s *Store) CreateAlert(ctx context.Context, alert Alert) (Alert, error) {
	locations, err := encodeJSON(alert.Locations)
	if err != nil {
		return Alert{}, fmt.Errorf("encode alert locations: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`INSERT INTO alerts (title, notice_type, locations_json, start_at, end_at, body, is_revision, is_autosave, email_tracker)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.Title,
		nullableString(alert.NoticeType),
		locations,
		formatOptionalTime(alert.Start),
		formatOptionalTime(alert.End),
		nullableString(alert.Body),
		boolToInt(alert.IsRevision),
		boolToInt(alert.IsAutosave),
		nullableString(alert.EmailTracker),
	)
	if err != nil {
		return Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	if alert.ID, err = res.LastInsertId(); err != nil {
		return Alert{}, fmt.Errorf("last insert id: %w", err)
	}
	return alert, nil
}

// GetAlert fetches an alert by id. A missing alert yields nil, nil.
func (s *Store) GetAlert(ctx context.Context, id int64) (*Alert, error) {
	var (
		alert      Alert
		noticeType sql.NullString
		locations  sql.NullString
		startRaw   sql.NullString
		endRaw     sql.NullString
		body       sql.NullString
		revision   int
		autosave   int
		tracker    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id).Scan(
		&alert.ID, &alert.Title, &noticeType, &locations, &startRaw, &endRaw, &body, &revision, &autosave, &tracker,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	alert.NoticeType = noticeType.String
	alert.Body = body.String
	alert.IsRevision = revision != 0
	alert.IsAutosave = autosave != 0
	alert.EmailTracker = tracker.String
	if alert.Locations, err = decodeJSON[string](locations.String); err != nil {
		return nil, fmt.Errorf("decode alert locations: %w", err)
	}
	if t, err := parseTimeString(startRaw.String); err == nil {
		alert.Start = t
	}
	if t, err := parseTimeString(endRaw.String); err == nil {
		alert.End = t
	}
	return &alert, nil
}

// SetAlertTracker records the idempotency key of the last email sent for an alert.
func (s *Store) SetAlertTracker(ctx context.Context, id int64, key string) error {
	if _, err := s.execWithRetry(ctx, `UPDATE alerts SET email_tracker = ? WHERE id = ?`, key, id); err != nil {
		return fmt.Errorf("set alert tracker: %w", err)
	}
	return nil
}

// CreateEvent inserts a calendar event.
func (s *Store) CreateEvent(ctx context.Context, event Event) (Event, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO events (title, start_at, end_at, venue, location_slug, author_email) VALUES (?, ?, ?, ?, ?, ?)`,
		event.Title,
		event.Start.UTC().Format(time.RFC3339),
		event.End.UTC().Format(time.RFC3339),
		nullableString(event.Venue),
		nullableString(event.LocationSlug),
		nullableString(event.AuthorEmail),
	)
	if err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	if event.ID, err = res.LastInsertId(); err != nil {
		return Event{}, fmt.Errorf("last insert id: %w", err)
	}
	return event, nil
}

// EventsOverlapping returns events with start <= end and end >= start, ordered by start.
// A nil slugs slice matches every location.
func (s *Store) EventsOverlapping(ctx context.Context, start, end time.Time, slugs []string) ([]Event, error) {
	query := `SELECT id, title, start_at, end_at, venue, location_slug, author_email FROM events
              WHERE start_at <= ? AND end_at >= ?`
	args := []any{end.UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339)}
	if slugs != nil {
		if len(slugs) == 0 {
			return nil, nil
		}
		query += ` AND location_slug IN (` + makePlaceholders(len(slugs)) + `)`
		for _, slug := range slugs {
			args = append(args, slug)
		}
	}
	query += ` ORDER BY start_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("events overlapping: %w", err)
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var (
			event    Event
			startRaw string
			endRaw   string
			venue    sql.NullString
			slug     sql.NullString
			author   sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.Title, &startRaw, &endRaw, &venue, &slug, &author); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Start, _ = parseTimeString(startRaw)
		event.End, _ = parseTimeString(endRaw)
		event.Venue = venue.String
		event.LocationSlug = slug.String
		event.AuthorEmail = author.String
		events = append(events, event)
	}
	return events, rows.Err()
}

// CreateStaff inserts a directory entry.
func (s *Store) CreateStaff(ctx context.Context, staff Staff) (Staff, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO staff (name, email, position, location_term_id) VALUES (?, ?, ?, ?)`,
		staff.Name, staff.Email, staff.Position, staff.LocationID,
	)
	if err != nil {
		return Staff{}, fmt.Errorf("insert staff: %w", err)
	}
	if staff.ID, err = res.LastInsertId(); err != nil {
		return Staff{}, fmt.Errorf("last insert id: %w", err)
	}
	return staff, nil
}

// StaffByPositions returns staff holding any of positions. A nil locationIDs
// slice matches every location.
func (s *Store) StaffByPositions(ctx context.Context, positions []string, locationIDs []int64) ([]Staff, error) {
	if len(positions) == 0 {
		return nil, nil
	}
	query := `SELECT id, name, email, position, location_term_id FROM staff WHERE position IN (` + makePlaceholders(len(positions)) + `)`
	args := make([]any, 0, len(positions)+len(locationIDs))
	for _, position := range positions {
		args = append(args, position)
	}
	if locationIDs != nil {
		if len(locationIDs) == 0 {
			return nil, nil
		}
		query += ` AND location_term_id IN (` + makePlaceholders(len(locationIDs)) + `)`
		for _, id := range locationIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("staff by positions: %w", err)
	}
	defer rows.Close()
	var out []Staff
	for rows.Next() {
		var staff Staff
		if err := rows.Scan(&staff.ID, &staff.Name, &staff.Email, &staff.Position, &staff.LocationID); err != nil {
			return nil, fmt.Errorf("scan staff: %w", err)
		}
		out = append(out, staff)
	}
	return out, rows.Err()
}

func formatOptionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
