package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Timer rows use a fixed-width layout so next_run compares lexically.
const timerLayout = "2006-01-02T15:04:05Z"

// GetOption returns a stored option value and whether it exists.
func (s *Store) GetOption(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM options WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get option %s: %w", key, err)
	}
	return value, true, nil
}

// SetOption upserts an option value.
func (s *Store) SetOption(ctx context.Context, key, value string) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO options (key, value) VALUES (?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set option %s: %w", key, err)
	}
	return nil
}

// DeleteOption removes an option.
func (s *Store) DeleteOption(ctx context.Context, key string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM options WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete option %s: %w", key, err)
	}
	return nil
}

// ListOptions returns every option ordered by key.
func (s *Store) ListOptions(ctx context.Context) ([][2]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM options ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}
	defer rows.Close()
	var out [][2]string
	for rows.Next() {
		var kv [2]string
		if err := rows.Scan(&kv[0], &kv[1]); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out = append(out, kv)
	}
	return out, rows.Err()
}

// ScheduleTimer registers a recurring timer unless one with that name is already pending.
// It reports whether a new timer was created.
func (s *Store) ScheduleTimer(ctx context.Context, name string, interval time.Duration) (bool, error) {
	next := s.now().UTC().Add(interval).Format(timerLayout)
	res, err := s.execWithRetry(ctx,
		`INSERT INTO timers (name, next_run, interval_seconds) VALUES (?, ?, ?)
         ON CONFLICT(name) DO NOTHING`,
		name, next, int64(interval/time.Second),
	)
	if err != nil {
		return false, fmt.Errorf("schedule timer %s: %w", name, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("schedule timer %s: %w", name, err)
	}
	return rows > 0, nil
}

// ClearTimer removes a timer.
func (s *Store) ClearTimer(ctx context.Context, name string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM timers WHERE name = ?`, name); err != nil {
		return fmt.Errorf("clear timer %s: %w", name, err)
	}
	return nil
}

// GetTimer returns a timer by name. A missing timer yields nil, nil.
func (s *Store) GetTimer(ctx context.Context, name string) (*Timer, error) {
	var (
		nextRaw  string
		interval int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT next_run, interval_seconds FROM timers WHERE name = ?`, name).Scan(&nextRaw, &interval)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get timer %s: %w", name, err)
	}
	next, err := parseTimeString(nextRaw)
	if err != nil {
		return nil, fmt.Errorf("parse timer %s: %w", name, err)
	}
	return &Timer{Name: name, NextRun: next, Interval: time.Duration(interval) * time.Second}, nil
}

// DueTimers returns timers whose next run is at or before now.
func (s *Store) DueTimers(ctx context.Context) ([]Timer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, next_run, interval_seconds FROM timers WHERE next_run <= ? ORDER BY next_run`,
		s.now().UTC().Format(timerLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("due timers: %w", err)
	}
	defer rows.Close()
	var timers []Timer
	for rows.Next() {
		var (
			timer    Timer
			nextRaw  string
			interval int64
		)
		if err := rows.Scan(&timer.Name, &nextRaw, &interval); err != nil {
			return nil, fmt.Errorf("scan timer: %w", err)
		}
		if timer.NextRun, err = parseTimeString(nextRaw); err != nil {
			return nil, fmt.Errorf("parse timer %s: %w", timer.Name, err)
		}
		timer.Interval = time.Duration(interval) * time.Second
		timers = append(timers, timer)
	}
	return timers, rows.Err()
}

// AdvanceTimer moves a timer's next run one interval past now.
func (s *Store) AdvanceTimer(ctx context.Context, name string) error {
	timer, err := s.GetTimer(ctx, name)
	if err != nil || timer == nil {
		return err
	}
	next := s.now().UTC().Add(timer.Interval).Format(timerLayout)
	if _, err := s.execWithRetry(ctx, `UPDATE timers SET next_run = ? WHERE name = ?`, next, name); err != nil {
		return fmt.Errorf("advance timer %s: %w", name, err)
	}
	return nil
}
