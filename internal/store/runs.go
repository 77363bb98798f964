package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordBatchRun persists a batch report summary.
func (s *Store) RecordBatchRun(ctx context.Context, run BatchRun) error {
	reasons, err := encodeMap(run.Reasons)
	if err != nil {
		return fmt.Errorf("encode batch reasons: %w", err)
	}
	_, err = s.execWithRetry(ctx,
		`INSERT INTO batch_runs (id, kind, catalog, started_at, finished_at, checked, updated, draft, trash, failed, reasons_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, nullableString(run.Catalog),
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Checked, run.Updated, run.Draft, run.Trash, run.Failed, reasons,
	)
	if err != nil {
		return fmt.Errorf("record batch run: %w", err)
	}
	return nil
}

// RecentBatchRuns returns the newest runs first.
func (s *Store) RecentBatchRuns(ctx context.Context, limit int) ([]BatchRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, catalog, started_at, finished_at, checked, updated, draft, trash, failed, reasons_json
         FROM batch_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent batch runs: %w", err)
	}
	defer rows.Close()
	var runs []BatchRun
	for rows.Next() {
		var (
			run        BatchRun
			catalog    sql.NullString
			startedRaw string
			finishRaw  string
			reasons    sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Kind, &catalog, &startedRaw, &finishRaw,
			&run.Checked, &run.Updated, &run.Draft, &run.Trash, &run.Failed, &reasons); err != nil {
			return nil, fmt.Errorf("scan batch run: %w", err)
		}
		run.Catalog = catalog.String
		run.StartedAt, _ = parseTimeString(startedRaw)
		run.FinishedAt, _ = parseTimeString(finishRaw)
		if run.Reasons, err = decodeMap(reasons.String); err != nil {
			return nil, fmt.Errorf("decode batch reasons: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
