package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fontana/internal/catalog"
	"fontana/internal/logging"
	"fontana/internal/reconcile"
	"fontana/internal/store"
)

// Timer names registered in the store.
const (
	TimerFailed   = "failed-sweep"
	TimerHoldings = "holdings-sweep"
	TimerDeleted  = "deleted-sweep"
)

// OptionFailedCount holds the number of items awaiting the failed sweep.
const OptionFailedCount = "failed_records_import"

// Run kinds.
const (
	KindCheckHoldings = "check-holdings"
	KindFailed        = "failed"
	KindHoldings      = "holdings"
	KindDeleted       = "deleted"
)

// EvergreenBulk fetches holdings for several records at once.
type EvergreenBulk interface {
	BulkLookup(ctx context.Context, recordIDs []string) (catalog.Batch, error)
}

// OverdriveBulk fetches ownership for several titles of one library.
type OverdriveBulk interface {
	BulkLookup(ctx context.Context, libraryKey string, reserveIDs []string) (catalog.Batch, error)
}

// Reconciler applies a catalog answer to one item.
type Reconciler interface {
	Reconcile(ctx context.Context, req reconcile.Request) (reconcile.Result, error)
}

// Observer receives per-item outcomes and per-run timings.
type Observer interface {
	ObserveOutcome(kind, outcome string)
	ObserveRun(kind string, report *Report)
}

// Settings are the sweep sizes and intervals.
type Settings struct {
	ChunkSize        int
	FailedBatch      int
	HoldingsBatch    int
	DeletedBatch     int
	HoldingsMaxAge   time.Duration
	DeletedMaxAge    time.Duration
	FailedInterval   time.Duration
	HoldingsInterval time.Duration
	DeletedInterval  time.Duration
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		ChunkSize:        DefaultChunkSize,
		FailedBatch:      10,
		HoldingsBatch:    10,
		DeletedBatch:     15,
		HoldingsMaxAge:   30 * 24 * time.Hour,
		DeletedMaxAge:    7 * 24 * time.Hour,
		FailedInterval:   time.Hour,
		HoldingsInterval: 12 * time.Hour,
		DeletedInterval:  time.Hour,
	}
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Store      *store.Store
	Reconciler Reconciler
	Evergreen  EvergreenBulk
	Overdrive  OverdriveBulk
	Observer   Observer
	Logger     *slog.Logger
	Settings   Settings
	Now        func() time.Time
}

// Orchestrator runs bulk holdings checks and the scheduled sweeps.
type Orchestrator struct {
	store      *store.Store
	reconciler Reconciler
	evergreen  EvergreenBulk
	overdrive  OverdriveBulk
	observer   Observer
	logger     *slog.Logger
	settings   Settings
	now        func() time.Time
}

// New creates an orchestrator. Zero settings fall back to DefaultSettings.
func New(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:      d.Store,
		reconciler: d.Reconciler,
		evergreen:  d.Evergreen,
		overdrive:  d.Overdrive,
		observer:   d.Observer,
		logger:     logging.NewComponentLogger(logger, "batch"),
		settings:   d.Settings.withDefaults(),
		now:        now,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.ChunkSize <= 0 {
		s.ChunkSize = def.ChunkSize
	}
	if s.FailedBatch <= 0 {
		s.FailedBatch = def.FailedBatch
	}
	if s.HoldingsBatch <= 0 {
		s.HoldingsBatch = def.HoldingsBatch
	}
	if s.DeletedBatch <= 0 {
		s.DeletedBatch = def.DeletedBatch
	}
	if s.HoldingsMaxAge <= 0 {
		s.HoldingsMaxAge = def.HoldingsMaxAge
	}
	if s.DeletedMaxAge <= 0 {
		s.DeletedMaxAge = def.DeletedMaxAge
	}
	if s.FailedInterval <= 0 {
		s.FailedInterval = def.FailedInterval
	}
	if s.HoldingsInterval <= 0 {
		s.HoldingsInterval = def.HoldingsInterval
	}
	if s.DeletedInterval <= 0 {
		s.DeletedInterval = def.DeletedInterval
	}
	return s
}

func (o *Orchestrator) newReport(kind, catalogName string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Catalog:   catalogName,
		StartedAt: o.now().UTC(),
	}
}

// CheckHoldings re-checks the given items against their catalogs.
func (o *Orchestrator) CheckHoldings(ctx context.Context, ids []int64) (*Report, error) {
	report := o.newReport(KindCheckHoldings, "")
	ctx = logging.WithRunID(ctx, report.RunID)

	items, err := o.store.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if err := o.process(ctx, report, items); err != nil {
		return report, err
	}
	return report, o.finish(ctx, report)
}

// process chunks items and runs every chunk in order.
func (o *Orchestrator) process(ctx context.Context, report *Report, items []*store.Item) error {
	for _, group := range Chunk(items, o.settings.ChunkSize) {
		groupCtx := logging.WithCatalog(ctx, group.Key)
		for _, chunk := range group.Chunks {
			if err := ctx.Err(); err != nil {
				return err
			}
			o.processChunk(groupCtx, report, group.Key, chunk)
		}
	}
	return nil
}

// processChunk issues one bulk request for the chunk and reconciles each
// item with the record it was matched to. Unmatched items are recorded as
// failures without a lookup.
func (o *Orchestrator) processChunk(ctx context.Context, report *Report, key string, chunk []*store.Item) {
	recordIDs := make([]string, 0, len(chunk))
	for _, item := range chunk {
		recordIDs = append(recordIDs, item.RecordID)
	}

	answers, err := o.bulkLookup(ctx, key, recordIDs)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "bulk lookup failed", "bulk_lookup_failed",
			logging.String(logging.FieldCatalog, key),
			logging.Int("records", len(recordIDs)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "every item in the chunk is counted as failed"),
		)
	}

	failed := reconcile.Failed
	for _, item := range chunk {
		req := reconcile.Request{ItemID: item.ID, Mode: reconcile.ModeRecheck}
		if rec, ok := answers.Find(item.RecordID); ok {
			req.Record = rec
		} else {
			req.Prior = &failed
		}

		res, err := o.reconciler.Reconcile(ctx, req)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, o.logger), "item reconcile errored", "batch_item_failed",
				logging.Int64(logging.FieldItemID, item.ID),
				logging.String("error_kind", store.ErrorKind(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "item counted as failed, batch continues"),
			)
			report.add(item.ID, reconcile.Failed, err)
			o.observe(report.Kind, reconcile.Failed)
			continue
		}
		report.add(item.ID, res.Outcome, res.Cause)
		o.observe(report.Kind, res.Outcome)
	}
}

func (o *Orchestrator) bulkLookup(ctx context.Context, key string, recordIDs []string) (catalog.Batch, error) {
	if library, ok := LibraryFromKey(key); ok {
		if o.overdrive == nil {
			return catalog.Batch{}, errors.New("overdrive source not configured")
		}
		return o.overdrive.BulkLookup(ctx, library, recordIDs)
	}
	if o.evergreen == nil {
		return catalog.Batch{}, errors.New("evergreen source not configured")
	}
	return o.evergreen.BulkLookup(ctx, recordIDs)
}

func (o *Orchestrator) observe(kind string, outcome reconcile.Outcome) {
	if o.observer != nil {
		o.observer.ObserveOutcome(kind, outcome.String())
	}
}

// finish stamps, persists and logs the report. Any failure in the run makes
// sure the failed sweep is pending.
func (o *Orchestrator) finish(ctx context.Context, report *Report) error {
	report.FinishedAt = o.now().UTC()
	if report.Failed > 0 {
		if _, err := o.store.ScheduleTimer(ctx, TimerFailed, o.settings.FailedInterval); err != nil {
			return err
		}
	}
	if o.observer != nil {
		o.observer.ObserveRun(report.Kind, report)
	}
	if err := o.store.RecordBatchRun(ctx, report.Run()); err != nil {
		return err
	}
	logging.WithContext(ctx, o.logger).InfoContext(ctx, "batch run finished",
		logging.Args(
			logging.String("kind", report.Kind),
			logging.Int("checked", report.Checked),
			logging.Int("updated", report.Updated),
			logging.Int("draft", report.Draft),
			logging.Int("trash", report.Trash),
			logging.Int("failed", report.Failed),
			logging.Duration("duration", report.Duration()),
		)...)
	return nil
}

// VerifyAndPublish clears the verify annotation on each item and publishes
// it. Unknown ids are skipped. It returns the number of items published.
func (o *Orchestrator) VerifyAndPublish(ctx context.Context, ids []int64) (int, error) {
	items, err := o.store.ItemsByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load items: %w", err)
	}
	published := 0
	for _, item := range items {
		item.Verify = ""
		item.Status = store.StatusPublish
		if err := o.store.UpdateItem(ctx, item); err != nil {
			return published, err
		}
		published++
	}
	o.logger.InfoContext(ctx, "items verified",
		logging.Args(logging.Int("requested", len(ids)), logging.Int("published", published))...)
	return published, nil
}
