// Package pipeline assembles the reconciler, the batch orchestrator and the
// alerts engine from configuration.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"fontana/internal/alerts"
	"fontana/internal/batch"
	"fontana/internal/classify"
	"fontana/internal/config"
	"fontana/internal/enrich"
	"fontana/internal/fetch"
	"fontana/internal/logging"
	"fontana/internal/metadata/goodreads"
	"fontana/internal/metadata/omdb"
	"fontana/internal/metadata/openlibrary"
	"fontana/internal/metrics"
	"fontana/internal/notifications"
	"fontana/internal/reconcile"
	"fontana/internal/sources/evergreen"
	"fontana/internal/sources/overdrive"
	"fontana/internal/store"
	"fontana/internal/termkeys"
)

// Options override collaborators, mostly for tests.
type Options struct {
	Metrics  *metrics.Metrics
	Notifier notifications.Service
	Mailer   notifications.Mailer
	Now      func() time.Time
}

// Pipeline holds every wired component. The store stays owned by the caller.
type Pipeline struct {
	Config   *config.Config
	Store    *store.Store
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Notifier notifications.Service
	Mailer   notifications.Mailer

	Terms        *termkeys.Cache
	Evergreen    *evergreen.Client
	Overdrive    *overdrive.Client
	Reconciler   *reconcile.Reconciler
	Orchestrator *batch.Orchestrator
	Alerts       *alerts.Engine
}

// Build wires the pipeline around an open store.
func Build(cfg *config.Config, st *store.Store, logger *slog.Logger, opts Options) (*Pipeline, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("pipeline requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(cfg.Metrics.Enabled)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	mailer := opts.Mailer
	if mailer == nil {
		mailer = notifications.NewMailer(cfg)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	client := func(service string) *fetch.Client {
		return fetch.NewFromConfig(service, cfg, fetch.WithObserver(m))
	}
	var clientOpts []overdrive.Option
	if opts.Now != nil {
		clientOpts = append(clientOpts, overdrive.WithClock(opts.Now))
	}

	p := &Pipeline{
		Config:    cfg,
		Store:     st,
		Logger:    logger,
		Metrics:   m,
		Notifier:  notifier,
		Mailer:    mailer,
		Terms:     termkeys.NewCache(st),
		Evergreen: evergreen.New(cfg.Evergreen, client("evergreen")),
		Overdrive: overdrive.New(cfg.Overdrive, client("overdrive"), clientOpts...),
	}

	index := classify.NewStoreIndex(st)
	p.Reconciler = reconcile.NewReconciler(reconcile.Deps{
		Store:     st,
		Terms:     p.Terms,
		Evergreen: p.Evergreen,
		Overdrive: p.Overdrive,
		Enricher: enrich.New(
			omdb.New(cfg.OMDb, client("omdb")),
			openlibrary.New(cfg.OpenLibrary, client("openlibrary")),
			goodreads.New(cfg.GoodReads, client("goodreads")),
			logger,
		),
		Classifier:      classify.New(index, index, logger),
		Logger:          logger,
		FailureDebounce: cfg.FailureDebounce(),
		Now:             now,
		OnFailed: func(ctx context.Context, _ int64) error {
			return p.Orchestrator.QueueFailed(ctx)
		},
	})
	p.Orchestrator = batch.New(batch.Deps{
		Store:      st,
		Reconciler: p.Reconciler,
		Evergreen:  p.Evergreen,
		Overdrive:  p.Overdrive,
		Observer:   m,
		Logger:     logger,
		Settings:   SettingsFromConfig(cfg),
		Now:        now,
	})
	p.Alerts = alerts.New(alerts.Deps{
		Store:    st,
		Mailer:   mailer,
		Notifier: notifier,
		Config:   cfg.Alerts,
		Logger:   logger,
	})
	return p, nil
}

// SettingsFromConfig maps the [reconcile] and [schedule] sections onto sweep
// settings. Zero values fall back to the orchestrator defaults.
func SettingsFromConfig(cfg *config.Config) batch.Settings {
	day := 24 * time.Hour
	return batch.Settings{
		ChunkSize:        cfg.Reconcile.ChunkSize,
		FailedBatch:      cfg.Reconcile.FailedBatchSize,
		HoldingsBatch:    cfg.Reconcile.HoldingsBatchSize,
		DeletedBatch:     cfg.Reconcile.DeletedBatchSize,
		HoldingsMaxAge:   time.Duration(cfg.Reconcile.HoldingsMaxAgeDays) * day,
		DeletedMaxAge:    time.Duration(cfg.Reconcile.DeletedMaxAgeDays) * day,
		FailedInterval:   seconds(cfg.Schedule.FailedIntervalSeconds),
		HoldingsInterval: seconds(cfg.Schedule.HoldingsIntervalSeconds),
		DeletedInterval:  seconds(cfg.Schedule.DeletedIntervalSeconds),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
