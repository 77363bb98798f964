package batch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"fontana/internal/logging"
	"fontana/internal/store"
)

const cutoffLayout = "2006-01-02 15:04:05"

// CheckFailed re-checks items with a failure count, oldest change date
// first. An empty catalogName sweeps both collections; lending-platform items
// are swept per library. Afterwards the remaining backlog is stored in
// options and the failed-sweep timer is cleared or kept pending.
func (o *Orchestrator) CheckFailed(ctx context.Context, catalogName string) (*Report, error) {
	report := o.newReport(KindFailed, catalogName)
	ctx = logging.WithRunID(ctx, report.RunID)

	collections, err := sweepCollections(catalogName)
	if err != nil {
		return nil, err
	}
	for _, collection := range collections {
		libraries := []string{""}
		if collection == store.CollectionOverdrive {
			if libraries, err = o.store.Libraries(ctx); err != nil {
				return nil, err
			}
		}
		for _, library := range libraries {
			items, err := o.store.FailedItems(ctx, collection, library, o.settings.FailedBatch)
			if err != nil {
				return nil, err
			}
			if err := o.process(ctx, report, items); err != nil {
				return report, err
			}
		}
	}

	report.FinishedAt = o.now().UTC()
	if o.observer != nil {
		o.observer.ObserveRun(report.Kind, report)
	}
	if err := o.store.RecordBatchRun(ctx, report.Run()); err != nil {
		return report, err
	}
	remaining, err := o.syncFailedBacklog(ctx)
	if err != nil {
		return report, err
	}
	o.logger.InfoContext(ctx, "failed sweep finished",
		logging.Args(
			logging.Int("checked", report.Checked),
			logging.Int("failed", report.Failed),
			logging.Int("remaining", remaining),
		)...)
	return report, nil
}

// syncFailedBacklog records the failure backlog and keeps the failed-sweep
// timer in step with it.
func (o *Orchestrator) syncFailedBacklog(ctx context.Context) (int, error) {
	total := 0
	for _, collection := range []store.Collection{store.CollectionEvergreen, store.CollectionOverdrive} {
		count, err := o.store.CountFailed(ctx, collection, "")
		if err != nil {
			return 0, err
		}
		total += count
	}
	if total == 0 {
		if err := o.store.DeleteOption(ctx, OptionFailedCount); err != nil {
			return 0, err
		}
		return 0, o.store.ClearTimer(ctx, TimerFailed)
	}
	if err := o.store.SetOption(ctx, OptionFailedCount, strconv.Itoa(total)); err != nil {
		return total, err
	}
	_, err := o.store.ScheduleTimer(ctx, TimerFailed, o.settings.FailedInterval)
	return total, err
}

// QueueFailed makes sure the failed-sweep timer is pending after an item
// fails outside a sweep. A timer already pending keeps its next run.
func (o *Orchestrator) QueueFailed(ctx context.Context) error {
	if _, err := o.store.ScheduleTimer(ctx, TimerFailed, o.settings.FailedInterval); err != nil {
		return fmt.Errorf("queue failed sweep: %w", err)
	}
	return nil
}

// FailedBacklog returns the stored failure count.
func (o *Orchestrator) FailedBacklog(ctx context.Context) (int, error) {
	raw, ok, err := o.store.GetOption(ctx, OptionFailedCount)
	if err != nil || !ok {
		return 0, err
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", OptionFailedCount, err)
	}
	return count, nil
}

// CheckEvergreenHoldings re-checks union catalog items whose last holdings
// sync is older than the configured age and keeps the holdings timer pending.
func (o *Orchestrator) CheckEvergreenHoldings(ctx context.Context) (*Report, error) {
	report := o.newReport(KindHoldings, string(store.CollectionEvergreen))
	ctx = logging.WithRunID(ctx, report.RunID)

	cutoff := o.now().Add(-o.settings.HoldingsMaxAge).Format("2006-01-02")
	items, err := o.store.StaleHoldings(ctx, cutoff, o.settings.HoldingsBatch)
	if err != nil {
		return nil, err
	}
	if err := o.process(ctx, report, items); err != nil {
		return report, err
	}
	if _, err := o.store.ScheduleTimer(ctx, TimerHoldings, o.settings.HoldingsInterval); err != nil {
		return report, err
	}
	return report, o.finish(ctx, report)
}

// CheckDeleted re-checks lending-platform items whose change date is older
// than the configured age, per library. An empty library sweeps every
// library that has items.
func (o *Orchestrator) CheckDeleted(ctx context.Context, library string) (*Report, error) {
	library = strings.ToLower(strings.TrimSpace(library))
	report := o.newReport(KindDeleted, string(store.CollectionOverdrive))
	if library != "" {
		report.Catalog = overdrivePrefix + library
	}
	ctx = logging.WithRunID(ctx, report.RunID)

	libraries := []string{library}
	if library == "" {
		var err error
		if libraries, err = o.store.Libraries(ctx); err != nil {
			return nil, err
		}
	}
	cutoff := o.now().UTC().Add(-o.settings.DeletedMaxAge).Format(cutoffLayout)
	for _, lib := range libraries {
		items, err := o.store.StaleOverdrive(ctx, lib, cutoff, o.settings.DeletedBatch)
		if err != nil {
			return nil, err
		}
		if err := o.process(ctx, report, items); err != nil {
			return report, err
		}
	}
	if _, err := o.store.ScheduleTimer(ctx, TimerDeleted, o.settings.DeletedInterval); err != nil {
		return report, err
	}
	return report, o.finish(ctx, report)
}

func sweepCollections(name string) ([]store.Collection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return []store.Collection{store.CollectionEvergreen, store.CollectionOverdrive}, nil
	case string(store.CollectionEvergreen):
		return []store.Collection{store.CollectionEvergreen}, nil
	case string(store.CollectionOverdrive):
		return []store.Collection{store.CollectionOverdrive}, nil
	default:
		return nil, fmt.Errorf("unknown catalog %q", name)
	}
}
