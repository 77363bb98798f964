package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"fontana/internal/batch"
	"fontana/internal/config"
	"fontana/internal/logging"
	"fontana/internal/notifications"
	"fontana/internal/store"
)

// Sweeper runs the scheduled sweeps.
type Sweeper interface {
	CheckFailed(ctx context.Context, catalogName string) (*batch.Report, error)
	CheckEvergreenHoldings(ctx context.Context) (*batch.Report, error)
	CheckDeleted(ctx context.Context, library string) (*batch.Report, error)
}

// Daemon polls the store timers and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	sweeper  Sweeper
	notifier notifications.Service
	metrics  http.Handler

	lockPath string
	lock     *flock.Flock
	runLock  *batch.RunLock

	runMu   sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	server  *http.Server
	addr    atomic.Value

	runs    atomic.Int64
	lastRun atomic.Value
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
	MetricsAddr  string
	Runs         int64
	LastRun      time.Time
}

// New constructs a daemon. notifier and metrics may be nil.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, sweeper Sweeper, notifier notifications.Service, metrics http.Handler) (*Daemon, error) {
	if cfg == nil || st == nil || sweeper == nil {
		return nil, errors.New("daemon requires config, store, and sweeper")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	lockPath := filepath.Join(cfg.Paths.DataDir, "fontanad.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		sweeper:  sweeper,
		notifier: notifier,
		metrics:  metrics,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		runLock:  batch.NewRunLock(cfg.LockPath()),
	}, nil
}

// Start acquires the instance lock, registers the sweep timers and launches
// the poll loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another fontana daemon instance is already running")
	}

	if err := d.registerTimers(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	if err := d.serveMetrics(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go d.loop(loopCtx)

	d.logger.Info("fontana daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("poll_interval", d.pollInterval()),
	)
	return nil
}

// Stop stops the poll loop and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("metrics server shutdown failed", logging.Error(err))
		}
		cancel()
		d.server = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("fontana daemon stopped")
}

// Close stops the daemon. The store stays open for its owner.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Runs:         d.runs.Load(),
	}
	if addr, ok := d.addr.Load().(string); ok {
		status.MetricsAddr = addr
	}
	if last, ok := d.lastRun.Load().(time.Time); ok {
		status.LastRun = last
	}
	return status
}

func (d *Daemon) pollInterval() time.Duration {
	interval := time.Duration(d.cfg.Schedule.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		return time.Minute
	}
	return interval
}

func (d *Daemon) registerTimers(ctx context.Context) error {
	timers := []struct {
		name    string
		seconds int
	}{
		{batch.TimerFailed, d.cfg.Schedule.FailedIntervalSeconds},
		{batch.TimerHoldings, d.cfg.Schedule.HoldingsIntervalSeconds},
		{batch.TimerDeleted, d.cfg.Schedule.DeletedIntervalSeconds},
	}
	for _, timer := range timers {
		if timer.seconds <= 0 {
			continue
		}
		created, err := d.store.ScheduleTimer(ctx, timer.name, time.Duration(timer.seconds)*time.Second)
		if err != nil {
			return fmt.Errorf("register %s: %w", timer.name, err)
		}
		if created {
			d.logger.Debug("timer registered", logging.String("timer", timer.name))
		}
	}
	return nil
}

func (d *Daemon) serveMetrics() error {
	if !d.cfg.Metrics.Enabled || d.metrics == nil {
		return nil
	}
	ln, err := net.Listen("tcp", d.cfg.Metrics.Bind)
	if err != nil {
		return fmt.Errorf("listen metrics %s: %w", d.cfg.Metrics.Bind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics)
	d.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	d.addr.Store(ln.Addr().String())

	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(d.logger, "metrics server failed", "metrics_server_failed",
				logging.String(logging.FieldImpact, "metrics endpoint unavailable"),
				logging.Error(err),
			)
		}
	}()
	d.logger.Info("metrics endpoint listening", logging.String("addr", ln.Addr().String()))
	return nil
}

func (d *Daemon) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pollInterval())
	defer ticker.Stop()

	for {
		if _, err := d.RunDue(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(d.logger, "timer poll failed", "timer_poll_failed",
				logging.String(logging.FieldErrorHint, "check database access"),
				logging.Error(err),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunDue dispatches every due timer and reports how many ran. Timers are
// left due when another process holds the run lock.
func (d *Daemon) RunDue(ctx context.Context) (int, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	timers, err := d.store.DueTimers(ctx)
	if err != nil {
		return 0, err
	}
	if len(timers) == 0 {
		return 0, nil
	}

	if err := d.runLock.TryLock(); err != nil {
		if errors.Is(err, batch.ErrBusy) {
			d.logger.Info("run lock held elsewhere, deferring sweeps", logging.Int("due", len(timers)))
			return 0, nil
		}
		return 0, err
	}
	defer func() {
		if err := d.runLock.Unlock(); err != nil {
			d.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	ran := 0
	for _, timer := range timers {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		d.dispatch(ctx, timer.Name)
		if err := d.store.AdvanceTimer(ctx, timer.Name); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

func (d *Daemon) dispatch(ctx context.Context, name string) {
	logger := d.logger.With(logging.String("timer", name))

	var (
		report *batch.Report
		err    error
	)
	switch name {
	case batch.TimerFailed:
		report, err = d.sweeper.CheckFailed(ctx, "")
	case batch.TimerHoldings:
		report, err = d.sweeper.CheckEvergreenHoldings(ctx)
	case batch.TimerDeleted:
		report, err = d.sweeper.CheckDeleted(ctx, "")
	default:
		logging.WarnWithContext(logger, "unknown timer", "unknown_timer",
			logging.String(logging.FieldImpact, "timer advanced without running"),
		)
		return
	}

	d.runs.Add(1)
	d.lastRun.Store(time.Now())

	if err != nil {
		logging.ErrorWithContext(logger, "sweep failed", "sweep_failed",
			logging.String(logging.FieldErrorHint, "inspect the store and catalog connectivity"),
			logging.Error(err),
		)
		d.publish(ctx, notifications.EventSweepFailed, notifications.Payload{"kind": name, "error": err.Error()})
		return
	}
	if report == nil || report.Checked == 0 {
		return
	}
	d.publish(ctx, notifications.EventBatchCompleted, notifications.Payload{
		"kind":    report.Kind,
		"checked": report.Checked,
		"updated": report.Updated,
		"draft":   report.Draft,
		"trash":   report.Trash,
		"failed":  report.Failed,
	})
}

func (d *Daemon) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(d.logger, "ntfy publish failed", "notify_failed", logging.Error(err))
	}
}
