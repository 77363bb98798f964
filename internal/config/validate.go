package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateHTTP(); err != nil {
		return err
	}
	if err := c.validateReconcile(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateAlerts(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.RequestsPerSecond < 0 {
		return errors.New("http.requests_per_second must be >= 0 (0 disables rate limiting)")
	}
	if c.HTTP.BreakerThreshold < 0 {
		return errors.New("http.breaker_threshold must be >= 0 (0 disables the circuit breaker)")
	}
	if c.HTTP.BreakerThreshold > 0 && c.HTTP.BreakerCooldownSeconds <= 0 {
		return errors.New("http.breaker_cooldown_seconds must be positive when http.breaker_threshold is set")
	}
	return nil
}

func (c *Config) validateReconcile() error {
	if c.Reconcile.FailureDebounceMinutes < 0 {
		return errors.New("reconcile.failure_debounce_minutes must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"reconcile.chunk_size":            c.Reconcile.ChunkSize,
		"reconcile.failed_batch_size":     c.Reconcile.FailedBatchSize,
		"reconcile.holdings_batch_size":   c.Reconcile.HoldingsBatchSize,
		"reconcile.deleted_batch_size":    c.Reconcile.DeletedBatchSize,
		"reconcile.holdings_max_age_days": c.Reconcile.HoldingsMaxAgeDays,
		"reconcile.deleted_max_age_days":  c.Reconcile.DeletedMaxAgeDays,
	})
}

func (c *Config) validateSchedule() error {
	return ensurePositiveMap(map[string]int{
		"schedule.poll_interval_seconds":     c.Schedule.PollIntervalSeconds,
		"schedule.failed_interval_seconds":   c.Schedule.FailedIntervalSeconds,
		"schedule.holdings_interval_seconds": c.Schedule.HoldingsIntervalSeconds,
		"schedule.deleted_interval_seconds":  c.Schedule.DeletedIntervalSeconds,
	})
}

func (c *Config) validateAlerts() error {
	if _, err := mail.ParseAddress(c.Alerts.From); err != nil {
		return fmt.Errorf("alerts.from is not a valid address: %w", err)
	}
	if len(c.Alerts.ManagerPositions) == 0 {
		return errors.New("alerts.manager_positions must include at least one position")
	}
	if c.Alerts.EditURL != "" && !strings.Contains(c.Alerts.EditURL, "%d") {
		return errors.New("alerts.edit_url must contain a %d placeholder for the alert id")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if c.Metrics.Enabled && strings.TrimSpace(c.Metrics.Bind) == "" {
		return errors.New("metrics.bind must be set when metrics.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
