package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for collection item identifiers.
	FieldItemID = "item_id"
	// FieldRunID is the standardized structured logging key for batch run identifiers.
	FieldRunID = "run_id"
	// FieldRecordID is the standardized structured logging key for source catalog record identifiers.
	FieldRecordID = "record_id"
	// FieldCatalog is the standardized structured logging key for catalog chunk keys (evergreen, overdrive-<library>).
	FieldCatalog = "catalog"
	// FieldOutcome is the standardized structured logging key for reconciliation outcomes.
	FieldOutcome = "outcome"
	// FieldEventType categorizes warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the classification decision being logged.
	FieldDecisionType = "decision_type"
)

type contextKey int

const (
	itemIDKey contextKey = iota
	runIDKey
	catalogKey
)

// WithItemID tags ctx with a collection item id.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// WithRunID tags ctx with a batch run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithCatalog tags ctx with a catalog chunk key.
func WithCatalog(ctx context.Context, catalog string) context.Context {
	return context.WithValue(ctx, catalogKey, catalog)
}

// RunIDFromContext returns the batch run id, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if catalog, ok := ctx.Value(catalogKey).(string); ok && catalog != "" {
		fields = append(fields, slog.String(FieldCatalog, catalog))
	}
	if id, ok := ctx.Value(itemIDKey).(int64); ok && id > 0 {
		fields = append(fields, slog.Int64(FieldItemID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
