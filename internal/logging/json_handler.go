package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// jsonHandler writes one JSON object per line. Run, catalog, item, record and
// outcome fields come first and are taken from the context when the call
// site did not pass them. Inside a group the context is not consulted.
type jsonHandler struct {
	inner  slog.Handler
	bound  map[string]bool
	nested bool
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &jsonHandler{inner: slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	})}
}

func (h *jsonHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *jsonHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.nested {
		return h.inner.Handle(ctx, record)
	}
	l := newLedger(h.bound)
	record.Attrs(func(attr slog.Attr) bool {
		l.add(attr)
		return true
	})
	l.addContext(ctx)

	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	out.AddAttrs(l.attrs()...)
	return h.inner.Handle(ctx, out)
}

func (h *jsonHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithAttrs(attrs)
	if !h.nested {
		clone.bound = boundKeys(h.bound, attrs)
	}
	return &clone
}

func (h *jsonHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	clone.nested = true
	return &clone
}

// replaceJSONAttr shortens the built-in keys, pins times to UTC and renders
// durations the way the console does.
func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				return slog.String("caller", filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
			}
		}
	}
	switch attr.Value.Kind() {
	case slog.KindTime:
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
	case slog.KindDuration:
		attr.Value = slog.StringValue(attr.Value.Duration().String())
	}
	return attr
}
