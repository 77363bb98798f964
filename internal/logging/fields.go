package logging

import (
	"context"
	"log/slog"
)

// leadKeys identify the item a line is about. Both handlers emit them first,
// in this order, ahead of any other field.
var leadKeys = []string{FieldRunID, FieldCatalog, FieldItemID, FieldRecordID, FieldOutcome}

func leadIndex(key string) int {
	for i, k := range leadKeys {
		if k == key {
			return i
		}
	}
	return -1
}

// ledger splits a record's fields into the lead identifiers and the rest.
// The first value seen for a lead key wins; later duplicates are dropped.
type ledger struct {
	lead  []slog.Attr
	rest  []slog.Attr
	taken map[string]bool
}

func newLedger(bound map[string]bool) *ledger {
	taken := make(map[string]bool, len(bound)+len(leadKeys))
	for k := range bound {
		taken[k] = true
	}
	return &ledger{lead: make([]slog.Attr, len(leadKeys)), taken: taken}
}

func (l *ledger) add(attr slog.Attr) {
	i := leadIndex(attr.Key)
	if i < 0 {
		l.rest = append(l.rest, attr)
		return
	}
	if l.taken[attr.Key] {
		return
	}
	l.taken[attr.Key] = true
	l.lead[i] = attr
}

// addContext fills lead keys still missing from ctx.
func (l *ledger) addContext(ctx context.Context) {
	for _, attr := range ContextFields(ctx) {
		l.add(attr)
	}
}

func (l *ledger) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, len(leadKeys)+len(l.rest))
	for _, attr := range l.lead {
		if attr.Key != "" {
			out = append(out, attr)
		}
	}
	return append(out, l.rest...)
}

func boundKeys(prev map[string]bool, attrs []slog.Attr) map[string]bool {
	next := make(map[string]bool, len(prev)+len(attrs))
	for k := range prev {
		next[k] = true
	}
	for _, attr := range attrs {
		if leadIndex(attr.Key) >= 0 {
			next[attr.Key] = true
		}
	}
	return next
}
