package batch

import (
	"strconv"
	"time"

	"fontana/internal/reconcile"
	"fontana/internal/store"
)

// Report summarizes one batch run.
type Report struct {
	RunID      string
	Kind       string
	Catalog    string
	StartedAt  time.Time
	FinishedAt time.Time

	Checked int
	Updated int
	Draft   int
	Trash   int
	Failed  int

	// Reasons maps an item id to the cause of its failure.
	Reasons map[string]string
}

func (r *Report) add(itemID int64, outcome reconcile.Outcome, cause error) {
	r.Checked++
	switch outcome {
	case reconcile.Check:
		r.Updated++
	case reconcile.None:
		r.Draft++
	case reconcile.Delete:
		r.Trash++
	case reconcile.Failed:
		r.Failed++
		reason := "no catalog record returned"
		if cause != nil {
			reason = cause.Error()
		}
		if r.Reasons == nil {
			r.Reasons = map[string]string{}
		}
		r.Reasons[strconv.FormatInt(itemID, 10)] = reason
	}
}

// Run converts the report to its persisted form.
func (r *Report) Run() store.BatchRun {
	return store.BatchRun{
		ID:         r.RunID,
		Kind:       r.Kind,
		Catalog:    r.Catalog,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Checked:    r.Checked,
		Updated:    r.Updated,
		Draft:      r.Draft,
		Trash:      r.Trash,
		Failed:     r.Failed,
		Reasons:    r.Reasons,
	}
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
