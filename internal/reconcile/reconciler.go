package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"fontana/internal/catalog"
	"fontana/internal/classify"
	"fontana/internal/enrich"
	"fontana/internal/keywords"
	"fontana/internal/logging"
	"fontana/internal/sources/overdrive"
	"fontana/internal/store"
	"fontana/internal/termkeys"
	"fontana/internal/textutil"
)

// TitlePrefix marks items whose holdings are gone.
const TitlePrefix = "NO HOLDINGS - "

// DefaultFailureDebounce is the minimum gap between two counted failures.
const DefaultFailureDebounce = 3 * time.Minute

var periodicalKeywords = []string{
	"periodical", "periodicals",
	"newspaper", "newspapers",
	"magazine", "magazines",
	"catalog", "catalogs", "adult magazine",
}

// EvergreenSource fetches union catalog holdings for one record.
type EvergreenSource interface {
	Lookup(ctx context.Context, recordID string) (catalog.EvergreenRecord, error)
}

// OverdriveSource fetches lending-platform metadata for one title.
type OverdriveSource interface {
	Lookup(ctx context.Context, libraryKey, reserveID string) (overdrive.Metadata, error)
}

// Enricher adds external metadata to an item before classification.
type Enricher interface {
	Enrich(ctx context.Context, item *store.Item, buckets keywords.Buckets, report *classify.Report) enrich.Info
}

// Request describes one reconciliation.
type Request struct {
	ItemID int64
	// Record is a pre-fetched catalog answer. When nil the reconciler
	// fetches one.
	Record catalog.Record
	Mode   Mode
	// ChangeDate is the source edit stamp supplied with ModeUpdate.
	ChangeDate string
	// Prior is an outcome already reached by the caller. Only Failed is
	// meaningful: it records a failure without consulting the catalog.
	Prior *Outcome
}

// Result is what a reconciliation did.
type Result struct {
	Outcome    Outcome
	Item       *store.Item
	Report     *classify.Report
	Classified bool
	// Cause explains a Failed outcome.
	Cause error
}

// Deps are the reconciler's collaborators. Evergreen and Overdrive may be
// nil when the collection is never reconciled.
type Deps struct {
	Store           *store.Store
	Terms           *termkeys.Cache
	Evergreen       EvergreenSource
	Overdrive       OverdriveSource
	Enricher        Enricher
	Classifier      *classify.Classifier
	Logger          *slog.Logger
	FailureDebounce time.Duration
	Now             func() time.Time
	// OnFailed runs after a Failed outcome is saved so the failed-records
	// sweep can be queued. Its error is logged, not returned.
	OnFailed func(ctx context.Context, itemID int64) error
}

// Reconciler decides an item's holdings outcome and applies it.
type Reconciler struct {
	store      *store.Store
	terms      *termkeys.Cache
	evergreen  EvergreenSource
	overdrive  OverdriveSource
	enricher   Enricher
	classifier *classify.Classifier
	logger     *slog.Logger
	debounce   time.Duration
	now        func() time.Time
	onFailed   func(ctx context.Context, itemID int64) error
}

// NewReconciler creates a reconciler.
func NewReconciler(d Deps) *Reconciler {
	logger := d.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	debounce := d.FailureDebounce
	if debounce <= 0 {
		debounce = DefaultFailureDebounce
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	classifier := d.Classifier
	if classifier == nil {
		index := classify.NewStoreIndex(d.Store)
		classifier = classify.New(index, index, logger)
	}
	return &Reconciler{
		store:      d.Store,
		terms:      d.Terms,
		evergreen:  d.Evergreen,
		overdrive:  d.Overdrive,
		enricher:   d.Enricher,
		classifier: classifier,
		logger:     logging.NewComponentLogger(logger, "reconcile"),
		debounce:   debounce,
		now:        now,
		onFailed:   d.OnFailed,
	}
}

// work is the in-flight state of one item.
type work struct {
	item      *store.Item
	itemTypes []string
	buckets   keywords.Buckets
	report    *classify.Report
	genres    []int64
	audience  []int64
	locations []int64
	shelves   []int64
}

// Reconcile runs one item through the holdings check, classification and
// status update, and persists the result.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) (Result, error) {
	ctx = logging.WithItemID(ctx, req.ItemID)
	item, err := r.store.GetItem(ctx, req.ItemID)
	if err != nil {
		return Result{}, fmt.Errorf("load item %d: %w", req.ItemID, err)
	}
	if item == nil {
		return Result{}, &Error{Kind: KindNotFound, ItemID: req.ItemID, Err: ErrItemNotFound}
	}

	set, err := r.terms.Get(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("term keys: %w", err)
	}
	w := r.prepare(ctx, item, set)

	outcome, cause := r.initialOutcome(w, req)
	if outcome != Unchanged && outcome != Failed {
		switch item.Collection {
		case store.CollectionOverdrive:
			outcome, cause = r.overdrivePhase(ctx, w, req.Record, outcome)
		default:
			outcome, cause = r.evergreenPhase(ctx, w, req.Record, outcome)
		}
	}

	classified := false
	if outcome == New || (outcome == Check && !w.report.Complete()) {
		if err := r.classify(ctx, w, set); err != nil {
			return Result{}, err
		}
		classified = true
	}

	r.apply(w, outcome)
	if err := r.store.UpdateItem(ctx, w.item); err != nil {
		return Result{}, fmt.Errorf("save item %d: %w", item.ID, err)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldRecordID, w.item.RecordID),
		logging.String(logging.FieldOutcome, outcome.String()),
		logging.String("mode", req.Mode.String()),
		logging.String("status", string(w.item.Status)),
		logging.Bool("classified", classified),
	}
	if outcome == Failed {
		logging.WarnWithContext(r.logger, "catalog lookup failed", "reconcile_failed",
			append(attrs,
				logging.Int("check_fail_count", w.item.CheckFailCount),
				logging.Error(cause),
				logging.String(logging.FieldErrorHint, "the item is retried by the failed sweep"),
			)...)
		if r.onFailed != nil {
			if err := r.onFailed(ctx, w.item.ID); err != nil {
				logging.WarnWithContext(r.logger, "failed sweep not queued", "failed_sweep_queue",
					logging.Error(err),
					logging.String(logging.FieldImpact, "the item waits for the next scheduled sweep"),
				)
			}
		}
	} else {
		r.logger.InfoContext(ctx, "item reconciled", logging.Args(attrs...)...)
	}

	return Result{
		Outcome:    outcome,
		Item:       w.item,
		Report:     w.report,
		Classified: classified,
		Cause:      cause,
	}, nil
}

// prepare normalizes identifiers, loads keyword buckets and seeds the
// completeness report from the item's current state.
func (r *Reconciler) prepare(ctx context.Context, item *store.Item, set *termkeys.Set) *work {
	for i, id := range item.Identifiers {
		if strings.EqualFold(id.Type, "isbn") {
			item.Identifiers[i].Value = textutil.NormalizeISBN(id.Value)
		}
	}
	if item.Terms == nil {
		item.Terms = map[string][]int64{}
	}

	buckets, err := keywords.Parse(item.TermKeysJSON)
	if err != nil {
		logging.WarnWithContext(r.logger, "stored keywords unreadable", "term_keys_invalid",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "classification runs without stored keywords"),
		)
		buckets = keywords.Buckets{}
	}

	w := &work{
		item:      item,
		itemTypes: append([]string(nil), item.ItemTypes...),
		buckets:   buckets,
		report:    classify.NewReport(),
		genres:    append([]int64(nil), item.Terms[store.TaxGenres]...),
		audience:  append([]int64(nil), item.Terms[store.TaxAudience]...),
	}
	if item.CoverURL != "" {
		w.report.Set(classify.KeyCover, true)
	}
	if len(w.genres) > 0 {
		w.report.Set(classify.KeyGenres, true)
	}
	if len(w.audience) > 0 {
		w.report.Set(classify.KeyAudience, true)
	}
	// A defaulted audience stays flagged until a reviewer clears it.
	if item.Status == store.StatusPending && hasVerifyKey(item.Verify, classify.KeyCheckAudience) {
		w.report.Set(classify.KeyCheckAudience, false)
	}
	if isPeriodical(set, w) {
		w.itemTypes = []string{"periodical"}
		r.logger.DebugContext(ctx, "item treated as periodical",
			logging.Args(logging.DecisionAttrs("item_type", "periodical", "periodical keywords or genre")...)...)
	}
	return w
}

func hasVerifyKey(verify, key string) bool {
	for _, k := range strings.Split(verify, ";") {
		if strings.TrimSpace(k) == key {
			return true
		}
	}
	return false
}

func isPeriodical(set *termkeys.Set, w *work) bool {
	if magazines, ok := set.GenreID(classify.GenreMagazines); ok {
		for _, id := range w.genres {
			if id == magazines {
				return true
			}
		}
	}
	if w.buckets.Contains(keywords.Genres, "journal") {
		return true
	}
	for _, kw := range periodicalKeywords {
		if w.buckets.Contains(keywords.Topics, kw) || w.buckets.Contains(keywords.GenresOther, kw) {
			return true
		}
	}
	return false
}

func (r *Reconciler) initialOutcome(w *work, req Request) (Outcome, error) {
	if req.Prior != nil && *req.Prior == Failed {
		return Failed, &Error{Kind: KindTransport, ItemID: w.item.ID, Err: fmt.Errorf("no catalog record returned")}
	}
	switch req.Mode {
	case ModeImport:
		return New, nil
	case ModeUpdate:
		if strings.TrimSpace(req.ChangeDate) == "" {
			return Check, nil
		}
		changed := textutil.FormatDate(req.ChangeDate, r.now())
		if changed == w.item.RecordChangeDate {
			return Unchanged, nil
		}
		w.item.RecordChangeDate = changed
		return Check, nil
	default:
		return Check, nil
	}
}

func (r *Reconciler) lookupError(itemID int64, err error) error {
	return &Error{Kind: KindTransport, ItemID: itemID, Err: err}
}

func (r *Reconciler) evergreenPhase(ctx context.Context, w *work, rec catalog.Record, outcome Outcome) (Outcome, error) {
	if rec == nil {
		if r.evergreen == nil {
			return Failed, r.lookupError(w.item.ID, fmt.Errorf("evergreen source not configured"))
		}
		fetched, err := r.evergreen.Lookup(ctx, w.item.RecordID)
		if err != nil {
			return Failed, r.lookupError(w.item.ID, err)
		}
		rec = fetched
	}

	snap := catalog.Normalize(rec)
	switch snap.Verdict {
	case catalog.VerdictDelete:
		return Delete, nil
	case catalog.VerdictUnknown:
		return Failed, r.lookupError(w.item.ID, fmt.Errorf("holdings record unusable"))
	}

	w.item.Holdings = nil
	if snap.Verdict == catalog.VerdictNone {
		return None, nil
	}

	for _, h := range snap.Available {
		row, err := r.holdingRow(ctx, w, h)
		if err != nil {
			return Failed, err
		}
		if row != nil {
			w.item.Holdings = append(w.item.Holdings, *row)
		}
	}
	if len(w.locations) == 0 {
		return None, nil
	}
	return outcome, nil
}

// holdingRow resolves a copy's shelf and location terms and merges the
// shelf's related genres and audience. Copies at an unknown location yield
// no row.
func (r *Reconciler) holdingRow(ctx context.Context, w *work, h catalog.Holding) (*store.HoldingRow, error) {
	location, err := r.store.TermByMeta(ctx, store.TaxLocation, "shortcode", h.Library)
	if err != nil {
		return nil, fmt.Errorf("location term %q: %w", h.Library, err)
	}
	shelf, err := r.store.TermByMeta(ctx, store.TaxShelf, "shelf_location_id", h.Shelf)
	if err != nil {
		return nil, fmt.Errorf("shelf term %q: %w", h.Shelf, err)
	}
	if location == nil {
		r.logger.DebugContext(ctx, "copy at unknown location skipped",
			logging.String("library", h.Library), logging.String("barcode", h.Barcode))
		return nil, nil
	}

	row := &store.HoldingRow{Barcode: h.Barcode, Location: location.Slug}
	w.locations = addIDs(w.locations, location.ID)
	if shelf != nil {
		row.Shelf = shelf.Slug
		w.shelves = addIDs(w.shelves, shelf.ID)
		w.genres = addIDs(w.genres, aboveOne(shelf.MetaIDs("related_genres"))...)
		w.audience = addIDs(w.audience, aboveOne(shelf.MetaIDs("related_audience"))...)
	}
	return row, nil
}

func (r *Reconciler) overdrivePhase(ctx context.Context, w *work, rec catalog.Record, outcome Outcome) (Outcome, error) {
	snap := catalog.Normalize(rec)
	if rec == nil || snap.Verdict == catalog.VerdictUnknown {
		if r.overdrive == nil {
			return Failed, r.lookupError(w.item.ID, fmt.Errorf("overdrive source not configured"))
		}
		meta, err := r.overdrive.Lookup(ctx, w.item.Library, w.item.RecordID)
		if err != nil {
			return Failed, r.lookupError(w.item.ID, err)
		}
		snap = catalog.Normalize(meta.Record())
	}

	switch snap.Verdict {
	case catalog.VerdictDelete:
		return Delete, nil
	case catalog.VerdictUnknown:
		return Failed, r.lookupError(w.item.ID, fmt.Errorf("ownership not reported"))
	}
	return outcome, nil
}

// classify enriches the item and assigns genre, audience and topic terms.
func (r *Reconciler) classify(ctx context.Context, w *work, set *termkeys.Set) error {
	buckets := w.buckets
	var topics []int64

	if r.enricher != nil {
		enrichItem := *w.item
		enrichItem.ItemTypes = w.itemTypes
		info := r.enricher.Enrich(ctx, &enrichItem, buckets, w.report)
		copyEnrichment(w.item, &enrichItem)

		buckets = buckets.Merge(info.Keywords)
		for _, sub := range info.SubTopics {
			ids, err := r.classifier.InsertTopics(ctx, sub.Path, sub.Values)
			if err != nil {
				return fmt.Errorf("insert %s topics: %w", sub.Path, err)
			}
			topics = addIDs(topics, ids...)
		}
	}

	result, err := r.classifier.Classify(ctx, set, classify.Input{
		Buckets:   buckets,
		Genres:    w.genres,
		Audience:  w.audience,
		ItemTypes: w.itemTypes,
		Forms:     w.item.Forms,
	}, w.report)
	if err != nil {
		return fmt.Errorf("classify item %d: %w", w.item.ID, err)
	}

	w.genres = result.Genres
	w.audience = result.Audience
	terms := w.item.Terms
	terms[store.TaxGenres] = addIDs(terms[store.TaxGenres], result.Genres...)
	if len(result.Audience) > 0 {
		terms[store.TaxAudience] = result.Audience
	}
	terms[store.TaxTopics] = addIDs(addIDs(terms[store.TaxTopics], topics...), result.Topics...)
	return nil
}

// copyEnrichment moves the fields enrichment may fill onto the stored item.
func copyEnrichment(dst, src *store.Item) {
	dst.CoverURL = src.CoverURL
	dst.GoodreadsID = src.GoodreadsID
	dst.OpenLibraryID = src.OpenLibraryID
	dst.GoogleBookID = src.GoogleBookID
	dst.IMDbID = src.IMDbID
	dst.Rating = src.Rating
}

// apply writes the outcome's side effects onto the item.
func (r *Reconciler) apply(w *work, outcome Outcome) {
	item := w.item
	now := r.now()

	if outcome == Failed {
		if item.CheckFailAt == nil || now.Sub(*item.CheckFailAt) > r.debounce {
			item.CheckFailCount++
			stamp := now.UTC()
			item.CheckFailAt = &stamp
		}
	} else {
		item.CheckFailCount = 0
		item.CheckFailAt = nil
	}

	if len(w.locations) > 0 {
		item.Terms[store.TaxLocation] = w.locations
	}
	if len(w.shelves) > 0 {
		item.Terms[store.TaxShelf] = w.shelves
	}
	if outcome == Check || outcome == New {
		// Location and shelf-derived genres apply even without a
		// classification pass.
		item.Terms[store.TaxGenres] = addIDs(item.Terms[store.TaxGenres], w.genres...)
		if len(item.Terms[store.TaxAudience]) == 0 {
			item.Terms[store.TaxAudience] = w.audience
		}
	}

	switch outcome {
	case Delete:
		item.Status = store.StatusTrash
		item.Title = withPrefix(item.Title)
	case None:
		item.Status = store.StatusDraft
		item.Title = withPrefix(item.Title)
	}

	if outcome == Check || outcome == Unchanged {
		if item.Collection == store.CollectionOverdrive {
			item.RecordChangeDate = textutil.Today(now)
		} else {
			item.ActiveDate = textutil.Today(now)
		}
	}

	if outcome == New || outcome == Check {
		if w.report.Complete() {
			item.Status = store.StatusPublish
			item.Verify = ""
		} else {
			item.Status = store.StatusPending
			item.Verify = w.report.Verify()
		}
	}
}

func withPrefix(title string) string {
	if strings.HasPrefix(title, TitlePrefix) {
		return title
	}
	return TitlePrefix + title
}

func aboveOne(ids []int64) []int64 {
	out := ids[:0:0]
	for _, id := range ids {
		if id > 1 {
			out = append(out, id)
		}
	}
	return out
}

func addIDs(list []int64, ids ...int64) []int64 {
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		found := false
		for _, v := range list {
			if v == id {
				found = true
				break
			}
		}
		if !found {
			list = append(list, id)
		}
	}
	return list
}
