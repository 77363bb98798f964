package enrich

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"fontana/internal/classify"
	"fontana/internal/keywords"
	"fontana/internal/logging"
	"fontana/internal/metadata/goodreads"
	"fontana/internal/metadata/omdb"
	"fontana/internal/metadata/openlibrary"
	"fontana/internal/store"
	"fontana/internal/textutil"
)

// bookTypes are the item types looked up in OpenLibrary and GoodReads.
var bookTypes = []string{"text", "sound recording-nonmusical", "ebook", "audiobook"}

var nonDigits = regexp.MustCompile(`\D`)

// SubTopic is a group of values to file as topics below Path. Path segments
// are separated by ">".
type SubTopic struct {
	Path   string
	Values []string
}

// Info is the keyword material gathered for an item. Cover, ids and rating
// are written straight onto the item.
type Info struct {
	Keywords  keywords.Buckets
	SubTopics []SubTopic
}

// Enricher queries the metadata services. Any of the clients may be nil.
type Enricher struct {
	omdb        *omdb.Client
	openLibrary *openlibrary.Client
	goodreads   *goodreads.Client
	logger      *slog.Logger
}

// New creates an enricher.
func New(omdbClient *omdb.Client, openLibrary *openlibrary.Client, goodreadsClient *goodreads.Client, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Enricher{
		omdb:        omdbClient,
		openLibrary: openLibrary,
		goodreads:   goodreadsClient,
		logger:      logging.NewComponentLogger(logger, "enrich"),
	}
}

// Enrich looks item up in the services that fit its type. buckets are the
// item's current keywords and are only read. Found values update item and
// report in place.
func (e *Enricher) Enrich(ctx context.Context, item *store.Item, buckets keywords.Buckets, report *classify.Report) Info {
	if report == nil {
		report = classify.NewReport()
	}
	acc := &collector{}

	if item.HasItemType("video") || item.HasItemType("moving image") {
		e.fromOMDb(ctx, item, buckets, report, acc)
	}
	if isBook(item) {
		e.fromOpenLibrary(ctx, item, report, acc)
		e.fromGoodReads(ctx, item, report, acc)
	}

	return Info{
		Keywords: keywords.New(map[keywords.Bucket][]string{
			keywords.Topics:        acc.topics,
			keywords.AudienceOther: acc.audienceOther,
		}, keywords.Dewey{}),
		SubTopics: acc.subTopics,
	}
}

type collector struct {
	topics        []string
	audienceOther []string
	subTopics     []SubTopic
	rated         bool
}

func (c *collector) addSubTopic(path string, values []string) {
	var kept []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	if len(kept) > 0 {
		c.subTopics = append(c.subTopics, SubTopic{Path: path, Values: kept})
	}
}

func isBook(item *store.Item) bool {
	for _, kind := range bookTypes {
		if item.HasItemType(kind) {
			return true
		}
	}
	return false
}

func isTV(item *store.Item, buckets keywords.Buckets) bool {
	if strings.Contains(strings.ToLower(item.PartNumber), "season ") {
		return true
	}
	for _, bucket := range keywords.All {
		if buckets.ContainsAny(bucket, "television", "series") {
			return true
		}
	}
	return false
}

func setCover(item *store.Item, report *classify.Report, url string) bool {
	if url = strings.TrimSpace(url); url == "" || item.CoverURL != "" {
		return false
	}
	item.CoverURL = url
	report.Set(classify.KeyCover, true)
	return true
}

func (e *Enricher) fromOMDb(ctx context.Context, item *store.Item, buckets keywords.Buckets, report *classify.Report, acc *collector) {
	if !e.omdb.Enabled() {
		return
	}
	var result *omdb.Result
	if isTV(item, buckets) {
		result = e.omdb.Lookup(ctx, omdb.Query{Type: omdb.QuerySearch, Kind: omdb.KindSeries}, textutil.StripBracketed(item.Title))
	} else {
		titles := make([]string, 0, len(item.AltTitles)+1)
		for _, alt := range item.AltTitles {
			titles = append(titles, textutil.StripBracketed(alt))
		}
		if len(titles) == 0 {
			titles = append(titles, textutil.StripBracketed(item.Title))
		}
		result = e.omdb.Lookup(ctx, omdb.Query{Type: omdb.QueryTitle, Kind: omdb.KindMovie, Year: yearOf(item.DateIssued)}, titles...)
	}
	if result.Empty() {
		e.logger.DebugContext(ctx, "omdb returned nothing", logging.Int("code", result.Code))
		return
	}

	if setCover(item, report, result.Info("Poster")) {
		report.Set(classify.KeyVerifyCover, false)
	}
	if id := result.Info("imdbID"); id != "" {
		item.IMDbID = id
	}
	if rating, ok := result.Rating(); ok {
		item.Rating = rating
		acc.rated = true
	}
	if genre := result.Info("Genre"); genre != "" {
		acc.addSubTopic(classify.TopicSubGenre, strings.Split(genre, ","))
	}
	if rated := result.Info("Rated"); rated != "" {
		if first := strings.TrimSpace(strings.Split(rated, ";")[0]); first != "" {
			acc.audienceOther = append(acc.audienceOther, first)
		}
	}
}

// yearOf reads a release year from the first four digits of a date field
// such as "c2005" or "p2004.".
func yearOf(value string) int {
	digits := nonDigits.ReplaceAllString(value, "")
	if len(digits) < 4 {
		return 0
	}
	year, err := strconv.Atoi(digits[:4])
	if err != nil {
		return 0
	}
	return year
}

func (e *Enricher) fromOpenLibrary(ctx context.Context, item *store.Item, report *classify.Report, acc *collector) {
	if e.openLibrary == nil || len(item.Identifiers) == 0 {
		return
	}
	ids := make([]openlibrary.Identifier, 0, len(item.Identifiers))
	for _, id := range item.Identifiers {
		ids = append(ids, openlibrary.Identifier{Type: id.Type, Value: id.Value})
	}
	result := e.openLibrary.Lookup(ctx, ids)
	if result.Empty() {
		e.logger.DebugContext(ctx, "openlibrary returned nothing", logging.Int("code", result.Code))
		return
	}

	setCover(item, report, result.Cover())
	found := result.IDs()
	if found.OpenLibrary != "" {
		item.OpenLibraryID = found.OpenLibrary
	}
	if found.GoodReads != "" {
		item.GoodreadsID = found.GoodReads
	}
	if found.Google != "" {
		item.GoogleBookID = found.Google
	}
	kw := result.Keywords()
	acc.topics = append(acc.topics, kw.Topics...)
	for _, sub := range kw.SubTopics {
		acc.addSubTopic(sub.Parent, sub.Values)
	}
}

func (e *Enricher) fromGoodReads(ctx context.Context, item *store.Item, report *classify.Report, acc *collector) {
	if !e.goodreads.Enabled() {
		return
	}

	if id := strings.TrimSpace(item.GoodreadsID); id != "" {
		if result := e.goodreads.ByID(ctx, id); !result.Empty() {
			e.applyBook(ctx, item, report, acc, result)
			return
		}
	}

	if isbns := item.IdentifierValues("isbn"); len(isbns) > 0 {
		if result := e.goodreads.ByISBN(ctx, isbns); !result.Empty() {
			if id := result.Info("id"); id != "" {
				item.GoodreadsID = id
			}
			e.applyBook(ctx, item, report, acc, result)
		}
	}

	if acc.rated {
		return
	}
	title := textutil.StripBracketed(item.Title)
	if title == "" {
		return
	}
	result := e.goodreads.Search(ctx, title, textutil.AuthorQuery(firstCreator(item.Creator)))
	if result.Empty() {
		e.logger.DebugContext(ctx, "goodreads search returned nothing", logging.Int("code", result.Code))
		return
	}
	if setCover(item, report, result.Info("image_url")) {
		report.Set(classify.KeyCoverImage, false)
	}
	if id := result.Info("id"); id != "" {
		item.GoodreadsID = id
		report.Set(classify.KeyGoodreadsID, false)
	}
	if rating, ok := parseRating(result.Info("average_rating")); ok {
		item.Rating = rating
		acc.rated = true
		report.Set(classify.KeyRating, false)
	}
	if kw := result.Keywords(ctx); len(kw) > 0 {
		acc.topics = append(acc.topics, kw...)
		report.Set(classify.KeyTermsKeywords, false)
	}
}

func (e *Enricher) applyBook(ctx context.Context, item *store.Item, report *classify.Report, acc *collector, result *goodreads.Result) {
	setCover(item, report, result.Info("image_url"))
	if rating, ok := parseRating(result.Info("average_rating")); ok {
		item.Rating = rating
		acc.rated = true
	}
	acc.topics = append(acc.topics, result.Keywords(ctx)...)
}

func parseRating(value string) (float64, bool) {
	if value = strings.TrimSpace(value); value == "" {
		return 0, false
	}
	rating, err := strconv.ParseFloat(value, 64)
	if err != nil || rating <= 0 {
		return 0, false
	}
	return rating, true
}

func firstCreator(creator string) string {
	return strings.TrimSpace(strings.Split(creator, ";")[0])
}
