package goodreads

// filteredShelves are reader bookkeeping shelves that say nothing about the
// book's content.
var filteredShelves = newSet(
	"2017-reads",
	"2017-books-read",
	"2018-reads",
	"2018-books-read",
	"2019-reads",
	"2019-books-read",
	"2020-reads",
	"2020-books-read",
	"2021-reads",
	"2021-books-read",
	"abandoned",
	"arc",
	"at-home",
	"audible",
	"audible-com",
	"audio",
	"audio-books",
	"audio-book",
	"audiobooks",
	"audiobook",
	"books",
	"books-i-own",
	"books-i-purchased",
	"books-i-want-to-read-in-2017",
	"books-i-want-to-read-in-2018",
	"books-i-want-to-read-in-2019",
	"books-i-want-to-read-in-2020",
	"books-i-want-to-read-in-2021",
	"books-i-want-to-read-in-2022",
	"books-that-were-won",
	"coming-soon",
	"cover-love",
	"currently-reading",
	"default",
	"did-not-finish",
	"e-book",
	"e-books",
	"ebook",
	"ebooks",
	"eventually",
	"favorite-authors",
	"favorite-books",
	"favorites",
	"favourites",
	"for-review",
	"for-sale",
	"hardcover",
	"have",
	"holds",
	"home-library",
	"i-own",
	"kindle",
	"library",
	"library-returned",
	"maybe",
	"my-books",
	"my-library",
	"need-to-buy",
	"net-galley",
	"netgalley",
	"next-to-read",
	"not-read",
	"on-hold",
	"own-it",
	"owned",
	"owned-books",
	"on-my-bookshelf",
	"paperback",
	"re-read",
	"read-in-2017",
	"read-in-2018",
	"read-in-2019",
	"read-in-2020",
	"read-in-2021",
	"read-in-2022",
	"recommended",
	"reviewed",
	"review-books-read",
	"review-copies",
	"tbr",
	"to-buy",
	"to-read",
	"to-read-fiction",
	"to-re-read",
	"to-reread",
	"unfinished",
	"wish-list",
)

func newSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func isFiltered(name string) bool {
	_, ok := filteredShelves[name]
	return ok
}
