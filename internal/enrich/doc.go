// Package enrich fills in cover art, external ids, ratings and extra
// keywords for an item from OMDb, OpenLibrary and GoodReads.
//
// Videos are looked up in OMDb. Books and audiobooks go to OpenLibrary and
// then GoodReads. A remote that is disabled, unreachable or silent simply
// contributes nothing.
package enrich
