// Package goodreads reads book details and popular shelves from the
// GoodReads XML API.
package goodreads
