// Package openlibrary resolves ISBN, OCLC, LCCN and OLID identifiers against
// the OpenLibrary books API for covers, cross-reference ids and subjects.
package openlibrary
