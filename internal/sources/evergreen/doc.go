// Package evergreen reads copy-level holdings from the Evergreen union
// catalog through its unAPI endpoint.
//
// A single lookup requests one bibliographic record with the holdings_xml
// format; a bulk lookup requests a biblio_record_entry_feed for a
// comma-joined id list and combines the returned documents with the
// requested ids by position.
package evergreen
