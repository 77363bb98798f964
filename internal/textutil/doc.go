// Package textutil provides text normalization shared by importers, the
// classifier and alert rendering.
//
// The primary use cases are:
//   - Normalizing catalog keywords (punctuation trim, Unicode lowercasing)
//   - Building term slugs with accent folding
//   - Normalizing change dates, ISBNs and title parts from catalog records
//   - Formatting names for search queries and email bodies
package textutil
