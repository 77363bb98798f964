// Package omdb looks up film and television details in the Open Movie
// Database.
package omdb
