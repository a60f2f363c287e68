// Package sqlite provides SQLite-backed storage for completed analyses.
//
// The database lives in the data directory (~/.patiently/data by default)
// as analysis.db. Schema changes are applied from the embedded migrations
// package on open.
package sqlite
