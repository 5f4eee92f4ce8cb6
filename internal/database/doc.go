// Package database provides SQLite-based run history for liststat.
//
// Every successful run of a list is stored with its complete JSON document
// and one row per month, so the compare command can show how the archive
// of a list changed between two runs. The database is a single file in the
// XDG data directory, opened through the CGO-free modernc.org/sqlite driver.
package database
