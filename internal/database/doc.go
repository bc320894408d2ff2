// Package database provides SQLite-based persistence for consensus runs.
//
// Every run of the tool can be saved with its full result, which backs the
// history command: listing past runs for a task, retrieving a specific run,
// and diffing the consensus rows of two runs to see which agreed ranges
// appeared or disappeared between processing rounds.
package database
