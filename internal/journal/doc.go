// Package journal records every request attempt in a small SQLite ledger.
//
// Rows are append-only and keyed by request id, so the status command can
// show recent activity and failures survive the process. The ledger is
// operational history, not the source of truth for completion: summary files
// and diary feedback sections decide what still needs work.
//
// Schema changes bump schemaVersion; users delete the database to adopt them.
package journal
