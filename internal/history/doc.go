// Package history records finished translation runs in a SQLite journal.
//
// Each run row captures the languages, model and directories used, and one
// file row per input records the final outcome label, counters and
// duration. The journal is append-only bookkeeping for the `history`
// command; nothing reads it back to resume work.
package history
