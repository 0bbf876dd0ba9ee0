// Package history keeps a SQLite journal of finished runs and their jobs.
//
// The journal is written by Journal, an events.Sink, and read back by the
// history command. It records outcomes only; nothing in the sequencer reads
// from it, and it is not a place for saved preferences.
//
// The schema is versioned. A database written by a different schema version
// is rejected with ErrSchemaMismatch and must be cleared.
package history
