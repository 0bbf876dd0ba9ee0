// Package preflight checks that the directories a run writes to are usable
// before any encoder is started. Results feed `batchenc check`.
package preflight
