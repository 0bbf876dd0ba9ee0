// Package events defines what a run reports to the outside world.
//
// The sequencer publishes lifecycle events (run and job boundaries, priority
// results, terminal outcomes) and raw encoder output chunks to a Sink. Sinks
// are append-only observers: they never influence sequencing. Bus stamps
// each event with a sequence number and fans one stream out to several sinks
// in a single total order. Sinks run on the publishing goroutine and must
// hand slow work off.
package events
