// Package sequencer drives a batch run: one encoder process at a time over an
// ordered queue of input files.
//
// Sequencer exclusively owns the run state (the pending FIFO, the current
// job, the cancellation latch) and moves between Idle, Running and
// Cancelling. A job's success or failure never halts the run; only Cancel
// does, after which remaining jobs are discarded and the in-flight process
// is killed. Every run ends with exactly one run_finished event carrying
// all_complete or stopped.
//
// Process supervision is delegated to a Runner (normally
// *supervisor.Supervisor); observers attach through an events.Sink.
package sequencer
