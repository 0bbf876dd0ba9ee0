// Package main hosts the batchenc CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into batch runs: it
// builds the input list, snapshots encoding settings from config and flags,
// asks for confirmation when outputs could clobber inputs, and drives the
// sequencer while relaying encoder output. Supporting commands preview a run,
// check for ffmpeg, list presets, and read back the run history.
//
// Keep this package lean: behavior lives in internal packages and is only
// surfaced here.
package main
