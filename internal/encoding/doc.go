// Package encoding derives the concrete work for one transcoding job.
//
// It owns the immutable Settings snapshot (preset, CRF, priority, output
// directory and suffix modes) and the pure functions that turn an input path
// plus that snapshot into an output path and the ffmpeg argument vector. No
// function here touches the filesystem except Settings.Validate, which the
// sequencer calls before a run starts.
//
// BuildOutputPath never prevents an output from landing on its input; the
// overwrite gate lives with the caller, which can consult OverwriteRisk and
// HasEffectiveSuffix before starting a run.
package encoding
