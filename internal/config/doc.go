// Package config loads, normalizes, and validates batchenc configuration data.
//
// It supplies repository defaults that mirror what a first-time user sees
// (preset slow, CRF 20, below-normal priority, outputs next to their inputs
// with an _x265 suffix), expands user paths including tilde shortcuts, reads
// TOML files, and honours the BATCHENC_FFMPEG and BATCHENC_FFPROBE
// environment fallbacks.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors. EncodingSettings turns the
// [encoding] section into the snapshot a run is started with.
package config
