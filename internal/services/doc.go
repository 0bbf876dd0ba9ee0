// Package services defines shared utilities consumed by the encoding engine and
// the command-line front end.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, job indexes, and input paths
//     for structured logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (validation vs external tool) with errors.Is.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the tool.
package services
