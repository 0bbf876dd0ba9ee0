// Package queue builds the ordered, de-duplicated list of input files a run
// is started with.
//
// Only regular files with a known video extension are accepted. Directories
// expand to the video files they contain, optionally recursively, in lexical
// order. Two paths are the same entry when their identity keys match: the
// absolute path with symlinks resolved and Unicode normalized to NFC, so a
// file dropped twice (or once via a link) is queued once.
package queue
