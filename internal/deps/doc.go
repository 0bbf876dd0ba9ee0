// Package deps locates the external tools batchenc drives.
//
// Resolution order for ffmpeg and ffprobe: an explicitly configured command
// or path, then a bundled copy under ffmpeg/bin next to the batchenc
// executable, then PATH. CheckBinaries reports the result for `batchenc check`.
package deps
