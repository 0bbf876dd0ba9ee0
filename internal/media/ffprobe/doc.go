// Package ffprobe inspects media files with the ffprobe CLI.
//
// batchenc uses it for two things: the duration that turns ffmpeg's
// time= progress into a percentage, and the stream summary shown by
// `batchenc plan`. Both are optional; callers treat a probe failure as
// "unknown" rather than an error that blocks encoding.
package ffprobe
