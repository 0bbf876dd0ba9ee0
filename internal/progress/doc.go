// Package progress turns raw ffmpeg output into sampled percentage log lines.
//
// Tracker is an events.Sink. On job_started it probes the input duration;
// on every output chunk it looks for ffmpeg's time=HH:MM:SS.xx status token
// and logs when the percentage enters a new 5% bucket. Chunks arrive
// unassembled, so a token split across two chunks is recovered from a short
// carried-over tail. Without a duration the tracker stays silent.
package progress
