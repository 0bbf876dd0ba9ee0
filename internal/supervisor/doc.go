// Package supervisor runs one external encoder process at a time.
//
// Run starts the process, reports the pid once it is live, drains stdout and
// stderr concurrently and forwards every chunk as it arrives, and returns
// exactly one Outcome: a natural exit code, a forced kill, or a spawn
// failure. Chunks are decoded as UTF-8 with invalid bytes replaced, but they
// are never assembled into lines; ffmpeg redraws its status line with
// carriage returns and observers see that verbatim.
//
// Cancel may be called from any goroutine. It kills the live process at most
// once per Run and is a no-op when nothing is running. On Unix the encoder is
// started in its own process group and the whole group is killed.
package supervisor
