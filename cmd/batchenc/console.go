package main

import (
	"io"
	"sync"

	"batchenc/internal/events"
)

// consoleSink relays encoder output to the terminal as it arrives. Lifecycle
// lines come from the logger, so only output events are written here.
type consoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	quiet bool
}

func newConsoleSink(w io.Writer, quiet bool) *consoleSink {
	return &consoleSink{w: w, quiet: quiet}
}

func (c *consoleSink) Publish(e events.Event) {
	if c.quiet || e.Kind != events.KindOutput {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, e.Text)
}

var _ events.Sink = (*consoleSink)(nil)
