package events

import (
	"sync"
	"time"
)

// Bus stamps events with a sequence number and time and forwards each to
// every subscribed sink in publish order.
type Bus struct {
	mu      sync.Mutex
	nextSeq uint64
	sinks   []Sink
}

// NewBus creates a bus delivering to sinks. Nil sinks are ignored.
func NewBus(sinks ...Sink) *Bus {
	b := &Bus{}
	for _, sink := range sinks {
		b.Subscribe(sink)
	}
	return b
}

// Subscribe adds a sink. Events published earlier are not replayed.
func (b *Bus) Subscribe(sink Sink) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish stamps event and delivers it. Delivery happens under the bus lock
// so every sink observes the same total order; sinks must not publish back
// into the bus and must not block.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	for _, sink := range b.sinks {
		sink.Publish(event)
	}
}
