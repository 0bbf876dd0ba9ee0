package events

import "sync"

// Recorder keeps every event it receives. It backs tests and the plan view.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Lifecycle returns recorded events with output chunks filtered out.
func (r *Recorder) Lifecycle() []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind != KindOutput {
			out = append(out, e)
		}
	}
	return out
}

// Kinds lists the kinds of the lifecycle events, in order.
func (r *Recorder) Kinds() []Kind {
	var kinds []Kind
	for _, e := range r.Lifecycle() {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// Output concatenates the text of every chunk read from stream.
func (r *Recorder) Output(stream Stream) string {
	var text string
	for _, e := range r.Events() {
		if e.Kind == KindOutput && e.Stream == stream {
			text += e.Text
		}
	}
	return text
}
