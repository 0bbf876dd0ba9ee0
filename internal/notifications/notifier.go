package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"batchenc/internal/events"
	"batchenc/internal/logging"
)

const (
	userAgent      = "batchenc/0.1.0"
	defaultTimeout = 10 * time.Second
	queueSize      = 8
)

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type delivery struct {
	event events.Event
	data  payload
}

// Notifier publishes run start and completion messages to ntfy. Messages are
// sent in order from a background goroutine; Close flushes them.
type Notifier struct {
	ctx      context.Context
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	started  time.Time

	mu     sync.Mutex
	closed bool
	queue  chan delivery
	done   chan struct{}
}

// NewNotifier returns nil when topic is empty.
func NewNotifier(ctx context.Context, topic string, timeout time.Duration, logger *slog.Logger) *Notifier {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}
	n := &Notifier{
		ctx:      ctx,
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "notifications"),
		queue:    make(chan delivery, queueSize),
		done:     make(chan struct{}),
	}
	go n.deliver()
	return n
}

// Publish implements events.Sink. It never waits on the network.
func (n *Notifier) Publish(e events.Event) {
	if n == nil {
		return
	}
	var data payload
	switch e.Kind {
	case events.KindRunStarted:
		n.started = e.Time
		data = runStartedPayload(e)
	case events.KindRunFinished:
		var elapsed time.Duration
		if !n.started.IsZero() && !e.Time.IsZero() {
			elapsed = e.Time.Sub(n.started)
		}
		data = runFinishedPayload(e, elapsed)
	default:
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- delivery{event: e, data: data}:
	default:
		n.warn(e, errors.New("delivery queue full"))
	}
}

// Close waits for queued messages to be sent. Later events are ignored.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) deliver() {
	defer close(n.done)
	for item := range n.queue {
		// Stopped runs still get their summary.
		if err := n.send(context.WithoutCancel(n.ctx), item.data); err != nil {
			n.warn(item.event, err)
		}
	}
}

func (n *Notifier) warn(e events.Event, err error) {
	logging.WarnWithContext(n.logger, "notification not delivered", "ntfy_send",
		logging.String(logging.FieldRunID, e.RunID),
		logging.String("event_kind", string(e.Kind)),
		logging.Error(err),
		logging.String(logging.FieldImpact, "run unaffected"),
	)
}

// Test sends a low priority message so the topic can be verified.
func (n *Notifier) Test(ctx context.Context) error {
	if n == nil {
		return nil
	}
	return n.send(ctx, payload{
		title:    "batchenc - Test",
		message:  "Notification system test",
		tags:     []string{"batchenc", "test"},
		priority: "low",
	})
}

func runStartedPayload(e events.Event) payload {
	noun := "videos"
	if e.JobCount == 1 {
		noun = "video"
	}
	return payload{
		title:   "batchenc - Run Started",
		message: fmt.Sprintf("Encoding %d %s (preset %s, crf %d)", e.JobCount, noun, e.Preset, e.CRF),
		tags:    []string{"batchenc", "run", "started"},
	}
}

func runFinishedPayload(e events.Event, elapsed time.Duration) payload {
	elapsed = elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	tally := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s", e.Succeeded, e.Failed, e.Skipped, elapsed)

	switch {
	case e.Result == events.RunStopped:
		return payload{
			title:   "batchenc - Run Stopped",
			message: "Run stopped before finishing: " + tally,
			tags:    []string{"batchenc", "run", "stopped"},
		}
	case e.Failed > 0 || e.Skipped > 0:
		return payload{
			title:    "batchenc - Run Complete (with errors)",
			message:  "Run complete: " + tally,
			tags:     []string{"batchenc", "run", "error"},
			priority: "high",
		}
	default:
		return payload{
			title:   "batchenc - Run Complete",
			message: "Run complete: " + tally,
			tags:    []string{"batchenc", "run", "completed"},
		}
	}
}

func (n *Notifier) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

var _ events.Sink = (*Notifier)(nil)
