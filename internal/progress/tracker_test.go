package progress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"batchenc/internal/events"
	"batchenc/internal/logging"
)

type fixedProber struct {
	duration time.Duration
	err      error
}

func (p fixedProber) Duration(context.Context, string) (time.Duration, error) {
	return p.duration, p.err
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
		ok   bool
	}{
		{"frame=  10 fps=0.0 q=0.0 size=0kB time=00:00:01.50 bitrate=", 1500 * time.Millisecond, true},
		{"time=01:02:03.00 x time=01:02:04.25 y", time.Hour + 2*time.Minute + 4250*time.Millisecond, true},
		{"time=N/A bitrate=N/A", 0, false},
		{"size=0kB time=00:00:0", 0, false},
		{"no progress here", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.text)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseTime(%q) = %v, %v; want %v, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(30*time.Second, time.Minute); got != 50 {
		t.Fatalf("Percent = %v", got)
	}
	if Percent(2*time.Minute, time.Minute) != 100 || Percent(time.Second, 0) != 0 {
		t.Fatal("Percent must clamp and handle unknown totals")
	}
}

func newTestTracker(t *testing.T, prober DurationProber) (*Tracker, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Console: &buf})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewTracker(context.Background(), prober, logger), &buf
}

func TestTrackerLogsSampledProgressAcrossSplitChunks(t *testing.T) {
	tracker, buf := newTestTracker(t, fixedProber{duration: 100 * time.Second})
	tracker.Publish(events.Event{Kind: events.KindRunStarted, JobCount: 1})
	tracker.Publish(events.Event{Kind: events.KindJobStarted, JobIndex: 1, Input: "in.mp4"})

	chunks := []string{
		"frame=1 time=00:00:0", "1.00 bitrate=1\r",
		"frame=2 time=00:00:02.00 bitrate=1\r",
		"frame=3 time=00:00:10.00 bitrate=1\r",
		"frame=4 time=00:00:11.00 bitrate=1\r",
	}
	for _, chunk := range chunks {
		tracker.Publish(events.Event{Kind: events.KindOutput, Stream: events.StreamStderr, Text: chunk})
	}

	out := buf.String()
	if got := strings.Count(out, "progress:"); got != 2 {
		t.Fatalf("expected 2 sampled lines (0%% and 10%%), got %d:\n%s", got, out)
	}
	if !strings.Contains(out, "percent=10%") {
		t.Fatalf("expected 10%% bucket, got:\n%s", out)
	}
	if tracker.Position() != 11*time.Second {
		t.Fatalf("Position = %v", tracker.Position())
	}

	tracker.Publish(events.Event{Kind: events.KindJobFinished, JobIndex: 1})
	if tracker.Position() != 0 {
		t.Fatal("job_finished should reset the tracker")
	}
}

func TestTrackerSilentWithoutDuration(t *testing.T) {
	tracker, buf := newTestTracker(t, fixedProber{err: errors.New("no ffprobe")})
	tracker.Publish(events.Event{Kind: events.KindJobStarted, JobIndex: 1, Input: "in.mp4"})
	tracker.Publish(events.Event{Kind: events.KindOutput, Text: "time=00:00:05.00 bitrate="})
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	nilProber, buf2 := newTestTracker(t, nil)
	nilProber.Publish(events.Event{Kind: events.KindJobStarted, JobIndex: 1})
	nilProber.Publish(events.Event{Kind: events.KindOutput, Text: "time=00:00:05.00 bitrate="})
	if buf2.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf2.String())
	}
}
