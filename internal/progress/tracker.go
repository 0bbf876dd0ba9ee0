package progress

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"batchenc/internal/events"
	"batchenc/internal/logging"
)

const tailSize = 48

var timePattern = regexp.MustCompile(`time=\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// DurationProber reports the playback length of a media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Tracker logs sampled encode progress for the running job.
type Tracker struct {
	ctx     context.Context
	prober  DurationProber
	logger  *slog.Logger
	sampler *logging.ProgressSampler

	mu       sync.Mutex
	jobIndex int
	jobCount int
	total    time.Duration
	position time.Duration
	tail     string
}

// NewTracker builds a tracker. A nil prober disables percentages.
func NewTracker(ctx context.Context, prober DurationProber, logger *slog.Logger) *Tracker {
	return &Tracker{
		ctx:     ctx,
		prober:  prober,
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(5),
	}
}

// Publish implements events.Sink.
func (t *Tracker) Publish(e events.Event) {
	switch e.Kind {
	case events.KindRunStarted:
		t.mu.Lock()
		t.jobCount = e.JobCount
		t.mu.Unlock()
	case events.KindJobStarted:
		t.startJob(e)
	case events.KindOutput:
		t.observe(e.Text)
	case events.KindJobFinished, events.KindJobSkipped:
		t.mu.Lock()
		t.reset()
		t.mu.Unlock()
	}
}

// Position returns the last encoded timestamp seen for the current job.
func (t *Tracker) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

func (t *Tracker) startJob(e events.Event) {
	var total time.Duration
	if t.prober != nil {
		probed, err := t.prober.Duration(t.ctx, e.Input)
		if err != nil {
			t.logger.Debug("duration unavailable, progress disabled for job",
				logging.String(logging.FieldInput, e.Input),
				logging.Error(err),
			)
		} else {
			total = probed
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
	t.jobIndex = e.JobIndex
	t.total = total
}

func (t *Tracker) reset() {
	t.jobIndex = 0
	t.total = 0
	t.position = 0
	t.tail = ""
	t.sampler.Reset()
}

func (t *Tracker) observe(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total <= 0 {
		return
	}
	position, ok := scanTime(t.tail + text)
	combined := t.tail + text
	if len(combined) > tailSize {
		combined = combined[len(combined)-tailSize:]
	}
	t.tail = combined
	if !ok || position < t.position {
		return
	}
	t.position = position
	percent := Percent(position, t.total)
	if !t.sampler.ShouldLog(percent) {
		return
	}
	t.logger.Info("progress",
		logging.Int(logging.FieldJobIndex, t.jobIndex),
		logging.Int(logging.FieldJobCount, t.jobCount),
		logging.String("percent", strconv.FormatFloat(percent, 'f', 0, 64)+"%"),
		logging.Duration("position", position.Truncate(time.Second)),
		logging.Duration("total", t.total.Truncate(time.Second)),
	)
}

// Percent clamps position/total to [0, 100].
func Percent(position, total time.Duration) float64 {
	if total <= 0 || position <= 0 {
		return 0
	}
	pct := float64(position) / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// scanTime returns the last complete time= token in text. A token touching
// the end of text may still be growing and is ignored.
func scanTime(text string) (time.Duration, bool) {
	matches := timePattern.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if m[1] >= len(text) {
			continue
		}
		return parseClock(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]), true
	}
	return 0, false
}

// ParseTime extracts the last complete time= position from ffmpeg output.
func ParseTime(text string) (time.Duration, bool) {
	return scanTime(text)
}

func parseClock(hours, minutes, seconds string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.ParseFloat(seconds, 64)
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s*float64(time.Second))
}

var _ events.Sink = (*Tracker)(nil)
