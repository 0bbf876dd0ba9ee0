package events

import (
	"time"
)

// Kind classifies an event.
type Kind string

const (
	KindRunStarted      Kind = "run_started"
	KindJobStarted      Kind = "job_started"
	KindOutput          Kind = "output"
	KindPriorityApplied Kind = "priority_applied"
	KindPriorityWarning Kind = "priority_warning"
	KindJobFinished     Kind = "job_finished"
	KindJobSkipped      Kind = "job_skipped"
	KindRunFinished     Kind = "run_finished"
)

// Stream names the pipe an output chunk was read from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// JobStatus is the terminal state of one job.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
	JobSkipped   JobStatus = "skipped"
)

// RunResult is the terminal state of one run.
type RunResult string

const (
	RunAllComplete RunResult = "all_complete"
	RunStopped     RunResult = "stopped"
)

// Event is one sequenced observation. Only the fields relevant to Kind are set.
type Event struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"time"`
	Kind     Kind      `json:"kind"`
	RunID    string    `json:"run_id,omitempty"`
	JobIndex int       `json:"job_index,omitempty"`
	JobCount int       `json:"job_count,omitempty"`

	Input   string `json:"input,omitempty"`
	Output  string `json:"output,omitempty"`
	Command string `json:"command,omitempty"`
	PID     int    `json:"pid,omitempty"`

	Stream Stream `json:"stream,omitempty"`
	Text   string `json:"text,omitempty"`

	Priority   string `json:"priority,omitempty"`
	// OSPriority is the value read back from the OS after a priority change.
	OSPriority *int   `json:"os_priority,omitempty"`
	Preset     string `json:"preset,omitempty"`
	CRF        int    `json:"crf,omitempty"`

	Status   JobStatus     `json:"status,omitempty"`
	ExitCode *int          `json:"exit_code,omitempty"`
	Killed   bool          `json:"killed,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`

	Result    RunResult `json:"result,omitempty"`
	Succeeded int       `json:"succeeded,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	Skipped   int       `json:"skipped,omitempty"`
}

// ExitCodeValue returns the exit code and whether the process exited on its own.
func (e Event) ExitCodeValue() (int, bool) {
	if e.ExitCode == nil {
		return 0, false
	}
	return *e.ExitCode, true
}

// Sink consumes events. Publish must not block for long; it runs on the
// goroutine that drives the run or drains encoder output.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// IntPtr is a convenience for filling ExitCode.
func IntPtr(v int) *int { return &v }
