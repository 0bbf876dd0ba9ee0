package sequencer

import (
	"fmt"
	"time"

	"batchenc/internal/events"
)

// State is the sequencer's run-level state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCancelling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Job states besides the terminal ones defined by events.
const (
	JobPending events.JobStatus = "pending"
	JobRunning events.JobStatus = "running"
)

// Job is one input-to-output unit of work.
type Job struct {
	Index      int
	InputPath  string
	OutputPath string
	Status     events.JobStatus
	PID        int
	// ExitCode is valid when Exited is true.
	ExitCode int
	Exited   bool
	Killed   bool
	Err      string
	Started  time.Time
	Finished time.Time
}

// Duration is the job's wall time, zero until it finished.
func (j Job) Duration() time.Duration {
	if j.Started.IsZero() || j.Finished.IsZero() {
		return 0
	}
	return j.Finished.Sub(j.Started)
}

// Summary describes a finished (or finishing) run.
type Summary struct {
	RunID     string
	Result    events.RunResult
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	Skipped   int
	// Dropped counts pending jobs discarded by Cancel.
	Dropped  int
	Started  time.Time
	Finished time.Time
	Jobs     []Job
}

// Clean reports whether every job in the run succeeded.
func (s Summary) Clean() bool {
	return s.Result == events.RunAllComplete && s.Failed == 0 && s.Skipped == 0
}

func (s *Summary) record(job Job) {
	s.Jobs = append(s.Jobs, job)
	switch job.Status {
	case events.JobSucceeded:
		s.Succeeded++
	case events.JobFailed:
		s.Failed++
	case events.JobCancelled:
		s.Cancelled++
	case events.JobSkipped:
		s.Skipped++
	}
}

// Snapshot is a detached copy of the run state for display.
type Snapshot struct {
	State           State
	RunID           string
	Current         *Job
	Pending         []Job
	CancelRequested bool
	Completed       []Job
}

// String renders a one-line status for logs and the CLI.
func (s Summary) String() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed, %d skipped, %d cancelled",
		s.Result, s.Succeeded, s.Failed, s.Skipped, s.Cancelled+s.Dropped)
}
