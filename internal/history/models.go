package history

import (
	"time"

	"batchenc/internal/events"
)

// Run is one recorded batch run.
type Run struct {
	ID        string
	Started   time.Time
	Finished  time.Time
	Result    events.RunResult
	JobCount  int
	Preset    string
	CRF       int
	Priority  string
	Succeeded int
	Failed    int
	Skipped   int
}

// Done reports whether the run reached run_finished.
func (r Run) Done() bool {
	return !r.Finished.IsZero()
}

// Job is one recorded job outcome.
type Job struct {
	RunID      string
	Index      int
	InputPath  string
	OutputPath string
	Status     events.JobStatus
	// ExitCode is nil when the process never exited on its own.
	ExitCode *int
	Killed   bool
	Duration time.Duration
	Error    string
	Finished time.Time
}
