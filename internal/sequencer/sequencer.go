package sequencer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"batchenc/internal/encoding"
	"batchenc/internal/events"
	"batchenc/internal/logging"
	"batchenc/internal/priority"
	"batchenc/internal/services"
	"batchenc/internal/supervisor"
)

// ErrRunActive is returned by Start while a run is Running or Cancelling.
var ErrRunActive = errors.New("a run is already active")

// Runner supervises one external process per call.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, observer supervisor.Observer) supervisor.Outcome
	Cancel() bool
}

// PrioritySetter adjusts the scheduling priority of a live process.
type PrioritySetter func(pid int, level priority.Level) error

// PriorityConfirmer reads back the priority of a live process and reports
// priority.ErrNotApplied when it differs from level.
type PriorityConfirmer func(pid int, level priority.Level) (int32, error)

// Options configures a Sequencer. Binary and Runner are required.
type Options struct {
	Binary          string
	Runner          Runner
	Sink            events.Sink
	Logger          *slog.Logger
	SetPriority     PrioritySetter
	ConfirmPriority PriorityConfirmer
	NewRunID        func() string
}

// Sequencer owns the run state. All methods are safe for concurrent use.
type Sequencer struct {
	binary      string
	runner      Runner
	sink        events.Sink
	logger      *slog.Logger
	setPriority PrioritySetter
	confirm     PriorityConfirmer
	newRunID    func() string

	mu              sync.Mutex
	state           State
	finishing       bool
	runID           string
	settings        encoding.Settings
	pending         []Job
	current         *Job
	cancelRequested bool
	summary         Summary
	done            chan struct{}
}

// New builds an idle sequencer.
func New(opts Options) *Sequencer {
	s := &Sequencer{
		binary:      opts.Binary,
		runner:      opts.Runner,
		sink:        opts.Sink,
		logger:      logging.NewComponentLogger(opts.Logger, "sequencer"),
		setPriority: opts.SetPriority,
		confirm:     opts.ConfirmPriority,
		newRunID:    opts.NewRunID,
		done:        make(chan struct{}),
	}
	if s.sink == nil {
		s.sink = events.Discard
	}
	if s.setPriority == nil {
		s.setPriority = priority.TrySet
	}
	if s.confirm == nil {
		s.confirm = priority.Confirm
	}
	if s.newRunID == nil {
		s.newRunID = uuid.NewString
	}
	close(s.done)
	return s
}

// Start validates the queue and settings and begins a run in the
// background. Validation failures are returned without touching state. The
// settings value is copied; later changes by the caller are not observed.
// Cancelling ctx has the same effect as Cancel.
func (s *Sequencer) Start(ctx context.Context, inputs []string, settings encoding.Settings) error {
	s.mu.Lock()
	if s.state != StateIdle || s.finishing {
		s.mu.Unlock()
		return ErrRunActive
	}
	if err := s.validate(inputs, settings); err != nil {
		s.mu.Unlock()
		return err
	}

	pending := make([]Job, 0, len(inputs))
	for i, input := range inputs {
		pending = append(pending, Job{Index: i + 1, InputPath: input, Status: JobPending})
	}
	runID := s.newRunID()
	now := time.Now()
	s.state = StateRunning
	s.runID = runID
	s.settings = settings
	s.pending = pending
	s.current = nil
	s.cancelRequested = false
	s.summary = Summary{RunID: runID, Total: len(pending), Started: now}
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	ctx = services.WithRunID(ctx, runID)
	go s.watchContext(ctx, done)
	go s.loop(ctx, runID, len(pending), now, settings)
	return nil
}

func (s *Sequencer) validate(inputs []string, settings encoding.Settings) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "sequencer", "start", "queue is empty", nil)
	}
	if strings.TrimSpace(s.binary) == "" {
		return services.Wrap(services.ErrValidation, "sequencer", "start", "encoder binary not configured", nil)
	}
	if s.runner == nil {
		return services.Wrap(services.ErrValidation, "sequencer", "start", "no process runner", nil)
	}
	if err := settings.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "sequencer", "start", "invalid settings", err)
	}
	return nil
}

// Cancel stops the active run: pending jobs are discarded at once and the
// live process, if any, is killed. The run reaches Idle (and emits stopped)
// after the in-flight job's outcome arrives. It reports whether this call
// initiated cancellation; repeated calls and calls while Idle do nothing.
func (s *Sequencer) Cancel() bool {
	s.mu.Lock()
	if s.state != StateRunning || s.finishing {
		s.mu.Unlock()
		return false
	}
	s.state = StateCancelling
	s.cancelRequested = true
	dropped := len(s.pending)
	s.pending = nil
	s.summary.Dropped = dropped
	hasCurrent := s.current != nil
	runID := s.runID
	s.mu.Unlock()

	signalled := false
	if hasCurrent {
		signalled = s.runner.Cancel()
	}
	s.logger.Info("run cancellation requested",
		logging.String(logging.FieldRunID, runID),
		logging.Int("dropped_jobs", dropped),
		logging.Bool("kill_sent", signalled),
	)
	return true
}

// Done returns a channel closed when the current (or last) run is Idle.
func (s *Sequencer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Wait blocks until the run reaches Idle and returns its summary.
func (s *Sequencer) Wait() Summary {
	<-s.Done()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copySummary()
}

// Snapshot returns a copy of the run state.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:           s.state,
		RunID:           s.runID,
		Pending:         append([]Job(nil), s.pending...),
		CancelRequested: s.cancelRequested,
		Completed:       append([]Job(nil), s.summary.Jobs...),
	}
	if s.current != nil {
		current := *s.current
		snap.Current = &current
	}
	return snap
}

func (s *Sequencer) copySummary() Summary {
	summary := s.summary
	summary.Jobs = append([]Job(nil), s.summary.Jobs...)
	return summary
}

func (s *Sequencer) watchContext(ctx context.Context, done <-chan struct{}) {
	select {
	case <-ctx.Done():
		s.Cancel()
	case <-done:
	}
}

// loop runs on its own goroutine, so slow sinks never hold up Start.
func (s *Sequencer) loop(ctx context.Context, runID string, jobCount int, started time.Time, settings encoding.Settings) {
	logging.WithContext(ctx, s.logger).Info("run started",
		logging.Int(logging.FieldJobCount, jobCount),
		logging.String("preset", string(settings.Preset)),
		logging.Int("crf", settings.CRF),
		logging.String("priority", settings.Priority.String()),
	)
	s.sink.Publish(events.Event{
		Time:     started,
		Kind:     events.KindRunStarted,
		RunID:    runID,
		JobCount: jobCount,
		Preset:   string(settings.Preset),
		CRF:      settings.CRF,
		Priority: settings.Priority.String(),
	})

	for {
		job, ok := s.next()
		if !ok {
			break
		}
		s.runJob(ctx, job, settings)
	}
	s.finish(ctx, runID)
}

// next pops the first pending job into the current slot.
func (s *Sequencer) next() (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelRequested || len(s.pending) == 0 {
		return Job{}, false
	}
	job := s.pending[0]
	s.pending = s.pending[1:]
	job.Status = JobRunning
	job.Started = time.Now()
	s.current = &job
	return job, true
}

func (s *Sequencer) runJob(ctx context.Context, job Job, settings encoding.Settings) {
	ctx = services.WithJobIndex(services.WithInput(ctx, job.InputPath), job.Index)
	logger := logging.WithContext(ctx, s.logger)

	if _, err := os.Stat(job.InputPath); err != nil {
		job.Status = events.JobSkipped
		job.Err = err.Error()
		job.Finished = time.Now()
		logging.WarnWithContext(logger, "input missing, job skipped", "job_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the file was moved or deleted after it was queued"),
			logging.String(logging.FieldImpact, "no output produced for this input"),
		)
		s.sink.Publish(events.Event{
			Kind:     events.KindJobSkipped,
			RunID:    s.currentRunID(),
			JobIndex: job.Index,
			Input:    job.InputPath,
			Status:   events.JobSkipped,
			Error:    job.Err,
		})
		s.complete(job)
		return
	}

	job.OutputPath = encoding.BuildOutputPath(job.InputPath, settings)
	args := encoding.BuildArguments(job.InputPath, job.OutputPath, settings)
	command := encoding.CommandLine(s.binary, args)
	s.setCurrent(job)

	if encoding.OverwriteRisk(job.InputPath, job.OutputPath) {
		logging.WarnWithContext(logger, "output path equals input path", "overwrite_risk",
			logging.String(logging.FieldOutput, job.OutputPath),
			logging.String(logging.FieldErrorHint, "enable the suffix or choose another output directory"),
			logging.String(logging.FieldImpact, "the encoder may fail or destroy the input"),
		)
	}
	logger.Info("job started", logging.String(logging.FieldOutput, job.OutputPath))
	logger.Info("command", logging.String("command", command))
	s.sink.Publish(events.Event{
		Kind:     events.KindJobStarted,
		RunID:    s.currentRunID(),
		JobIndex: job.Index,
		Input:    job.InputPath,
		Output:   job.OutputPath,
		Command:  command,
	})

	observer := &jobObserver{seq: s, job: job, level: settings.Priority, logger: logger}
	outcome := s.runner.Run(ctx, s.binary, args, observer)

	job.PID = outcome.PID
	job.Finished = time.Now()
	job.Killed = outcome.Killed
	event := events.Event{
		Kind:     events.KindJobFinished,
		RunID:    s.currentRunID(),
		JobIndex: job.Index,
		Input:    job.InputPath,
		Output:   job.OutputPath,
		Killed:   outcome.Killed,
		Duration: job.Duration(),
	}
	switch {
	case outcome.Killed:
		job.Status = events.JobCancelled
		logger.Info("job killed")
	case outcome.Succeeded():
		job.Status = events.JobSucceeded
		job.Exited, job.ExitCode = true, 0
		logger.Info("job finished", logging.String("result", "ok"), logging.Duration("duration", job.Duration()))
	default:
		job.Status = events.JobFailed
		if outcome.Exited() {
			job.Exited, job.ExitCode = true, outcome.ExitCode
		}
		reason := outcome.StartErr
		if reason == nil {
			reason = outcome.Err
		}
		if reason != nil {
			job.Err = reason.Error()
		}
		attrs := []logging.Attr{logging.String("outcome", outcome.String())}
		if job.Exited {
			attrs = append(attrs, logging.Int("exit_code", job.ExitCode))
		}
		logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)
	}
	if job.Exited {
		event.ExitCode = events.IntPtr(job.ExitCode)
	}
	event.Status = job.Status
	event.Error = job.Err
	s.sink.Publish(event)
	s.complete(job)
}

func (s *Sequencer) setCurrent(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		*s.current = job
	}
}

func (s *Sequencer) complete(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.summary.record(job)
}

func (s *Sequencer) currentRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

func (s *Sequencer) finish(ctx context.Context, runID string) {
	s.mu.Lock()
	s.finishing = true
	result := events.RunAllComplete
	if s.cancelRequested {
		result = events.RunStopped
	}
	s.pending = nil
	s.current = nil
	s.summary.Result = result
	s.summary.Finished = time.Now()
	summary := s.copySummary()
	s.mu.Unlock()

	message := "all complete"
	if result == events.RunStopped {
		message = "stopped"
	}
	logging.WithContext(ctx, s.logger).Info(message,
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("cancelled", summary.Cancelled+summary.Dropped),
		logging.Duration("duration", summary.Finished.Sub(summary.Started)),
	)
	s.sink.Publish(events.Event{
		Time:      summary.Finished,
		Kind:      events.KindRunFinished,
		RunID:     runID,
		JobCount:  summary.Total,
		Result:    result,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Duration:  summary.Finished.Sub(summary.Started),
	})

	s.mu.Lock()
	s.state = StateIdle
	s.finishing = false
	done := s.done
	s.mu.Unlock()
	close(done)
}

// jobObserver bridges supervisor callbacks to the sink for one job.
type jobObserver struct {
	seq    *Sequencer
	job    Job
	level  priority.Level
	logger *slog.Logger
}

func (o *jobObserver) OnStarted(pid int) {
	s := o.seq
	s.mu.Lock()
	cancelled := s.cancelRequested
	if s.current != nil {
		s.current.PID = pid
	}
	runID := s.runID
	s.mu.Unlock()

	// Cancel may have landed before the process was registered with the runner.
	if cancelled {
		s.runner.Cancel()
		return
	}

	o.logger.Debug("process live", logging.Int("pid", pid))
	err := s.setPriority(pid, o.level)
	switch {
	case err == nil:
		o.confirmPriority(runID, pid)
	case errors.Is(err, priority.ErrUnsupported):
		o.logger.Debug("priority adjustment unavailable", logging.Error(err))
	default:
		o.priorityWarning(runID, pid, err, nil,
			"could not set process priority",
			"raising priority above normal usually needs elevated privileges")
	}
}

// confirmPriority reads the priority back after a successful change. Only a
// reading that contradicts the request is a warning; a failed read is not.
func (o *jobObserver) confirmPriority(runID string, pid int) {
	s := o.seq
	reading, err := s.confirm(pid, o.level)
	event := events.Event{
		Kind:     events.KindPriorityApplied,
		RunID:    runID,
		JobIndex: o.job.Index,
		PID:      pid,
		Priority: o.level.String(),
	}
	switch {
	case err == nil:
		event.OSPriority = events.IntPtr(int(reading))
		o.logger.Info("priority applied",
			logging.Int("pid", pid),
			logging.String("priority", o.level.String()),
			logging.Int("os_priority", int(reading)),
		)
	case errors.Is(err, priority.ErrNotApplied):
		o.priorityWarning(runID, pid, err, events.IntPtr(int(reading)),
			"process priority did not take effect",
			"another tool or a scheduler policy may be overriding the encoder priority")
		return
	default:
		o.logger.Debug("priority read-back unavailable", logging.Error(err))
	}
	s.sink.Publish(event)
}

func (o *jobObserver) priorityWarning(runID string, pid int, err error, reading *int, message, hint string) {
	impact := "encoder keeps its default priority"
	if reading != nil {
		impact = "encoder runs at the priority the OS reports"
	}
	attrs := []logging.Attr{
		logging.Error(err),
		logging.String("priority", o.level.String()),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, impact),
	}
	if reading != nil {
		attrs = append(attrs, logging.Int("os_priority", *reading))
	}
	logging.WarnWithContext(o.logger, message, "priority_warning", attrs...)
	o.seq.sink.Publish(events.Event{
		Kind:       events.KindPriorityWarning,
		RunID:      runID,
		JobIndex:   o.job.Index,
		PID:        pid,
		Priority:   o.level.String(),
		OSPriority: reading,
		Error:      err.Error(),
	})
}

func (o *jobObserver) OnOutput(stream supervisor.Stream, text string) {
	if text == "" {
		return
	}
	o.seq.sink.Publish(events.Event{
		Kind:     events.KindOutput,
		RunID:    o.seq.currentRunID(),
		JobIndex: o.job.Index,
		Stream:   events.Stream(stream),
		Text:     text,
	})
}
