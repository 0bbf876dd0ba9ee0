package sequencer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"batchenc/internal/encoding"
	"batchenc/internal/events"
	"batchenc/internal/priority"
	"batchenc/internal/services"
	"batchenc/internal/supervisor"
)

type behavior struct {
	exitCode int
	block    bool
	startErr error
	// gate, when set, holds Run before the process is registered.
	gate    chan struct{}
	arrived chan struct{}
}

type fakeRunner struct {
	mu        sync.Mutex
	behaviors map[string]behavior
	calls     []string
	kill      chan struct{}
	killed    bool
	signals   int
	started   chan string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{behaviors: map[string]behavior{}, started: make(chan string, 16)}
}

func (f *fakeRunner) Run(ctx context.Context, binary string, args []string, observer supervisor.Observer) supervisor.Outcome {
	input := args[2]
	f.mu.Lock()
	f.calls = append(f.calls, input)
	b := f.behaviors[input]
	pid := 1000 + len(f.calls)
	f.mu.Unlock()

	outcome := supervisor.Outcome{PID: pid, Started: time.Now(), ExitCode: -1}
	if b.startErr != nil {
		outcome.PID = 0
		outcome.StartErr = b.startErr
		outcome.Finished = time.Now()
		return outcome
	}
	if b.gate != nil {
		close(b.arrived)
		<-b.gate
	}

	kill := make(chan struct{})
	f.mu.Lock()
	f.kill = kill
	f.killed = false
	f.mu.Unlock()

	observer.OnStarted(pid)
	observer.OnOutput(supervisor.Stderr, "frame=1 ")
	observer.OnOutput(supervisor.Stdout, "")
	f.started <- input

	if b.block {
		<-kill
		outcome.Killed = true
	} else {
		outcome.ExitCode = b.exitCode
	}

	f.mu.Lock()
	f.kill = nil
	f.mu.Unlock()
	outcome.Finished = time.Now()
	return outcome
}

func (f *fakeRunner) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kill == nil || f.killed {
		return false
	}
	close(f.kill)
	f.killed = true
	f.signals++
	return true
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) Signals() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signals
}

func makeInputs(t *testing.T, names ...string) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
			t.Fatalf("write input: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func newTestSequencer(runner Runner, rec *events.Recorder, setPriority PrioritySetter) *Sequencer {
	if setPriority == nil {
		setPriority = func(int, priority.Level) error { return nil }
	}
	return New(Options{
		Binary:          "/usr/bin/ffmpeg",
		Runner:          runner,
		Sink:            rec,
		SetPriority:     setPriority,
		ConfirmPriority: func(int, priority.Level) (int32, error) { return 0, priority.ErrUnsupported },
		NewRunID:        func() string { return "run-test" },
	})
}

func waitSummary(t *testing.T, seq *Sequencer) Summary {
	t.Helper()
	select {
	case <-seq.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
	return seq.Wait()
}

func waitStarted(t *testing.T, runner *fakeRunner, want string) {
	t.Helper()
	select {
	case got := <-runner.started:
		if got != want {
			t.Fatalf("started %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("job %q never started", want)
	}
}

func lastEvent(rec *events.Recorder) events.Event {
	all := rec.Events()
	return all[len(all)-1]
}

func TestFailedJobDoesNotStopRun(t *testing.T) {
	inputs := makeInputs(t, "a.mp4", "b.mp4", "c.mp4")
	runner := newFakeRunner()
	runner.behaviors[inputs[1]] = behavior{exitCode: 1}
	rec := &events.Recorder{}
	seq := newTestSequencer(runner, rec, nil)

	if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	summary := waitSummary(t, seq)

	if !slices.Equal(runner.Calls(), inputs) {
		t.Fatalf("calls = %v, want %v", runner.Calls(), inputs)
	}
	if summary.Result != events.RunAllComplete || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Clean() {
		t.Fatal("a run with a failed job is not clean")
	}
	if summary.Jobs[1].ExitCode != 1 || !summary.Jobs[1].Exited || summary.Jobs[1].Status != events.JobFailed {
		t.Fatalf("unexpected failed job record %+v", summary.Jobs[1])
	}

	wantKinds := []events.Kind{events.KindRunStarted}
	for range inputs {
		wantKinds = append(wantKinds, events.KindJobStarted, events.KindPriorityApplied, events.KindJobFinished)
	}
	wantKinds = append(wantKinds, events.KindRunFinished)
	if got := rec.Kinds(); !slices.Equal(got, wantKinds) {
		t.Fatalf("event kinds = %v, want %v", got, wantKinds)
	}
	finished := lastEvent(rec)
	if finished.Result != events.RunAllComplete || finished.Failed != 1 || finished.RunID != "run-test" {
		t.Fatalf("unexpected run_finished %+v", finished)
	}
	if seq.Snapshot().State != StateIdle {
		t.Fatal("sequencer should be idle after the run")
	}
}

func TestJobStartedCarriesOutputAndCommand(t *testing.T) {
	inputs := makeInputs(t, "clip.mp4")
	runner := newFakeRunner()
	rec := &events.Recorder{}
	seq := newTestSequencer(runner, rec, nil)
	if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitSummary(t, seq)

	var started, finished events.Event
	for _, e := range rec.Lifecycle() {
		switch e.Kind {
		case events.KindJobStarted:
			started = e
		case events.KindJobFinished:
			finished = e
		}
	}
	wantOutput := filepath.Join(filepath.Dir(inputs[0]), "clip_x265.mp4")
	if started.Output != wantOutput || started.JobIndex != 1 {
		t.Fatalf("unexpected job_started %+v", started)
	}
	wantCmd := encoding.CommandLine("/usr/bin/ffmpeg", encoding.BuildArguments(inputs[0], wantOutput, encoding.DefaultSettings()))
	if started.Command != wantCmd {
		t.Fatalf("command = %q, want %q", started.Command, wantCmd)
	}
	if code, ok := finished.ExitCodeValue(); !ok || code != 0 || finished.Status != events.JobSucceeded {
		t.Fatalf("unexpected job_finished %+v", finished)
	}
	if rec.Output(events.StreamStderr) != "frame=1 " {
		t.Fatalf("output chunks not forwarded: %q", rec.Output(events.StreamStderr))
	}
}

func TestCancelDuringSecondJobStopsRun(t *testing.T) {
	inputs := makeInputs(t, "a.mp4", "b.mp4", "c.mp4")
	runner := newFakeRunner()
	runner.behaviors[inputs[1]] = behavior{block: true}
	rec := &events.Recorder{}
	seq := newTestSequencer(runner, rec, nil)

	if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, runner, inputs[0])
	waitStarted(t, runner, inputs[1])

	if !seq.Cancel() {
		t.Fatal("first Cancel should take effect")
	}
	if seq.Cancel() {
		t.Fatal("second Cancel must be a no-op")
	}
	snap := seq.Snapshot()
	if len(snap.Pending) != 0 || !snap.CancelRequested {
		t.Fatalf("pending jobs must be cleared immediately: %+v", snap)
	}

	summary := waitSummary(t, seq)
	if calls := runner.Calls(); len(calls) != 2 {
		t.Fatalf("job 3 must never start, calls = %v", calls)
	}
	if summary.Result != events.RunStopped || summary.Succeeded != 1 || summary.Cancelled != 1 || summary.Dropped != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if runner.Signals() != 1 {
		t.Fatalf("expected exactly one kill signal, got %d", runner.Signals())
	}

	lifecycle := rec.Lifecycle()
	killed := lifecycle[len(lifecycle)-2]
	if killed.Kind != events.KindJobFinished || !killed.Killed || killed.ExitCode != nil || killed.Status != events.JobCancelled {
		t.Fatalf("expected killed job_finished before run_finished, got %+v", killed)
	}
	if finished := lastEvent(rec); finished.Kind != events.KindRunFinished || finished.Result != events.RunStopped {
		t.Fatalf("unexpected terminal event %+v", finished)
	}
	if seq.Cancel() || runner.Signals() != 1 {
		t.Fatal("Cancel while idle must not signal")
	}
}

func TestCancelBeforeProcessRegisteredStillKills(t *testing.T) {
	inputs := makeInputs(t, "a.mp4", "b.mp4")
	runner := newFakeRunner()
	gate := behavior{block: true, gate: make(chan struct{}), arrived: make(chan struct{})}
	runner.behaviors[inputs[0]] = gate
	rec := &events.Recorder{}
	seq := newTestSequencer(runner, rec, func(int, priority.Level) error {
		t.Error("priority must not be applied to a job cancelled before it went live")
		return nil
	})

	if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-gate.arrived
	if !seq.Cancel() {
		t.Fatal("Cancel should take effect")
	}
	close(gate.gate)

	summary := waitSummary(t, seq)
	if summary.Result != events.RunStopped || summary.Cancelled != 1 || len(runner.Calls()) != 1 {
		t.Fatalf("unexpected summary %+v calls %v", summary, runner.Calls())
	}
	if runner.Signals() != 1 {
		t.Fatalf("expected one kill, got %d", runner.Signals())
	}
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	inputs := makeInputs(t, "a.mp4", "b.mp4")
	runner := newFakeRunner()
	runner.behaviors[inputs[0]] = behavior{block: true}
	rec := &events.Recorder{}
	seq := newTestSequencer(runner, rec, nil)

	if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, runner, inputs[0])
	before := seq.Snapshot()

	other := makeInputs(t, "z.mp4")
	if err := seq.Start(context.Background(), other, encoding.DefaultSettings()); !errors.Is(err, ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}
	after := seq.Snapshot()
	if after.RunID != before.RunID || len(after.Pending) != 1 || after.Pending[0].InputPath != inputs[1] {
		t.Fatalf("re-entrant Start changed state: %+v", after)
	}
	if len(runner.Calls()) != 1 {
		t.Fatalf("no second process may be spawned, calls = %v", runner.Calls())
	}

	seq.Cancel()
	if err := seq.Start(context.Background(), other, encoding.DefaultSettings()); !errors.Is(err, ErrRunActive) {
		t.Fatalf("Start while cancelling should be rejected, got %v", err)
	}
	waitSummary(t, seq)
}

func TestCancelWhenIdleIsNoop(t *testing.T) {
	runner := newFakeRunner()
	seq := newTestSequencer(runner, &events.Recorder{}, nil)
	if seq.Cancel() || seq.Cancel() {
		t.Fatal("Cancel while idle must report false")
	}
	if runner.Signals() != 0 {
		t.Fatal("no signal expected")
	}
	select {
	case <-seq.Done():
	default:
		t.Fatal("Done must be closed while idle")
	}
}

func TestStartValidation(t *testing.T) {
	inputs := makeInputs(t, "a.mp4")
	tests := []struct {
		name     string
		inputs   []string
		settings func(*encoding.Settings)
	}{
		{name: "empty queue"},
		{name: "crf out of range", inputs: inputs, settings: func(s *encoding.Settings) { s.CRF = 99 }},
		{name: "unknown preset", inputs: inputs, settings: func(s *encoding.Settings) { s.Preset = "warp" }},
		{name: "missing output directory", inputs: inputs, settings: func(s *encoding.Settings) {
			s.OutputDirMode = encoding.OutputExplicitDir
			s.OutputDir = filepath.Join(t.TempDir(), "absent")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			rec := &events.Recorder{}
			seq := newTestSequencer(runner, rec, nil)
			settings := encoding.DefaultSettings()
			if tt.settings != nil {
				tt.settings(&settings)
			}
			err := seq.Start(context.Background(), tt.inputs, settings)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if seq.Snapshot().State != StateIdle || len(rec.Events()) != 0 || len(runner.Calls()) != 0 {
				t.Fatal("validation failure must not change state")
			}
		})
	}
}

func TestVanishedInputIsSkipped(t *testing.T) {
	inputs := makeInputs(t, "gone.mp4", "here.mp4")
	if err := os.Remove(inputs[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	runner := newFakeRunner()
	rec := &events.Recorder{}
	seq := newTestSequencer(runner, rec, nil)

	if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	summary := waitSummary(t, seq)

	if calls := runner.Calls(); !slices.Equal(calls, inputs[1:]) {
		t.Fatalf("calls = %v", calls)
	}
	if summary.Skipped != 1 || summary.Succeeded != 1 || summary.Result != events.RunAllComplete {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if kinds := rec.Kinds(); kinds[1] != events.KindJobSkipped {
		t.Fatalf("expected job_skipped second, got %v", kinds)
	}
}

func TestSpawnFailureIsJobFailure(t *testing.T) {
	inputs := makeInputs(t, "a.mp4", "b.mp4")
	runner := newFakeRunner()
	runner.behaviors[inputs[0]] = behavior{startErr: errors.New("exec: not found")}
	seq := newTestSequencer(runner, &events.Recorder{}, nil)

	if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	summary := waitSummary(t, seq)
	if summary.Failed != 1 || summary.Succeeded != 1 || summary.Result != events.RunAllComplete {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if job := summary.Jobs[0]; job.Exited || job.Err == "" {
		t.Fatalf("spawn failure should carry an error and no exit code: %+v", job)
	}
}

func TestPriorityFailureIsOnlyAWarning(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind events.Kind
	}{
		{name: "permission denied", err: errors.New("operation not permitted"), wantKind: events.KindPriorityWarning},
		{name: "unsupported platform", err: priority.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := makeInputs(t, "a.mp4")
			rec := &events.Recorder{}
			seq := newTestSequencer(newFakeRunner(), rec, func(int, priority.Level) error { return tt.err })
			if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			summary := waitSummary(t, seq)
			if summary.Succeeded != 1 {
				t.Fatalf("priority failure must not fail the job: %+v", summary)
			}
			kinds := rec.Kinds()
			if slices.Contains(kinds, events.KindPriorityApplied) {
				t.Fatalf("priority_applied must not be emitted on failure: %v", kinds)
			}
			if got := slices.Contains(kinds, events.KindPriorityWarning); got != (tt.wantKind == events.KindPriorityWarning) {
				t.Fatalf("priority_warning presence = %v, kinds %v", got, kinds)
			}
		})
	}
}

func TestPriorityReadBack(t *testing.T) {
	tests := []struct {
		name       string
		reading    int32
		err        error
		wantKind   events.Kind
		wantReport bool
	}{
		{name: "confirmed", reading: 10, wantKind: events.KindPriorityApplied, wantReport: true},
		{name: "overridden", reading: 0, err: fmt.Errorf("%w: reads 0, want 10", priority.ErrNotApplied), wantKind: events.KindPriorityWarning, wantReport: true},
		{name: "read failed", err: errors.New("no such process"), wantKind: events.KindPriorityApplied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := makeInputs(t, "a.mp4")
			rec := &events.Recorder{}
			var confirmedPID int
			seq := New(Options{
				Binary:      "/usr/bin/ffmpeg",
				Runner:      newFakeRunner(),
				Sink:        rec,
				SetPriority: func(int, priority.Level) error { return nil },
				ConfirmPriority: func(pid int, level priority.Level) (int32, error) {
					confirmedPID = pid
					if level != priority.LevelBelowNormal {
						t.Errorf("confirm level = %s", level)
					}
					return tt.reading, tt.err
				},
				NewRunID: func() string { return "run-test" },
			})
			if err := seq.Start(context.Background(), inputs, encoding.DefaultSettings()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if summary := waitSummary(t, seq); summary.Succeeded != 1 {
				t.Fatalf("read-back must not fail the job: %+v", summary)
			}
			if confirmedPID != 1001 {
				t.Fatalf("confirmed pid %d, want 1001", confirmedPID)
			}

			var found *events.Event
			for _, e := range rec.Events() {
				if e.Kind == events.KindPriorityApplied || e.Kind == events.KindPriorityWarning {
					if found != nil {
						t.Fatalf("expected one priority event, got %s and %s", found.Kind, e.Kind)
					}
					found = &e
				}
			}
			if found == nil || found.Kind != tt.wantKind {
				t.Fatalf("priority event = %+v, want kind %s", found, tt.wantKind)
			}
			if !tt.wantReport {
				if found.OSPriority != nil {
					t.Fatalf("unexpected os priority %d", *found.OSPriority)
				}
				return
			}
			if found.OSPriority == nil || *found.OSPriority != int(tt.reading) {
				t.Fatalf("os priority = %v, want %d", found.OSPriority, tt.reading)
			}
			if tt.err != nil && found.Error == "" {
				t.Fatal("mismatch warning should carry the error")
			}
		})
	}
}

// gatedSink holds run_started until released, like a sink waiting on the network.
type gatedSink struct {
	release chan struct{}
	rec     events.Recorder
}

func (g *gatedSink) Publish(e events.Event) {
	if e.Kind == events.KindRunStarted {
		<-g.release
	}
	g.rec.Publish(e)
}

func TestStartDoesNotWaitOnSinks(t *testing.T) {
	tests := []struct {
		name   string
		cancel bool
		want   events.RunResult
	}{
		{name: "runs to completion", want: events.RunAllComplete},
		{name: "cancelled before first job", cancel: true, want: events.RunStopped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs := makeInputs(t, "a.mp4")
			sink := &gatedSink{release: make(chan struct{})}
			seq := New(Options{
				Binary:          "/usr/bin/ffmpeg",
				Runner:          newFakeRunner(),
				Sink:            sink,
				SetPriority:     func(int, priority.Level) error { return nil },
				ConfirmPriority: func(int, priority.Level) (int32, error) { return 0, priority.ErrUnsupported },
			})

			returned := make(chan error, 1)
			go func() { returned <- seq.Start(context.Background(), inputs, encoding.DefaultSettings()) }()
			select {
			case err := <-returned:
				if err != nil {
					t.Fatalf("Start: %v", err)
				}
			case <-time.After(2 * time.Second):
				close(sink.release)
				t.Fatal("Start blocked on a sink")
			}

			if tt.cancel && !seq.Cancel() {
				t.Fatal("Cancel should initiate while the run is starting")
			}
			close(sink.release)
			if summary := waitSummary(t, seq); summary.Result != tt.want {
				t.Fatalf("result = %s, want %s", summary.Result, tt.want)
			}
			kinds := sink.rec.Kinds()
			if len(kinds) < 2 || kinds[0] != events.KindRunStarted || kinds[len(kinds)-1] != events.KindRunFinished {
				t.Fatalf("unexpected lifecycle order %v", kinds)
			}
		})
	}
}

func TestContextCancellationStopsRun(t *testing.T) {
	inputs := makeInputs(t, "a.mp4", "b.mp4")
	runner := newFakeRunner()
	runner.behaviors[inputs[0]] = behavior{block: true}
	seq := newTestSequencer(runner, &events.Recorder{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := seq.Start(ctx, inputs, encoding.DefaultSettings()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStarted(t, runner, inputs[0])
	cancel()

	summary := waitSummary(t, seq)
	if summary.Result != events.RunStopped || len(runner.Calls()) != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSequencerRestartsAfterIdle(t *testing.T) {
	runner := newFakeRunner()
	rec := &events.Recorder{}
	seq := newTestSequencer(runner, rec, nil)
	for i := 0; i < 2; i++ {
		if err := seq.Start(context.Background(), makeInputs(t, "a.mp4"), encoding.DefaultSettings()); err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		waitSummary(t, seq)
	}
	var finished int
	for _, e := range rec.Lifecycle() {
		if e.Kind == events.KindRunFinished {
			finished++
		}
	}
	if finished != 2 {
		t.Fatalf("expected two run_finished events, got %d", finished)
	}
}

func TestSupervisorSatisfiesRunner(t *testing.T) {
	var _ Runner = supervisor.New(nil)
}
