package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"batchenc/internal/logging"
	"batchenc/internal/services"
)

// ErrBusy is returned in Outcome.StartErr when Run is called while another
// process is still supervised.
var ErrBusy = errors.New("supervisor already running a process")

const (
	readBufferSize = 4096
	// drainGrace bounds how long output is drained after a kill before the
	// pipes are closed from our side.
	drainGrace = 2 * time.Second
)

// Stream names the pipe a chunk was read from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Observer receives process notifications. Calls are serialized: no two
// callbacks run concurrently, and OnStarted precedes every OnOutput.
type Observer interface {
	OnStarted(pid int)
	OnOutput(stream Stream, text string)
}

// Outcome is the single terminal result of one Run.
type Outcome struct {
	// ExitCode is meaningful only when Exited reports true.
	ExitCode int
	// Killed is set when Cancel terminated the process.
	Killed bool
	// StartErr is set when the process never became live.
	StartErr error
	// Err carries stream or wait failures that are not a plain exit status.
	Err      error
	PID      int
	Started  time.Time
	Finished time.Time
}

// Exited reports whether the process ran and terminated on its own.
func (o Outcome) Exited() bool {
	return o.StartErr == nil && !o.Killed && o.ExitCode >= 0
}

// Succeeded reports a natural exit with status zero.
func (o Outcome) Succeeded() bool {
	return o.Exited() && o.ExitCode == 0 && o.Err == nil
}

// Duration is the wall time between spawn and exit.
func (o Outcome) Duration() time.Duration {
	if o.Started.IsZero() || o.Finished.IsZero() {
		return 0
	}
	return o.Finished.Sub(o.Started)
}

func (o Outcome) String() string {
	switch {
	case o.StartErr != nil:
		return fmt.Sprintf("start failed: %v", o.StartErr)
	case o.Killed:
		return "killed"
	case o.ExitCode < 0:
		return fmt.Sprintf("terminated abnormally: %v", o.Err)
	default:
		return fmt.Sprintf("exit code %d", o.ExitCode)
	}
}

// Supervisor owns at most one live process.
type Supervisor struct {
	logger     *slog.Logger
	drainGrace time.Duration

	mu         sync.Mutex
	proc       *os.Process
	pipes      []io.Closer
	killSent   bool
	drainTimer *time.Timer
}

// New returns an idle supervisor. A nil logger discards output.
func New(logger *slog.Logger) *Supervisor {
	return &Supervisor{
		logger:     logging.NewComponentLogger(logger, "supervisor"),
		drainGrace: drainGrace,
	}
}

// Run executes binary with args and blocks until the process is gone. The
// context cancels the process the same way Cancel does.
func (s *Supervisor) Run(ctx context.Context, binary string, args []string, observer Observer) Outcome {
	if observer == nil {
		observer = nopObserver{}
	}
	outcome := Outcome{ExitCode: -1, Started: time.Now()}

	s.mu.Lock()
	busy := s.proc != nil
	s.mu.Unlock()
	if busy {
		outcome.StartErr = ErrBusy
		outcome.Finished = outcome.Started
		return outcome
	}

	cmd := exec.Command(binary, args...) //nolint:gosec
	configureCommand(cmd)
	cmd.WaitDelay = s.drainGrace
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.startFailed(outcome, binary, fmt.Errorf("stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.startFailed(outcome, binary, fmt.Errorf("stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return s.startFailed(outcome, binary, err)
	}

	outcome.PID = cmd.Process.Pid
	s.mu.Lock()
	s.proc = cmd.Process
	s.pipes = []io.Closer{stdout, stderr}
	s.killSent = false
	s.mu.Unlock()

	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-stopWatch:
		}
	}()

	var emitMu sync.Mutex
	emitMu.Lock()
	observer.OnStarted(outcome.PID)
	emitMu.Unlock()

	var group errgroup.Group
	drain := func(pipe io.Reader, stream Stream) func() error {
		return func() error {
			return drainStream(pipe, func(text string) {
				emitMu.Lock()
				defer emitMu.Unlock()
				observer.OnOutput(stream, text)
			})
		}
	}
	group.Go(drain(stdout, Stdout))
	group.Go(drain(stderr, Stderr))
	streamErr := group.Wait()

	s.mu.Lock()
	if s.drainTimer != nil {
		s.drainTimer.Stop()
		s.drainTimer = nil
	}
	s.pipes = nil
	s.mu.Unlock()

	waitErr := cmd.Wait()
	close(stopWatch)
	outcome.Finished = time.Now()

	s.mu.Lock()
	killed := s.killSent
	s.proc = nil
	s.killSent = false
	s.mu.Unlock()

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		outcome.ExitCode = 0
	case killed:
		outcome.Killed = true
	case errors.As(waitErr, &exitErr):
		outcome.ExitCode = exitErr.ExitCode()
		if outcome.ExitCode < 0 {
			outcome.Err = waitErr
		}
	default:
		outcome.Err = waitErr
	}
	if streamErr != nil && outcome.Err == nil && !outcome.Killed {
		outcome.Err = fmt.Errorf("read output: %w", streamErr)
	}

	s.logger.Debug("process finished",
		logging.Int("pid", outcome.PID),
		logging.String("outcome", outcome.String()),
		logging.Duration("duration", outcome.Duration()),
	)
	return outcome
}

// Cancel kills the live process and its process group. It returns true only
// when this call sent the kill; repeated calls and calls while idle return
// false. Output still buffered in the pipes is drained for a short grace
// period, after which the pipes are closed even if a stray descendant holds
// them open.
func (s *Supervisor) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil || s.killSent {
		return false
	}
	if err := killTree(s.proc); err != nil {
		s.logger.Debug("kill failed", logging.Int("pid", s.proc.Pid), logging.Error(err))
		return false
	}
	s.killSent = true
	pipes := s.pipes
	s.drainTimer = time.AfterFunc(s.drainGrace, func() {
		for _, pipe := range pipes {
			_ = pipe.Close()
		}
	})
	return true
}

// Active reports whether a process is currently supervised.
func (s *Supervisor) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

func (s *Supervisor) startFailed(outcome Outcome, binary string, err error) Outcome {
	outcome.StartErr = services.Wrap(services.ErrExternalTool, "supervisor", "start", binary, err)
	outcome.Finished = time.Now()
	return outcome
}

// drainStream forwards decoded chunks until EOF. A rune split across two
// reads is held back by the decoder and emitted whole with the next chunk.
func drainStream(pipe io.Reader, emit func(string)) error {
	reader := transform.NewReader(pipe, unicode.UTF8.NewDecoder())
	buf := make([]byte, readBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			emit(string(buf[:n]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnStarted(int)           {}
func (nopObserver) OnOutput(Stream, string) {}
