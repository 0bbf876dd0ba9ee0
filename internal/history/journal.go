package history

import (
	"context"
	"log/slog"
	"time"

	"batchenc/internal/events"
	"batchenc/internal/logging"
)

// Journal records run lifecycle events into a Store. Write failures are
// logged and never reach the sequencer.
type Journal struct {
	ctx    context.Context
	store  *Store
	logger *slog.Logger
}

// NewJournal wraps store as an events.Sink.
func NewJournal(ctx context.Context, store *Store, logger *slog.Logger) *Journal {
	return &Journal{
		ctx:    ensureContext(ctx),
		store:  store,
		logger: logging.NewComponentLogger(logger, "history"),
	}
}

// Publish implements events.Sink.
func (j *Journal) Publish(e events.Event) {
	if j == nil || j.store == nil {
		return
	}
	// The run context may already be cancelled by the time the final events
	// arrive; journal writes must still land.
	ctx := context.WithoutCancel(j.ctx)

	var err error
	switch e.Kind {
	case events.KindRunStarted:
		err = j.store.BeginRun(ctx, Run{
			ID:       e.RunID,
			Started:  eventTime(e),
			JobCount: e.JobCount,
			Preset:   e.Preset,
			CRF:      e.CRF,
			Priority: e.Priority,
		})
	case events.KindJobFinished, events.KindJobSkipped:
		status := e.Status
		if status == "" && e.Kind == events.KindJobSkipped {
			status = events.JobSkipped
		}
		err = j.store.RecordJob(ctx, Job{
			RunID:      e.RunID,
			Index:      e.JobIndex,
			InputPath:  e.Input,
			OutputPath: e.Output,
			Status:     status,
			ExitCode:   e.ExitCode,
			Killed:     e.Killed,
			Duration:   e.Duration,
			Error:      e.Error,
			Finished:   eventTime(e),
		})
	case events.KindRunFinished:
		err = j.store.FinishRun(ctx, Run{
			ID:        e.RunID,
			Finished:  eventTime(e),
			Result:    e.Result,
			JobCount:  e.JobCount,
			Succeeded: e.Succeeded,
			Failed:    e.Failed,
			Skipped:   e.Skipped,
		})
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(j.logger, "history write failed", "history_write",
			logging.String(logging.FieldRunID, e.RunID),
			logging.String("event_kind", string(e.Kind)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "run continues; this entry is missing from history"),
		)
	}
}

func eventTime(e events.Event) time.Time {
	if e.Time.IsZero() {
		return time.Now()
	}
	return e.Time
}

var _ events.Sink = (*Journal)(nil)
