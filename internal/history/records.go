package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"batchenc/internal/events"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// BeginRun inserts the run row. Recording the same run twice keeps the first.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("begin run: run id is required")
	}
	started := run.Started
	if started.IsZero() {
		started = time.Now()
	}
	err := s.exec(ctx,
		`INSERT OR IGNORE INTO runs (id, started_at, job_count, preset, crf, priority)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(started),
		run.JobCount,
		nullString(run.Preset),
		run.CRF,
		nullString(run.Priority),
	)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return nil
}

// RecordJob stores a terminal job outcome. A run row is created on demand so
// jobs observed without their run_started event are still kept.
func (s *Store) RecordJob(ctx context.Context, job Job) error {
	if strings.TrimSpace(job.RunID) == "" {
		return fmt.Errorf("record job: run id is required")
	}
	finished := job.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	if err := s.exec(ctx,
		`INSERT OR IGNORE INTO runs (id, started_at) VALUES (?, ?)`,
		job.RunID, formatTime(finished),
	); err != nil {
		return fmt.Errorf("record job %s#%d: %w", job.RunID, job.Index, err)
	}

	var exitCode sql.NullInt64
	if job.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*job.ExitCode), Valid: true}
	}
	err := s.exec(ctx,
		`INSERT INTO jobs (
            run_id, job_index, input_path, output_path, status,
            exit_code, killed, duration_ms, error, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (run_id, job_index) DO UPDATE SET
            output_path = excluded.output_path,
            status = excluded.status,
            exit_code = excluded.exit_code,
            killed = excluded.killed,
            duration_ms = excluded.duration_ms,
            error = excluded.error,
            finished_at = excluded.finished_at`,
		job.RunID,
		job.Index,
		job.InputPath,
		nullString(job.OutputPath),
		string(job.Status),
		exitCode,
		boolToInt(job.Killed),
		job.Duration.Milliseconds(),
		nullString(job.Error),
		formatTime(finished),
	)
	if err != nil {
		return fmt.Errorf("record job %s#%d: %w", job.RunID, job.Index, err)
	}
	return nil
}

// FinishRun stores the run's result and tallies.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	finished := run.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	if err := s.exec(ctx,
		`INSERT OR IGNORE INTO runs (id, started_at) VALUES (?, ?)`,
		run.ID, formatTime(finished),
	); err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, result = ?, job_count = ?,
            succeeded = ?, failed = ?, skipped = ?
         WHERE id = ?`,
		formatTime(finished),
		string(run.Result),
		run.JobCount,
		run.Succeeded,
		run.Failed,
		run.Skipped,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return nil
}

// RecentJobs returns up to limit job outcomes, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]Job, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, job_index, input_path, output_path, status,
                exit_code, killed, duration_ms, error, finished_at
         FROM jobs ORDER BY finished_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			job        Job
			output     sql.NullString
			status     string
			exitCode   sql.NullInt64
			killed     int
			durationMS int64
			errText    sql.NullString
			finished   string
		)
		if err := rows.Scan(&job.RunID, &job.Index, &job.InputPath, &output, &status,
			&exitCode, &killed, &durationMS, &errText, &finished); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.OutputPath = output.String
		job.Status = events.JobStatus(status)
		if exitCode.Valid {
			code := int(exitCode.Int64)
			job.ExitCode = &code
		}
		job.Killed = killed != 0
		job.Duration = time.Duration(durationMS) * time.Millisecond
		job.Error = errText.String
		job.Finished = parseTime(finished)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, result, job_count, preset, crf, priority,
                succeeded, failed, skipped
         FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			started  string
			finished sql.NullString
			result   sql.NullString
			preset   sql.NullString
			crf      sql.NullInt64
			level    sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &result, &run.JobCount, &preset, &crf, &level,
			&run.Succeeded, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Started = parseTime(started)
		run.Finished = parseTime(finished.String)
		run.Result = events.RunResult(result.String)
		run.Preset = preset.String
		run.CRF = int(crf.Int64)
		run.Priority = level.String
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Clear removes every recorded run and job.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM runs")
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	if err := s.exec(ctx, "DELETE FROM jobs"); err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return removed, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
