package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"batchenc/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showRuns bool
	var clear bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded job outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if clear {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d run(s)\n", removed)
				return nil
			}

			if showRuns {
				runs, err := store.RecentRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Started", "Run", "Result", "Jobs", "OK", "Failed", "Skipped", "Settings"},
					runRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			}

			jobs, err := store.RecentJobs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Finished", "Run", "#", "Status", "Exit", "Duration", "Input", "Output"},
				jobRows(jobs),
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().BoolVar(&showRuns, "runs", false, "List runs instead of jobs")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete all recorded history")
	return cmd
}

func jobRows(jobs []history.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		exit := "-"
		if job.ExitCode != nil {
			exit = strconv.Itoa(*job.ExitCode)
		} else if job.Killed {
			exit = "killed"
		}
		rows = append(rows, []string{
			formatStamp(job.Finished),
			shortRunID(job.RunID),
			strconv.Itoa(job.Index),
			string(job.Status),
			exit,
			job.Duration.Round(time.Second).String(),
			job.InputPath,
			job.OutputPath,
		})
	}
	return rows
}

func runRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		result := string(run.Result)
		if !run.Done() {
			result = "incomplete"
		}
		settings := ""
		if run.Preset != "" {
			settings = fmt.Sprintf("%s crf=%d %s", run.Preset, run.CRF, run.Priority)
		}
		rows = append(rows, []string{
			formatStamp(run.Started),
			shortRunID(run.ID),
			result,
			strconv.Itoa(run.JobCount),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Skipped),
			settings,
		})
	}
	return rows
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
