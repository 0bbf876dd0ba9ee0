package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"batchenc/internal/config"
	"batchenc/internal/deps"
	"batchenc/internal/events"
	"batchenc/internal/history"
	"batchenc/internal/logging"
	"batchenc/internal/media/ffprobe"
	"batchenc/internal/metrics"
	"batchenc/internal/notifications"
	"batchenc/internal/progress"
	"batchenc/internal/sequencer"
	"batchenc/internal/services"
	"batchenc/internal/session"
	"batchenc/internal/supervisor"
)

func newEncodeCommand(ctx *commandContext) *cobra.Command {
	var flags settingsFlags
	var assumeYes bool
	var allowOverwriteInput bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "encode <file|directory>...",
		Short: "Encode videos to H.265 one after another",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := flags.resolve(cmd, cfg)
			if err != nil {
				return err
			}
			list, err := collectInputs(cmd.ErrOrStderr(), args, flags.recursive)
			if err != nil {
				return err
			}
			inputs := list.Existing()
			if len(inputs) == 0 {
				return services.Wrap(services.ErrValidation, "encode", "collect inputs", "none of the queued videos exist anymore", nil)
			}

			encoder := deps.FFmpeg(flags.ffmpegCommand(cfg))
			if encoder.Err != nil {
				return services.Wrap(services.ErrNotFound, "encode", "locate ffmpeg", "run `batchenc check` for details", encoder.Err)
			}

			if err := confirmRun(inputs, settings, confirmOptions{
				assumeYes:           assumeYes,
				allowOverwriteInput: allowOverwriteInput,
				interactive:         isInteractive(cmd.InOrStdin()),
				in:                  cmd.InOrStdin(),
				out:                 cmd.ErrOrStderr(),
			}); err != nil {
				return err
			}

			lock, err := session.Acquire(cfg)
			if err != nil {
				return err
			}
			defer lock.Release()

			logger, closer, err := ctx.newLogger(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sinks, cleanup := runSinks(runCtx, cfg, encoder.Path, newConsoleSink(cmd.ErrOrStderr(), quiet), logger)
			defer cleanup()

			seq := sequencer.New(sequencer.Options{
				Binary: encoder.Path,
				Runner: supervisor.New(logger),
				Sink:   events.NewBus(sinks...),
				Logger: logger,
			})
			logger.Debug("encoder resolved",
				logging.String("ffmpeg", encoder.Path),
				logging.String("source", string(encoder.Source)),
			)
			if err := seq.Start(runCtx, inputs, settings); err != nil {
				return err
			}
			summary := seq.Wait()

			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut, summaryLine(summary, shouldColorize(errOut)))
			return runError(summary)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Continue without prompting when outputs may overwrite existing files")
	cmd.Flags().BoolVar(&allowOverwriteInput, "allow-overwrite-input", false, "Permit jobs whose output path is the input itself")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not relay ffmpeg output; log lifecycle lines only")
	return cmd
}

// runSinks assembles the observers for one run. Optional sinks that cannot be
// set up are logged and left out; the run goes ahead without them.
func runSinks(ctx context.Context, cfg *config.Config, ffmpegPath string, console events.Sink, logger *slog.Logger) ([]events.Sink, func()) {
	sinks := []events.Sink{console}
	var closers []func()

	if cfg.FFmpeg.Progress {
		probe := deps.FFprobe(cfg.FFmpeg.FFprobeBinary, ffmpegPath)
		if probe.Err != nil {
			logger.Debug("ffprobe unavailable; progress percentages disabled", logging.Error(probe.Err))
		} else {
			sinks = append(sinks, progress.NewTracker(ctx, ffprobe.Prober{Binary: probe.Path}, logger))
		}
	}

	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in `batchenc history`"),
		)
	} else {
		sinks = append(sinks, history.NewJournal(ctx, store, logger))
		closers = append(closers, func() { _ = store.Close() })
	}

	if cfg.Metrics.Textfile != "" {
		sinks = append(sinks, metrics.NewCollector(cfg.Metrics.Textfile, logger))
	}

	if notifier := notifications.NewNotifier(ctx, cfg.Notifications.NtfyTopic, cfg.NtfyTimeout(), logger); notifier != nil {
		sinks = append(sinks, notifier)
		closers = append(closers, notifier.Close)
	}

	return sinks, func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}

// runError maps a finished run onto the command's exit status.
func runError(summary sequencer.Summary) error {
	switch {
	case summary.Result == events.RunStopped:
		return services.Wrap(services.ErrCancelled, "encode", "run", "stopped before all jobs finished", nil)
	case summary.Failed > 0 || summary.Skipped > 0:
		return fmt.Errorf("%d of %d job(s) did not succeed", summary.Failed+summary.Skipped, summary.Total)
	default:
		return nil
	}
}
