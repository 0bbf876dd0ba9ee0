package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"batchenc/internal/config"
	"batchenc/internal/deps"
	"batchenc/internal/notifications"
	"batchenc/internal/preflight"
	"batchenc/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var ffmpegFlag string
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether ffmpeg and ffprobe can be found",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			flags := settingsFlags{ffmpeg: ffmpegFlag}
			statuses := deps.CheckBinaries([]deps.Requirement{
				{
					Name:        "ffmpeg",
					Tool:        "ffmpeg",
					Command:     flags.ffmpegCommand(cfg),
					Description: "H.265 encoder",
				},
				{
					Name:        "ffprobe",
					Tool:        "ffprobe",
					Command:     cfg.FFmpeg.FFprobeBinary,
					Description: "duration probe for progress percentages",
					Optional:    true,
				},
			}, deps.ExecutableDir())

			for i := range statuses {
				if !statuses[i].Available {
					continue
				}
				if version, err := deps.Version(cmd.Context(), statuses[i].Command); err == nil && version != "" {
					statuses[i].Detail = version
				}
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cfg)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if notify {
				if err := checkNotifications(cmd, cfg, colorize); err != nil {
					return err
				}
			}
			for _, status := range statuses {
				if !status.Available && !status.Optional {
					return services.Wrap(services.ErrNotFound, "check", status.Name, "required tool missing", nil)
				}
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "check", failed[0].Name, failed[0].Detail, nil)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ffmpegFlag, "ffmpeg", "", "ffmpeg binary to check (overrides [ffmpeg].binary)")
	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

func checkNotifications(cmd *cobra.Command, cfg *config.Config, colorize bool) error {
	out := cmd.OutOrStdout()
	notifier := notifications.NewNotifier(cmd.Context(), cfg.Notifications.NtfyTopic, cfg.NtfyTimeout(), nil)
	if notifier == nil {
		fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn, "ntfy_topic not configured", colorize))
		return nil
	}
	if err := notifier.Test(cmd.Context()); err != nil {
		fmt.Fprintln(out, renderStatusLine("Notifications", statusError, err.Error(), colorize))
		return services.Wrap(services.ErrExternalTool, "check", "ntfy", "test notification failed", err)
	}
	fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "test sent to "+cfg.Notifications.NtfyTopic, colorize))
	return nil
}
