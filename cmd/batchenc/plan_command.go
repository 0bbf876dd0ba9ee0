package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"batchenc/internal/deps"
	"batchenc/internal/encoding"
	"batchenc/internal/media/ffprobe"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var flags settingsFlags
	var probe bool

	cmd := &cobra.Command{
		Use:   "plan <file|directory>...",
		Short: "Show the jobs and ffmpeg commands a run would execute",
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

			binary := "ffmpeg"
			encoder := deps.FFmpeg(flags.ffmpegCommand(cfg))
			if encoder.Err == nil {
				binary = encoder.Path
			}
			var prober *ffprobe.Prober
			if probe {
				res := deps.FFprobe(cfg.FFmpeg.FFprobeBinary, encoder.Path)
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "ffprobe unavailable, skipping media details: %v\n", res.Err)
				} else {
					prober = &ffprobe.Prober{Binary: res.Path}
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "preset=%s crf=%d priority=%s output=%s suffix=%q\n",
				settings.Preset, settings.CRF, settings.Priority, outputLabel(settings), settings.EffectiveSuffix())

			headers := []string{"#", "Input", "Output", "Risk"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}
			if prober != nil {
				headers = append(headers, "Codec", "Resolution", "Duration")
				aligns = append(aligns, alignLeft, alignLeft, alignRight)
			}
			rows := make([][]string, 0, list.Len())
			commands := make([]string, 0, list.Len())
			for i, input := range list.Paths() {
				output := encoding.BuildOutputPath(input, settings)
				row := []string{strconv.Itoa(i + 1), input, output, planRisk(input, output)}
				if prober != nil {
					row = append(row, probeColumns(cmd, prober, input)...)
				}
				rows = append(rows, row)
				commands = append(commands, encoding.CommandLine(binary, encoding.BuildArguments(input, output, settings)))
			}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			fmt.Fprintln(out)
			for _, command := range commands {
				fmt.Fprintf(out, "$ %s\n", command)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&probe, "probe", false, "Inspect inputs with ffprobe and show codec, resolution and duration")
	return cmd
}

func outputLabel(settings encoding.Settings) string {
	if settings.OutputDirMode == encoding.OutputExplicitDir {
		return settings.OutputDir
	}
	return settings.OutputDirMode.String()
}

// planRisk flags outputs that replace their input or an existing file.
func planRisk(input, output string) string {
	switch {
	case encoding.OverwriteRisk(input, output):
		return "replaces input"
	case fileExists(output):
		return "overwrites existing"
	default:
		return ""
	}
}

func probeColumns(cmd *cobra.Command, prober *ffprobe.Prober, input string) []string {
	result, err := prober.Inspect(cmd.Context(), input)
	if err != nil {
		return []string{"?", "?", "?"}
	}
	duration := time.Duration(result.DurationSeconds() * float64(time.Second)).Round(time.Second)
	return []string{result.VideoCodec(), result.Resolution(), duration.String()}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
