package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"batchenc/internal/config"
	"batchenc/internal/encoding"
	"batchenc/internal/queue"
	"batchenc/internal/services"
)

// settingsFlags are the per-invocation overrides shared by encode and plan.
type settingsFlags struct {
	preset    string
	crf       int
	priority  string
	outputDir string
	sameDir   bool
	suffix    string
	noSuffix  bool
	ffmpeg    string
	recursive bool
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.preset, "preset", "p", "", "x265 preset (ultrafast ... placebo)")
	flags.IntVar(&f.crf, "crf", encoding.DefaultCRF, "Constant rate factor, 0-51 (lower is higher quality)")
	flags.StringVar(&f.priority, "priority", "", "Encoder process priority (low, below_normal, normal, above_normal, high)")
	flags.StringVarP(&f.outputDir, "output-dir", "o", "", "Write outputs to this directory instead of next to each input")
	flags.BoolVar(&f.sameDir, "same-dir", false, "Write outputs next to each input, ignoring a configured output directory")
	flags.StringVar(&f.suffix, "suffix", "", "Suffix appended to output file names")
	flags.BoolVar(&f.noSuffix, "no-suffix", false, "Do not append a suffix to output file names")
	flags.StringVar(&f.ffmpeg, "ffmpeg", "", "ffmpeg binary to run (overrides [ffmpeg].binary)")
	flags.BoolVarP(&f.recursive, "recursive", "r", false, "Descend into subdirectories of directory arguments")
	cmd.MarkFlagsMutuallyExclusive("output-dir", "same-dir")
	cmd.MarkFlagsMutuallyExclusive("suffix", "no-suffix")
}

// resolve snapshots the configured encoding section with flag overrides on
// top. The result has been validated.
func (f *settingsFlags) resolve(cmd *cobra.Command, cfg *config.Config) (encoding.Settings, error) {
	settings, err := cfg.EncodingSettings()
	if err != nil {
		return encoding.Settings{}, services.Wrap(services.ErrConfiguration, "encode", "settings", "", err)
	}
	flags := cmd.Flags()
	if flags.Changed("preset") {
		preset, err := encoding.ParsePreset(f.preset)
		if err != nil {
			return encoding.Settings{}, services.Wrap(services.ErrValidation, "encode", "settings", "--preset", err)
		}
		settings.Preset = preset
	}
	if flags.Changed("crf") {
		settings.CRF = f.crf
	}
	if flags.Changed("priority") {
		level, err := encoding.ParsePriority(f.priority)
		if err != nil {
			return encoding.Settings{}, services.Wrap(services.ErrValidation, "encode", "settings", "--priority", err)
		}
		settings.Priority = level
	}
	switch {
	case flags.Changed("output-dir"):
		dir, err := config.ExpandPath(f.outputDir)
		if err != nil {
			return encoding.Settings{}, services.Wrap(services.ErrValidation, "encode", "settings", "--output-dir", err)
		}
		settings.OutputDirMode = encoding.OutputExplicitDir
		settings.OutputDir = dir
	case f.sameDir:
		settings.OutputDirMode = encoding.OutputSameAsInput
		settings.OutputDir = ""
	}
	switch {
	case f.noSuffix:
		settings.SuffixEnabled = false
	case flags.Changed("suffix"):
		settings.SuffixEnabled = true
		settings.Suffix = f.suffix
	}
	if err := settings.Validate(); err != nil {
		return encoding.Settings{}, services.Wrap(services.ErrValidation, "encode", "settings", "", err)
	}
	return settings, nil
}

// ffmpegCommand is the explicit encoder override, flag first.
func (f *settingsFlags) ffmpegCommand(cfg *config.Config) string {
	if value := strings.TrimSpace(f.ffmpeg); value != "" {
		return value
	}
	return cfg.FFmpeg.Binary
}

// collectInputs builds the input list from command arguments and reports
// anything that was not queued.
func collectInputs(out io.Writer, args []string, recursive bool) (*queue.List, error) {
	list := queue.NewList(queue.Options{Recursive: recursive})
	result := list.Add(args...)
	for _, rejected := range result.Rejected {
		fmt.Fprintf(out, "skipping %s: %s\n", rejected.Path, rejected.Reason)
	}
	if result.Duplicates > 0 {
		fmt.Fprintf(out, "ignored %d duplicate input(s)\n", result.Duplicates)
	}
	if list.Len() == 0 {
		return nil, services.Wrap(services.ErrValidation, "encode", "collect inputs", "no video files to encode", nil)
	}
	return list, nil
}
