package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"batchenc/internal/encoding"
	"batchenc/internal/priority"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "presets",
		Short:       "List x265 presets and priority levels",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			presetRows := make([][]string, 0, len(encoding.Presets()))
			for _, preset := range encoding.Presets() {
				marker := ""
				if preset == encoding.DefaultPreset {
					marker = "default"
				}
				presetRows = append(presetRows, []string{strconv.Itoa(preset.Rank() + 1), preset.String(), marker})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Preset (fastest first)", ""}, presetRows, []columnAlignment{alignRight}))

			levelRows := make([][]string, 0, len(priority.Levels()))
			for _, level := range priority.Levels() {
				key, _ := level.MarshalText()
				marker := ""
				if level == priority.DefaultLevel {
					marker = "default"
				}
				levelRows = append(levelRows, []string{level.String(), string(key), marker})
			}
			fmt.Fprintln(out, renderTable([]string{"Priority", "Config value", ""}, levelRows, nil))
			fmt.Fprintf(out, "CRF range %d-%d (default %d); lower values mean higher quality and larger files.\n",
				encoding.MinCRF, encoding.MaxCRF, encoding.DefaultCRF)
			return nil
		},
	}
}
