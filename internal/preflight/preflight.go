package preflight

import (
	"path/filepath"
	"strings"

	"batchenc/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks every directory the configuration asks batchenc to write to.
// The output directory must already exist and is only checked when outputs
// do not go next to their inputs.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCreatableDirectory("Log directory", cfg.Paths.LogDir),
		CheckCreatableDirectory("State directory", cfg.Paths.StateDir),
	}

	if !cfg.Encoding.SameDirAsInput {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Encoding.OutputDir))
	}

	if textfile := strings.TrimSpace(cfg.Metrics.Textfile); textfile != "" {
		results = append(results, CheckCreatableDirectory("Metrics directory", filepath.Dir(textfile)))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
