package encoding

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"batchenc/internal/priority"
)

// Encoder is the only video codec this tool drives.
const Encoder = "libx265"

const (
	MinCRF     = 0
	MaxCRF     = 51
	DefaultCRF = 20
)

// DefaultSuffix marks re-encoded files when the suffix mode is enabled.
const DefaultSuffix = "_x265"

// OutputDirMode selects where encoded files are written.
type OutputDirMode int

const (
	// OutputSameAsInput writes next to each input file.
	OutputSameAsInput OutputDirMode = iota
	// OutputExplicitDir writes every output into Settings.OutputDir.
	OutputExplicitDir
)

func (m OutputDirMode) String() string {
	switch m {
	case OutputSameAsInput:
		return "same_as_input"
	case OutputExplicitDir:
		return "explicit"
	default:
		return fmt.Sprintf("OutputDirMode(%d)", int(m))
	}
}

// Settings is the configuration snapshot a run is started with. It is a plain
// value: the sequencer keeps its own copy, so later edits by the caller never
// reach a run in progress.
type Settings struct {
	Preset        Preset
	CRF           int
	Priority      priority.Level
	OutputDirMode OutputDirMode
	OutputDir     string
	SuffixEnabled bool
	Suffix        string
}

// DefaultSettings mirrors the defaults offered to users on first launch.
func DefaultSettings() Settings {
	return Settings{
		Preset:        DefaultPreset,
		CRF:           DefaultCRF,
		Priority:      priority.DefaultLevel,
		OutputDirMode: OutputSameAsInput,
		SuffixEnabled: true,
		Suffix:        DefaultSuffix,
	}
}

// EffectiveSuffix returns the text appended to output stems, or "" when the
// suffix mode is off or the suffix is blank.
func (s Settings) EffectiveSuffix() string {
	if !s.SuffixEnabled {
		return ""
	}
	return strings.TrimSpace(s.Suffix)
}

// HasEffectiveSuffix reports whether outputs get a distinguishing suffix.
func (s Settings) HasEffectiveSuffix() bool {
	return s.EffectiveSuffix() != ""
}

// Validate checks everything a run needs before any process is spawned.
func (s Settings) Validate() error {
	if !s.Preset.Valid() {
		return fmt.Errorf("encoding.preset: unknown preset %q", s.Preset)
	}
	if s.CRF < MinCRF || s.CRF > MaxCRF {
		return fmt.Errorf("encoding.crf: %d outside [%d, %d]", s.CRF, MinCRF, MaxCRF)
	}
	if !s.Priority.Valid() {
		return fmt.Errorf("encoding.priority: invalid level %d", int(s.Priority))
	}
	switch s.OutputDirMode {
	case OutputSameAsInput:
		return nil
	case OutputExplicitDir:
		dir := strings.TrimSpace(s.OutputDir)
		if dir == "" {
			return errors.New("encoding.output_dir: an output directory is required when not writing next to the input")
		}
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("encoding.output_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("encoding.output_dir: %s is not a directory", dir)
		}
		return nil
	default:
		return fmt.Errorf("encoding.output_dir_mode: invalid mode %d", int(s.OutputDirMode))
	}
}

// ParsePriority resolves a user supplied priority name.
func ParsePriority(raw string) (priority.Level, error) {
	return priority.ParseLevel(raw)
}
