package encoding

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// Preset is an x265 speed/efficiency tier. Slower presets compress better.
type Preset string

const (
	PresetUltrafast Preset = "ultrafast"
	PresetSuperfast Preset = "superfast"
	PresetVeryfast  Preset = "veryfast"
	PresetFaster    Preset = "faster"
	PresetFast      Preset = "fast"
	PresetMedium    Preset = "medium"
	PresetSlow      Preset = "slow"
	PresetSlower    Preset = "slower"
	PresetVeryslow  Preset = "veryslow"
	PresetPlacebo   Preset = "placebo"
)

// DefaultPreset favours compression over wall time.
const DefaultPreset = PresetSlow

// suggestionThreshold is the minimum Jaro-Winkler similarity for a "did you mean" hint.
const suggestionThreshold = 0.8

var presets = []Preset{
	PresetUltrafast,
	PresetSuperfast,
	PresetVeryfast,
	PresetFaster,
	PresetFast,
	PresetMedium,
	PresetSlow,
	PresetSlower,
	PresetVeryslow,
	PresetPlacebo,
}

// Presets returns the tiers ordered from fastest to slowest.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// Valid reports whether p is one of the ten encoder tiers.
func (p Preset) Valid() bool {
	return p.Rank() >= 0
}

// Rank returns the 0-based position of p from fastest to slowest, or -1.
func (p Preset) Rank() int {
	for i, candidate := range presets {
		if candidate == p {
			return i
		}
	}
	return -1
}

func (p Preset) String() string { return string(p) }

// ParsePreset resolves a user supplied tier name. An empty value selects the
// default; an unknown value yields an error that suggests the closest tier.
func ParsePreset(raw string) (Preset, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return DefaultPreset, nil
	}
	if preset := Preset(value); preset.Valid() {
		return preset, nil
	}
	if suggestion, ok := suggestPreset(value); ok {
		return "", fmt.Errorf("unknown preset %q (did you mean %q?)", strings.TrimSpace(raw), suggestion)
	}
	return "", fmt.Errorf("unknown preset %q (valid: %s)", strings.TrimSpace(raw), presetList())
}

func suggestPreset(value string) (Preset, bool) {
	var (
		best      Preset
		bestScore float32
	)
	for _, candidate := range presets {
		score := edlib.JaroWinklerSimilarity(value, string(candidate))
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < suggestionThreshold {
		return "", false
	}
	return best, true
}

func presetList() string {
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}
