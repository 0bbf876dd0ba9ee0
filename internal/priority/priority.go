package priority

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/process"
)

// Level is a portable scheduling priority for the encoder process.
type Level int

const (
	LevelLow Level = iota
	LevelBelowNormal
	LevelNormal
	LevelAboveNormal
	LevelHigh
)

// DefaultLevel keeps interactive use of the machine responsive during long encodes.
const DefaultLevel = LevelBelowNormal

// ErrUnsupported reports that the platform offers no priority adjustment.
var ErrUnsupported = errors.New("process priority adjustment unsupported on this platform")

// ErrNotApplied reports that the OS holds a different priority than requested.
var ErrNotApplied = errors.New("process priority not applied")

var levelNames = [...]string{
	LevelLow:         "Low",
	LevelBelowNormal: "Below Normal",
	LevelNormal:      "Normal",
	LevelAboveNormal: "Above Normal",
	LevelHigh:        "High",
}

// Levels returns every level from lowest to highest.
func Levels() []Level {
	return []Level{LevelLow, LevelBelowNormal, LevelNormal, LevelAboveNormal, LevelHigh}
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= LevelLow && l <= LevelHigh
}

// ParseLevel accepts display names ("Below Normal") as well as config-friendly
// spellings ("below_normal", "below-normal", "belownormal").
func ParseLevel(raw string) (Level, error) {
	key := canonical(raw)
	if key == "" {
		return DefaultLevel, nil
	}
	for _, level := range Levels() {
		if canonical(level.String()) == key {
			return level, nil
		}
	}
	return DefaultLevel, fmt.Errorf("unknown priority %q (valid: low, below_normal, normal, above_normal, high)", strings.TrimSpace(raw))
}

// MarshalText renders the config-friendly spelling.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid priority level %d", int(l))
	}
	return []byte(strings.ReplaceAll(strings.ToLower(l.String()), " ", "_")), nil
}

// UnmarshalText parses any spelling accepted by ParseLevel.
func (l *Level) UnmarshalText(text []byte) error {
	level, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = level
	return nil
}

// TrySet applies level to the process identified by pid. It is best effort:
// the returned error describes why the adjustment did not happen.
func TrySet(pid int, level Level) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	if !level.Valid() {
		return fmt.Errorf("invalid priority level %d", int(level))
	}
	return setPriority(pid, level)
}

// Current reports the scheduling value the OS holds for pid: the nice value on
// Unix, the base priority of the process class on Windows.
func Current(pid int) (int32, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return 0, fmt.Errorf("inspect process %d: %w", pid, err)
	}
	value, err := proc.Nice()
	if err != nil {
		return 0, fmt.Errorf("read priority of %d: %w", pid, err)
	}
	return normalizeReading(value), nil
}

// Confirm reads back the priority of pid and checks it against level. The
// reading is returned alongside ErrNotApplied so callers can report it.
func Confirm(pid int, level Level) (int32, error) {
	want, ok := expectedReading(level)
	if !ok {
		return 0, ErrUnsupported
	}
	got, err := Current(pid)
	if err != nil {
		return 0, err
	}
	if got != want {
		return got, fmt.Errorf("%w: pid %d reads %d, want %d for %s", ErrNotApplied, pid, got, want, level)
	}
	return got, nil
}

func canonical(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(value)
}
