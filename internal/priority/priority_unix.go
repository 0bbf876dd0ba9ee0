//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package priority

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

var niceValues = map[Level]int{
	LevelLow:         19,
	LevelBelowNormal: 10,
	LevelNormal:      0,
	LevelAboveNormal: -5,
	LevelHigh:        -10,
}

// NiceValue returns the nice value level maps to on this platform.
func NiceValue(level Level) (int, bool) {
	value, ok := niceValues[level]
	return value, ok
}

func setPriority(pid int, level Level) error {
	nice := niceValues[level]
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, nice); err != nil {
		return fmt.Errorf("setpriority pid=%d nice=%d: %w", pid, nice, err)
	}
	return nil
}

func expectedReading(level Level) (int32, bool) {
	value, ok := niceValues[level]
	return int32(value), ok
}

// normalizeReading converts a gopsutil reading to a nice value. On Linux it
// carries the raw getpriority result, which is 20 minus the nice value.
func normalizeReading(raw int32) int32 {
	if runtime.GOOS == "linux" {
		return 20 - raw
	}
	return raw
}
