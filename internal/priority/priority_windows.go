//go:build windows

package priority

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var priorityClasses = map[Level]uint32{
	LevelLow:         windows.IDLE_PRIORITY_CLASS,
	LevelBelowNormal: windows.BELOW_NORMAL_PRIORITY_CLASS,
	LevelNormal:      windows.NORMAL_PRIORITY_CLASS,
	LevelAboveNormal: windows.ABOVE_NORMAL_PRIORITY_CLASS,
	LevelHigh:        windows.HIGH_PRIORITY_CLASS,
}

// basePriorities mirrors the base priority gopsutil reports for each class.
var basePriorities = map[Level]int32{
	LevelLow:         4,
	LevelBelowNormal: 6,
	LevelNormal:      8,
	LevelAboveNormal: 10,
	LevelHigh:        13,
}

func expectedReading(level Level) (int32, bool) {
	value, ok := basePriorities[level]
	return value, ok
}

func normalizeReading(raw int32) int32 { return raw }

func setPriority(pid int, level Level) error {
	handle, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess pid=%d: %w", pid, err)
	}
	defer windows.CloseHandle(handle) //nolint:errcheck

	if err := windows.SetPriorityClass(handle, priorityClasses[level]); err != nil {
		return fmt.Errorf("SetPriorityClass pid=%d: %w", pid, err)
	}
	return nil
}
