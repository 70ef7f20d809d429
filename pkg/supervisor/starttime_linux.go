//go:build linux

package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// processStartTime reads /proc/<pid>/stat to recover the process's start
// time (field 22, in clock ticks since boot), used by the stale-orphan
// reaper to distinguish a PID that was reused by an unrelated process from
// the one that actually wrote the PID file.
func processStartTime(pid int) (time.Time, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return time.Time{}, false
	}
	// Field 2 (comm) may contain spaces/parens; split after its closing ')'.
	idx := strings.LastIndexByte(string(data), ')')
	if idx < 0 {
		return time.Time{}, false
	}
	fields := strings.Fields(string(data[idx+1:]))
	const startTimeField = 19 // field 22 overall, 0-indexed after comm
	if len(fields) <= startTimeField {
		return time.Time{}, false
	}
	ticks, err := strconv.ParseInt(fields[startTimeField], 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	hz := clockTicksPerSecond()
	uptimeAtStart := time.Duration(ticks) * time.Second / time.Duration(hz)
	boot, ok := bootTime()
	if !ok {
		return time.Time{}, false
	}
	return boot.Add(uptimeAtStart), true
}

func clockTicksPerSecond() int64 {
	return 100 // USER_HZ is 100 on every mainstream Linux config.
}

func bootTime() (time.Time, bool) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return time.Time{}, false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "btime ") {
			secs, err := strconv.ParseInt(strings.TrimSpace(line[len("btime "):]), 10, 64)
			if err != nil {
				return time.Time{}, false
			}
			return time.Unix(secs, 0), true
		}
	}
	return time.Time{}, false
}
