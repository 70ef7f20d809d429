//go:build darwin

package supervisor

import (
	"time"

	"golang.org/x/sys/unix"
)

// processStartTime uses the kern.proc.pid sysctl to recover a process's
// start time, the Darwin equivalent of Linux's /proc/<pid>/stat field 22.
func processStartTime(pid int) (time.Time, bool) {
	info, err := unix.SysctlKinfoProc("kern.proc.pid", pid)
	if err != nil {
		return time.Time{}, false
	}
	tv := info.Proc.P_starttime
	return time.Unix(int64(tv.Sec), int64(tv.Usec)*int64(time.Microsecond)), true
}
