package supervisor

import (
	"os"
	"syscall"
	"time"

	"github.com/moby/sys/signal"
	"github.com/rs/zerolog"
)

const reapSpacing = 500 * time.Millisecond

// reapStaleOrphans reads the PID file at pidFilePath, if present, and for
// each PID still alive sends a cooperative terminate followed by a kill,
// spaced reapSpacing apart. Per the stale-orphan pairing decision (see
// DESIGN.md), a PID whose process start time is newer than the PID file's
// own mtime is skipped — it cannot be the process that wrote the file, and
// is left alone rather than killed on PID-reuse grounds.
func reapStaleOrphans(pidFilePath string, logger zerolog.Logger) error {
	pids, err := readPIDFile(pidFilePath)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		return deletePIDFile(pidFilePath)
	}

	info, statErr := os.Stat(pidFilePath)
	var fileMTime time.Time
	haveMTime := statErr == nil
	if haveMTime {
		fileMTime = info.ModTime()
	}

	for _, pid := range pids {
		if !isAlive(pid) {
			continue
		}
		if haveMTime {
			start, ok := processStartTime(pid)
			if !ok {
				logger.Warn().Int("pid", pid).Msg("process start time unavailable, falling back to plain liveness check")
			} else if start.After(fileMTime) {
				logger.Warn().Int("pid", pid).Msg("pid reused by a newer process, not reaping")
				continue
			}
		}
		logger.Info().Int("pid", pid).Msg("reaping stale orphan")
		terminateThenKill(pid, logger)
	}

	return deletePIDFile(pidFilePath)
}

func isAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func terminateThenKill(pid int, logger zerolog.Logger) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if sig, ok := signal.SignalMap["TERM"]; ok {
		_ = proc.Signal(sig)
	} else {
		_ = proc.Signal(syscall.Signal(0))
	}
	time.Sleep(reapSpacing)
	if isAlive(pid) {
		if err := proc.Kill(); err != nil {
			logger.Warn().Int("pid", pid).Err(err).Msg("failed to force-kill stale orphan")
		}
	}
}
