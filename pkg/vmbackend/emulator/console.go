package emulator

import (
	"io"

	"github.com/nxadm/tail"
	"github.com/rs/zerolog"
)

// consoleTailer follows a qemu console log file and forwards new lines to
// a zerolog logger, so guest boot output shows up in desktopd's own logs
// instead of only a file on disk.
type consoleTailer struct {
	t *tail.Tail
}

// tailConsole starts following path from its current end, reopening it if
// qemu recreates the file across a restart.
func tailConsole(path string, logger zerolog.Logger) (*consoleTailer, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, err
	}
	ct := &consoleTailer{t: t}
	go ct.pump(logger)
	return ct, nil
}

func (ct *consoleTailer) pump(logger zerolog.Logger) {
	for line := range ct.t.Lines {
		if line.Err != nil {
			continue
		}
		logger.Debug().Str("stream", "console").Msg(line.Text)
	}
}

func (ct *consoleTailer) Close() error {
	return ct.t.Stop()
}
