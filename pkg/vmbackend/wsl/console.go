//go:build windows

package wsl

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/rs/zerolog"
)

// consoleRelay pipes a wsl.exe child's console output through a named pipe
// rather than an inherited os/exec pipe, matching how Windows job-container
// hosts stream guest stdio, and forwards each line to logger.
type consoleRelay struct {
	ln net.Listener
}

func newConsoleRelay(pipeName string, logger zerolog.Logger) (*consoleRelay, error) {
	ln, err := winio.ListenPipe(pipeName, nil)
	if err != nil {
		return nil, err
	}
	r := &consoleRelay{ln: ln}
	go r.accept(logger)
	return r, nil
}

func (r *consoleRelay) accept(logger zerolog.Logger) {
	conn, err := r.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		logger.Debug().Str("stream", "console").Msg(scanner.Text())
	}
}

// dial connects to our own pipe as the writer side, so os/exec's Stdout can
// be set to an ordinary net.Conn.
func (r *consoleRelay) dial(pipeName string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return winio.DialPipeContext(ctx, pipeName)
}

func (r *consoleRelay) Close() error {
	return r.ln.Close()
}
