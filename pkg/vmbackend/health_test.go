package vmbackend

import (
	"bufio"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

func listenOnFreePort(t *testing.T, respond func(net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go respond(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func TestProbeHealth_Succeeds(t *testing.T) {
	port := listenOnFreePort(t, func(conn net.Conn) {
		defer conn.Close()
		reader := bufio.NewReader(conn)
		_, _ = reader.ReadString('\n')
		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
	})

	err := ProbeHealth("test", port, 2*time.Second, false)
	assert.NoError(t, err)
}

func TestProbeHealth_TimesOut(t *testing.T) {
	// No listener at all on this port: connection refused every attempt.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	start := time.Now()
	err = ProbeHealth("test", port, 100*time.Millisecond, false)
	elapsed := time.Since(start)

	require.Error(t, err)
	var vmErr *vmconfig.VMError
	require.True(t, errors.As(err, &vmErr))
	assert.Equal(t, vmconfig.KindHealthTimeout, vmErr.Kind)
	assert.Less(t, elapsed, 250*time.Millisecond)
}

func TestProbeOnce_RejectsGarbage(t *testing.T) {
	port := listenOnFreePort(t, func(conn net.Conn) {
		defer conn.Close()
		_, _ = conn.Write([]byte("not a valid response"))
	})
	assert.False(t, probeOnce(port))
}

func TestPortIsInt(t *testing.T) {
	// sanity check for the JoinHostPort/strconv usage in probeOnce
	_, err := strconv.Atoi("8080")
	require.NoError(t, err)
}
