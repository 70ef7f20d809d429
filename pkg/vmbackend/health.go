package vmbackend

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sandboxkit/desktopd/pkg/log"
	"github.com/sandboxkit/desktopd/pkg/metrics"
	"github.com/sandboxkit/desktopd/pkg/vmconfig"
)

const (
	healthProbeInterval    = 500 * time.Millisecond
	healthProbeMaxBackoff  = 5 * time.Second
	healthDialTimeout      = 2 * time.Second
	healthReadBufferBytes  = 256
)

// ProbeHealth opens a raw TCP connection to 127.0.0.1:port, sends a
// minimal GET /health HTTP/1.1 request, and succeeds if the response
// contains "200 OK" or the substring "ok". It retries at a fixed interval
// until timeout elapses; if withBackoff is set (macOS hosts, per spec
// §4.6), the interval grows exponentially capped at 5s instead of staying
// fixed at 500ms.
func ProbeHealth(backendName string, port int, timeout time.Duration, withBackoff bool) error {
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDurationVec(metrics.VMHealthProbeDuration, backendName)
	}()

	logger := log.WithBackend(backendName)
	deadline := time.Now().Add(timeout)
	interval := healthProbeInterval

	for {
		if probeOnce(port) {
			logger.Info().Msg("health probe succeeded")
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return vmconfig.ErrHealthTimeout(timeout)
		}

		sleep := interval
		if sleep > remaining {
			sleep = remaining
		}
		time.Sleep(sleep)
		if withBackoff {
			interval *= 2
			if interval > healthProbeMaxBackoff {
				interval = healthProbeMaxBackoff
			}
		}
	}
}

func probeOnce(port int) bool {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, healthDialTimeout)
	if err != nil {
		return false
	}
	defer conn.Close()

	req := fmt.Sprintf("GET /health HTTP/1.1\r\nHost: 127.0.0.1:%d\r\nConnection: close\r\n\r\n", port)
	_ = conn.SetDeadline(time.Now().Add(healthDialTimeout))
	if _, err := conn.Write([]byte(req)); err != nil {
		return false
	}

	buf := make([]byte, healthReadBufferBytes)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return false
	}

	body := buf[:n]
	return bytes.Contains(body, []byte("200 OK")) || bytes.Contains(bytes.ToLower(body), []byte("ok"))
}
