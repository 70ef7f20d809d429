package emulator

import (
	"time"

	"github.com/digitalocean/go-qemu/qemu"
	"github.com/digitalocean/go-qemu/qmp"
)

// qmpClient wraps a QMP monitor connection used to request a guest
// powerdown or an emulator quit on stop. It issues no status queries;
// liveness comes from the emulator process itself.
type qmpClient struct {
	monitor *qemu.Monitor
	socket  *qmp.SocketMonitor
}

func dialQMP(sockPath string) (*qmpClient, error) {
	sock, err := qmp.NewSocketMonitor("unix", sockPath, 5*time.Second)
	if err != nil {
		return nil, err
	}
	if err := sock.Connect(); err != nil {
		return nil, err
	}
	mon := qemu.NewMonitor(sock)
	return &qmpClient{monitor: mon, socket: sock}, nil
}

// powerdown sends a cooperative system_powerdown over QMP.
func (c *qmpClient) powerdown() error {
	_, err := c.monitor.Run([]byte(`{"execute":"system_powerdown"}`))
	return err
}

// quit force-terminates the VM over QMP.
func (c *qmpClient) quit() error {
	_, err := c.monitor.Run([]byte(`{"execute":"quit"}`))
	return err
}

func (c *qmpClient) close() error {
	return c.socket.Disconnect()
}
