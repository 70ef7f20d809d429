package emulator

import (
	"context"
	"fmt"
	"net"
	"path/filepath"

	"github.com/containers/gvisor-tap-vsock/pkg/types"
	"github.com/containers/gvisor-tap-vsock/pkg/virtualnetwork"
)

const (
	guestCIDR    = "192.168.127.0/24"
	gatewayIP    = "192.168.127.1"
	guestIP      = "192.168.127.2"
	gatewayMAC   = "5a:94:ef:e4:0c:dd"
)

// userNetwork wraps a gvisor-tap-vsock virtual network bound to a unix
// socket that qemu connects to via "-netdev socket,connect=<path>". It
// replaces qemu's own built-in usermode/SLIRP networking with the same
// user-mode stack Lima itself uses, giving the emulator backend
// hostfwd-equivalent port forwarding without qemu's SLIRP implementation.
type userNetwork struct {
	vn       *virtualnetwork.VirtualNetwork
	sockPath string
	ln       net.Listener
}

// newUserNetwork configures a virtual network forwarding hostPort on the
// host to guestPort inside the guest, listening on a unix socket under
// dataDir for qemu to connect to.
func newUserNetwork(dataDir string, hostPort, guestPort int) (*userNetwork, error) {
	config := &types.Configuration{
		Debug:             false,
		MTU:               1500,
		Subnet:            guestCIDR,
		GatewayIP:         gatewayIP,
		GatewayMacAddress: gatewayMAC,
		DHCPStaticLeases: map[string]string{
			guestIP: gatewayMAC,
		},
		Forwards: map[string]string{
			fmt.Sprintf("127.0.0.1:%d", hostPort): fmt.Sprintf("%s:%d", guestIP, guestPort),
		},
		NAT:               map[string]string{},
		GatewayVirtualIPs: []string{gatewayIP},
	}

	vn, err := virtualnetwork.New(config)
	if err != nil {
		return nil, fmt.Errorf("emulator: configure virtual network: %w", err)
	}

	sockPath := filepath.Join(dataDir, "emulator-net.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("emulator: listen on %q: %w", sockPath, err)
	}

	u := &userNetwork{vn: vn, sockPath: sockPath, ln: ln}
	go u.acceptLoop()
	return u, nil
}

func (u *userNetwork) acceptLoop() {
	for {
		conn, err := u.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			_ = u.vn.AcceptQemu(context.Background(), conn)
		}()
	}
}

// netdevArgs returns the qemu -netdev/-device flags to wire the VM's NIC
// to this virtual network.
func (u *userNetwork) netdevArgs() []string {
	return []string{
		"-netdev", fmt.Sprintf("socket,id=net0,connect=%s", u.sockPath),
		"-device", "virtio-net-pci,netdev=net0,mac=" + gatewayMAC,
	}
}

func (u *userNetwork) Close() error {
	return u.ln.Close()
}
