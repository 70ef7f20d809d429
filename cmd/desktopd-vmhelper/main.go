//go:build darwin

// Command desktopd-vmhelper is the signed, entitled companion binary the
// hypervisor backend (pkg/vmbackend/hypervisor) spawns to actually drive
// Virtualization.framework. It is never invoked directly by users: it is
// staged and ad-hoc re-signed with the virtualization entitlement by
// pkg/stager, then launched as a child process with flags describing the
// VM to boot.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Code-Hex/vz/v3"
)

type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

func main() {
	var (
		diskPath      = flag.String("disk", "", "path to the root disk image")
		kernelPath    = flag.String("kernel", "", "path to the kernel image")
		initrdPath    = flag.String("initrd", "", "path to the initrd image")
		cmdline       = flag.String("cmdline", "console=hvc0", "kernel command line")
		cpus          = flag.Uint("cpus", 2, "vCPU count")
		memoryMiB     = flag.Uint64("memory-mib", 2048, "guest memory in MiB")
		shares        stringList
		portForwards  stringList
		envAssigns    stringList
	)
	flag.Var(&shares, "share", "tag:host_path shared directory mapping, repeatable")
	flag.Var(&portForwards, "port-forward", "host_port:guest_vsock_port mapping, repeatable")
	flag.Var(&envAssigns, "env", "KEY=VALUE passed through for reference, repeatable")
	flag.Parse()

	if *diskPath == "" {
		fmt.Fprintln(os.Stderr, "desktopd-vmhelper: --disk is required")
		os.Exit(2)
	}

	vm, err := bootVM(*kernelPath, *initrdPath, *diskPath, *cmdline, *cpus, *memoryMiB, shares)
	if err != nil {
		fmt.Fprintf(os.Stderr, "desktopd-vmhelper: boot failed: %v\n", err)
		os.Exit(1)
	}

	socketDevices := vm.SocketDevices()
	if len(socketDevices) == 0 && len(portForwards) > 0 {
		fmt.Fprintln(os.Stderr, "desktopd-vmhelper: no virtio-socket device available, port forwards disabled")
	}

	for _, pf := range portForwards {
		hostPort, guestPort, perr := parsePortForward(pf)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "desktopd-vmhelper: %v\n", perr)
			continue
		}
		if len(socketDevices) == 0 {
			continue
		}
		go bridgePort(socketDevices[0], hostPort, guestPort)
	}

	fmt.Println("desktopd-vmhelper: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh

	_, _ = vm.RequestStop()
}

// bootVM constructs and starts a VirtualMachine per the supplied flags.
func bootVM(kernelPath, initrdPath, diskPath, cmdline string, cpus uint, memoryMiB uint64, shares []string) (*vz.VirtualMachine, error) {
	var bootLoader vz.BootLoader
	if kernelPath != "" {
		opts := []vz.LinuxBootLoaderOption{vz.WithCommandLine(cmdline)}
		if initrdPath != "" {
			opts = append(opts, vz.WithInitrd(initrdPath))
		}
		lbl, err := vz.NewLinuxBootLoader(kernelPath, opts...)
		if err != nil {
			return nil, fmt.Errorf("linux boot loader: %w", err)
		}
		bootLoader = lbl
	}

	config, err := vz.NewVirtualMachineConfiguration(bootLoader, cpus, memoryMiB*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("vm configuration: %w", err)
	}

	diskAttachment, err := vz.NewDiskImageStorageDeviceAttachment(diskPath, false)
	if err != nil {
		return nil, fmt.Errorf("disk attachment: %w", err)
	}
	diskDevice, err := vz.NewVirtioBlockDeviceConfiguration(diskAttachment)
	if err != nil {
		return nil, fmt.Errorf("disk device: %w", err)
	}
	config.SetStorageDevicesVirtualMachineConfiguration([]vz.StorageDeviceConfiguration{diskDevice})

	natAttachment, err := vz.NewNATNetworkDeviceAttachment()
	if err != nil {
		return nil, fmt.Errorf("nat attachment: %w", err)
	}
	netDevice, err := vz.NewVirtioNetworkDeviceConfiguration(natAttachment)
	if err != nil {
		return nil, fmt.Errorf("network device: %w", err)
	}
	config.SetNetworkDevicesVirtualMachineConfiguration([]*vz.VirtioNetworkDeviceConfiguration{netDevice})

	socketDevice, err := vz.NewVirtioSocketDeviceConfiguration()
	if err != nil {
		return nil, fmt.Errorf("socket device: %w", err)
	}
	config.SetSocketDevicesVirtualMachineConfiguration([]vz.SocketDeviceConfiguration{socketDevice})

	var shareConfigs []vz.DirectorySharingDeviceConfiguration
	for _, s := range shares {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			continue
		}
		tag, hostPath := parts[0], parts[1]
		dir := vz.NewSharedDirectory(hostPath, false)
		single, err := vz.NewSingleDirectoryShare(dir)
		if err != nil {
			continue
		}
		fsDevice, err := vz.NewVirtioFileSystemDeviceConfiguration(tag)
		if err != nil {
			continue
		}
		fsDevice.SetDirectoryShare(single)
		shareConfigs = append(shareConfigs, fsDevice)
	}
	if len(shareConfigs) > 0 {
		config.SetDirectorySharingDevicesVirtualMachineConfiguration(shareConfigs)
	}

	if ok, err := config.Validate(); !ok || err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	vm, err := vz.NewVirtualMachine(config)
	if err != nil {
		return nil, fmt.Errorf("new virtual machine: %w", err)
	}
	if err := vm.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	return vm, nil
}

func parsePortForward(spec string) (hostPort, guestPort int, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid port-forward spec %q", spec)
	}
	hostPort, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid host port in %q: %w", spec, err)
	}
	guestPort, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid guest port in %q: %w", spec, err)
	}
	return hostPort, guestPort, nil
}

// bridgePort listens on 127.0.0.1:hostPort and, for every accepted
// connection, dials the guest's vsock listener on guestPort and splices
// the two streams together full-duplex.
func bridgePort(socketDevice *vz.VirtioSocketDevice, hostPort, guestPort int) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", hostPort))
	if err != nil {
		fmt.Fprintf(os.Stderr, "desktopd-vmhelper: listen on %d: %v\n", hostPort, err)
		return
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go bridgeConn(socketDevice, conn, hostPort, guestPort)
	}
}

func bridgeConn(socketDevice *vz.VirtioSocketDevice, hostConn net.Conn, hostPort, guestPort int) {
	defer hostConn.Close()

	guestConn, err := socketDevice.Connect(uint32(guestPort))
	if err != nil {
		fmt.Fprintf(os.Stderr, "desktopd-vmhelper: vsock connect to guest port %d: %v\n", guestPort, err)
		return
	}
	defer guestConn.Close()

	done := make(chan struct{}, 2)
	go func() {
		_, _ = io.Copy(guestConn, hostConn)
		done <- struct{}{}
	}()
	go func() {
		_, _ = io.Copy(hostConn, guestConn)
		done <- struct{}{}
	}()
	<-done
}
