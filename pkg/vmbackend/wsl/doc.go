// Package wsl implements the Windows lightweight-VM backend: it drives the
// Windows Subsystem for Linux's own distribution lifecycle (wsl.exe
// --import/--unregister) and process spawn (wsl.exe --distribution ...
// --exec) rather than
// booting a VM image directly, since WSL2 already supervises its own
// managed VM per distribution (§4.7.3).
package wsl
