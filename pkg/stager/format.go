package stager

import (
	"os"

	qcow2reader "github.com/lima-vm/go-qcow2reader"
)

// SniffFormat inspects a staged disk image's header to confirm whether it
// is qcow2 or raw, rather than trusting the file extension alone. Used by
// the emulator backend to pick "-drive format=...". Falls back to "raw"
// for anything go-qcow2reader doesn't recognize.
func SniffFormat(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, err := qcow2reader.Open(f)
	if err != nil {
		return "raw", nil
	}
	defer img.Close()

	return string(img.Type()), nil
}
