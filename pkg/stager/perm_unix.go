//go:build unix

package stager

import "os"

func chmodExecutable(path string) error {
	return os.Chmod(path, 0o755)
}
