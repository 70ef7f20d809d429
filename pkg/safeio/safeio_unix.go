//go:build unix

package safeio

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// safeCopyFile opens dst with O_NOFOLLOW so a symlink raced into place
// between validation and this call causes ELOOP instead of a write
// through it, then copies src's bytes with create-write-truncate
// semantics.
func safeCopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("safeio: open source %q: %w", src, err)
	}
	defer in.Close()

	fd, err := unix.Open(dst, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC|unix.O_NOFOLLOW, 0o644)
	if err != nil {
		return 0, fmt.Errorf("safeio: open destination %q (symlink race?): %w", dst, err)
	}
	out := os.NewFile(uintptr(fd), dst)
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, fmt.Errorf("safeio: copy %q to %q: %w", src, dst, err)
	}
	if err := out.Sync(); err != nil {
		return n, fmt.Errorf("safeio: sync %q: %w", dst, err)
	}
	return n, nil
}
