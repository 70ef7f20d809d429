//go:build !unix && !windows

package safeio

import (
	"fmt"
	"io"
	"os"
)

// safeCopyFile is a best-effort plain copy on platforms without a
// symlink-race guard in the standard toolchain (e.g. js/wasm).
func safeCopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("safeio: open source %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("safeio: open destination %q: %w", dst, err)
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, fmt.Errorf("safeio: copy %q to %q: %w", src, dst, err)
	}
	return n, nil
}
