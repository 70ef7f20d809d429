//go:build windows

package safeio

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/windows"
)

// safeCopyFile pre-checks dst's link metadata and refuses if it is a
// reparse point (symlink or junction), performs the copy, then
// post-checks the metadata again: if dst became a reparse point during
// the copy, it is deleted and the call fails.
func safeCopyFile(src, dst string) (int64, error) {
	if err := refuseReparsePoint(dst); err != nil {
		return 0, err
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("safeio: open source %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("safeio: open destination %q: %w", dst, err)
	}

	n, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		return n, fmt.Errorf("safeio: copy %q to %q: %w", src, dst, copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("safeio: close %q: %w", dst, closeErr)
	}

	if err := refuseReparsePoint(dst); err != nil {
		_ = os.Remove(dst)
		return n, fmt.Errorf("safeio: %q became a reparse point during copy, removed: %w", dst, err)
	}

	return n, nil
}

func refuseReparsePoint(path string) error {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fmt.Errorf("safeio: encode path %q: %w", path, err)
	}

	attrs, err := windows.GetFileAttributes(ptr)
	if err != nil {
		if err == windows.ERROR_FILE_NOT_FOUND || err == windows.ERROR_PATH_NOT_FOUND {
			return nil
		}
		return fmt.Errorf("safeio: stat %q: %w", path, err)
	}

	if attrs&windows.FILE_ATTRIBUTE_REPARSE_POINT != 0 {
		return fmt.Errorf("safeio: %q is a reparse point", path)
	}
	return nil
}
