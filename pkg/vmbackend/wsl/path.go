package wsl

import (
	"fmt"
	"strings"
)

// translatePath converts a Windows absolute path (e.g. "C:\Users\me\app")
// into the corresponding path under WSL's DrvFs mount ("/mnt/c/Users/me/app"),
// since ImagePath/WorkspacePath arrive in Windows form but the command run
// inside the distribution needs a Linux path.
func translatePath(winPath string) (string, error) {
	if len(winPath) < 3 || winPath[1] != ':' {
		return "", fmt.Errorf("wsl: %q is not an absolute Windows path", winPath)
	}
	drive := strings.ToLower(string(winPath[0]))
	rest := strings.ReplaceAll(winPath[2:], "\\", "/")
	rest = strings.TrimPrefix(rest, "/")
	return fmt.Sprintf("/mnt/%s/%s", drive, rest), nil
}
