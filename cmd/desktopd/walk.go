package main

import (
	"os"
	"path/filepath"
)

// walkFiles lists the regular files directly under dir (staged artifacts
// are never nested further than bin/ or vm/).
func walkFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
