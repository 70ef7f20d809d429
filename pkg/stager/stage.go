package stager

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog"

	"github.com/sandboxkit/desktopd/pkg/log"
)

const copyBufferSize = 64 * 1024 // 64 KiB, per spec §4.5

var logger = log.WithComponent("stager")

// StageImage idempotently materializes src into destDir, returning the
// staged path. Gzip- and lz4-suffixed sources are streamed-decompressed
// and the extension dropped from the destination filename; anything else
// is copied verbatim with its modification time preserved.
func StageImage(src, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("stager: create dest dir %q: %w", destDir, err)
	}

	compressed, destName := decompressionFor(filepath.Base(src))
	dest := filepath.Join(destDir, destName)

	fresh, err := isFresh(src, dest, compressed)
	if err != nil {
		return "", err
	}
	if fresh {
		logger.Debug().Str("dest", dest).Msg("staging skipped, destination is fresh")
		return dest, nil
	}

	if err := stageOne(src, dest, compressed, logger); err != nil {
		return "", err
	}
	return dest, nil
}

// StageVMResources stages the image and any optional kernel/initrd/helper
// named by paths into dataDir/vm/.
func StageVMResources(paths VMResourcePaths, dataDir string) (StagedPaths, error) {
	destDir := filepath.Join(dataDir, "vm")
	var out StagedPaths

	image, err := StageImage(paths.Image, destDir)
	if err != nil {
		return out, fmt.Errorf("stager: stage image: %w", err)
	}
	out.Image = image

	if paths.Kernel != "" {
		k, err := StageImage(paths.Kernel, destDir)
		if err != nil {
			return out, fmt.Errorf("stager: stage kernel: %w", err)
		}
		out.Kernel = k
	}

	if paths.Initrd != "" {
		i, err := StageImage(paths.Initrd, destDir)
		if err != nil {
			return out, fmt.Errorf("stager: stage initrd: %w", err)
		}
		out.Initrd = i
	}

	if paths.Helper != "" {
		h, err := StageImage(paths.Helper, destDir)
		if err != nil {
			return out, fmt.Errorf("stager: stage helper: %w", err)
		}
		if err := chmodExecutable(h); err != nil {
			return out, fmt.Errorf("stager: chmod helper: %w", err)
		}
		if err := signHelper(h); err != nil {
			return out, fmt.Errorf("stager: sign helper: %w", err)
		}
		out.Helper = h
	}

	return out, nil
}

// decompressionFor reports whether name names a compressed artifact and,
// if so, the destination filename with the compression suffix stripped.
func decompressionFor(name string) (compressed bool, destName string) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return true, strings.TrimSuffix(name, ".gz")
	case strings.HasSuffix(name, ".lz4"):
		return true, strings.TrimSuffix(name, ".lz4")
	default:
		return false, name
	}
}

// isFresh reports whether dest already reflects src: it must exist and not
// be older than src; for uncompressed artifacts the sizes must also match
// (a compressed source's size is never comparable to its decompressed
// destination).
func isFresh(src, dest string, compressed bool) (bool, error) {
	srcInfo, err := times.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stager: stat source %q: %w", src, err)
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stager: stat dest %q: %w", dest, err)
	}

	if destInfo.ModTime().Before(srcInfo.ModTime()) {
		return false, nil
	}

	if !compressed {
		srcStat, err := os.Stat(src)
		if err != nil {
			return false, fmt.Errorf("stager: stat source %q: %w", src, err)
		}
		if srcStat.Size() != destInfo.Size() {
			return false, nil
		}
	}
	return true, nil
}

func stageOne(src, dest string, compressed bool, logger zerolog.Logger) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("stager: open source %q: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("stager: create dest parent: %w", err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("stager: create dest %q: %w", dest, err)
	}
	defer out.Close()

	var reader io.Reader = in
	if compressed {
		switch {
		case strings.HasSuffix(src, ".gz"):
			gz, err := gzip.NewReader(in)
			if err != nil {
				return fmt.Errorf("stager: gzip reader %q: %w", src, err)
			}
			defer gz.Close()
			reader = gz
		case strings.HasSuffix(src, ".lz4"):
			reader = lz4.NewReader(in)
		}
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(out, reader, buf); err != nil {
		return fmt.Errorf("stager: stream %q -> %q: %w", src, dest, err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("stager: sync %q: %w", dest, err)
	}

	if !compressed {
		srcInfo, err := os.Stat(src)
		if err == nil {
			_ = os.Chtimes(dest, srcInfo.ModTime(), srcInfo.ModTime())
		}
	} else {
		now := time.Now()
		_ = os.Chtimes(dest, now, now)
	}

	logger.Info().Str("src", src).Str("dest", dest).Msg("staged artifact")
	return nil
}
