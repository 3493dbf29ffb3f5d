// Package artifact writes crash/timeout/OOM-triggering inputs to disk so
// they can be inspected or replayed later.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
)

// Write persists buf under prefix+sha256hex(buf), unless exactPath is set,
// in which case that exact path is used instead (overwriting whatever was
// there, matching --exact-artifact-path). It logs the path and, for small
// inputs, a hex dump of the bytes themselves.
func Write(logger *slog.Logger, buf []byte, prefix, exactPath string) (string, error) {
	sum := sha256.Sum256(buf)
	path := prefix + hex.EncodeToString(sum[:])
	if exactPath != "" {
		path = exactPath
	}

	logger.Info(fmt.Sprintf("sample written to %s", path))
	if len(buf) < 200 {
		logger.Info(fmt.Sprintf("sample = %s", hex.EncodeToString(buf)))
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		logger.Warn("failed to write artifact", "path", path, "error", err)
		return path, err
	}
	return path, nil
}
