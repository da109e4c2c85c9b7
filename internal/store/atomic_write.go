package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

// writeFileAtomic replaces filename with data via a synced temporary file in
// the same directory and a rename, so readers see either the old or the new
// contents.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(filename)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	var renamed bool
	defer func() {
		if !renamed {
			if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
				slog.Warn("[Store] Failed to remove temporary file", "path", tmp.Name(), "error", err)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file %q: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if runtime.GOOS == "windows" {
		err = replaceFileWindows(tmp.Name(), filename)
	} else {
		err = os.Rename(tmp.Name(), filename)
	}
	if err != nil {
		return fmt.Errorf("rename %q: %w", filename, err)
	}
	renamed = true
	return nil
}
