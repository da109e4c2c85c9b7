//go:build !windows

package store

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockDir takes an exclusive, non-blocking flock on path, creating it.
func lockDir(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("flock %q: %w", path, err)
	}
	return f, nil
}

// unlockDir releases the lock and removes the lock file.
func unlockDir(f *os.File) error {
	if f == nil {
		return nil
	}
	path := f.Name()
	// The file is removed while still locked, so a waiting process cannot
	// lock an unlinked inode and believe it owns the directory.
	rmErr := os.Remove(path)
	if os.IsNotExist(rmErr) {
		rmErr = nil
	}
	unErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return errors.Join(rmErr, unErr, f.Close())
}
