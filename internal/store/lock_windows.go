//go:build windows

package store

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// lockDir takes an exclusive, non-blocking LockFileEx lock on path, creating
// it.
func lockDir(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	var ol windows.Overlapped
	err = windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		1,
		0,
		&ol,
	)
	if err != nil {
		f.Close()
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, ErrWouldBlock
		}
		return nil, fmt.Errorf("LockFileEx %q: %w", path, err)
	}
	return f, nil
}

// unlockDir releases the lock and removes the lock file. Windows refuses to
// delete an open file, so the handle is closed first.
func unlockDir(f *os.File) error {
	if f == nil {
		return nil
	}
	path := f.Name()
	var ol windows.Overlapped
	unErr := windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, &ol)
	closeErr := f.Close()
	rmErr := os.Remove(path)
	if os.IsNotExist(rmErr) {
		rmErr = nil
	}
	return errors.Join(unErr, closeErr, rmErr)
}
