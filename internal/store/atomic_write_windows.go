//go:build windows

package store

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// replaceFileWindows renames over an existing file, which os.Rename does not
// guarantee on Windows.
func replaceFileWindows(oldpath, newpath string) error {
	from, err := windows.UTF16PtrFromString(oldpath)
	if err != nil {
		return fmt.Errorf("convert %q to UTF16: %w", oldpath, err)
	}
	to, err := windows.UTF16PtrFromString(newpath)
	if err != nil {
		return fmt.Errorf("convert %q to UTF16: %w", newpath, err)
	}
	if err := windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH); err != nil {
		return fmt.Errorf("MoveFileEx: %w", err)
	}
	return nil
}
