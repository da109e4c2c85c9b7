//go:build !windows

package store

import "errors"

func replaceFileWindows(oldpath, newpath string) error {
	return errors.New("replaceFileWindows called on non-Windows platform")
}
