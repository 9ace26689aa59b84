// Package safefile opens log files read-only and tracks their identity
// across polls.
package safefile

import (
	"errors"
	"os"
)

// ErrNotRegularFile is returned when the path is not a regular file.
// This includes symlinks, FIFOs, devices, sockets, and directories.
var ErrNotRegularFile = errors.New("not a regular file")

// OpenRegular opens path read-only and verifies it is a regular file.
//
// The path is checked with os.Lstat before opening and the descriptor is
// stat'ed again after opening, so a file swapped for a symlink or special
// file in between is rejected.
//
// The game keeps writing to the file while we hold it; os.Open does not
// request exclusive access on any platform.
//
// The caller must close the returned file.
func OpenRegular(path string) (*os.File, os.FileInfo, error) {
	linkInfo, err := os.Lstat(path)
	if err != nil {
		return nil, nil, err
	}
	if !linkInfo.Mode().IsRegular() {
		return nil, nil, ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, ErrNotRegularFile
	}

	return f, info, nil
}

// Identity remembers which file a cursor belongs to.
// The zero Identity matches nothing.
type Identity struct {
	info os.FileInfo
}

// IdentityOf returns the identity of the file described by info.
func IdentityOf(info os.FileInfo) Identity {
	return Identity{info: info}
}

// IsZero reports whether no file has been recorded yet.
func (id Identity) IsZero() bool {
	return id.info == nil
}

// Same reports whether info describes the same underlying file.
// A log that was deleted and recreated under the same name is not the same file.
func (id Identity) Same(info os.FileInfo) bool {
	if id.info == nil || info == nil {
		return false
	}
	return os.SameFile(id.info, info)
}
