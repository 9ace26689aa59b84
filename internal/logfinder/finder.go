// Package logfinder resolves which Wakfu log file to read.
//
// There is no search of well-known install locations: the path comes from
// the caller (flag or config file) or from the WAKFULOG_LOG environment
// variable. A directory may be given, in which case the most recently
// modified wakfu*.log inside it is used.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// EnvLogPath is the environment variable name for specifying the log path.
const EnvLogPath = "WAKFULOG_LOG"

// logGlob matches the client's log files inside a logs directory.
const logGlob = "wakfu*.log"

// Sentinel errors.
var (
	ErrLogPathUnset = errors.New("log path not set")
	ErrNoLogFiles   = errors.New("no log files found")
)

// Resolve returns the log file to read.
//
// Priority:
//  1. explicit (if non-empty)
//  2. WAKFULOG_LOG environment variable
//
// A path that does not exist yet is returned as is: the reader treats a
// missing file as temporarily unavailable. A directory is resolved with
// FindLatestLogFile.
func Resolve(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(EnvLogPath)
	}
	if path == "" {
		return "", ErrLogPathUnset
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return filepath.Clean(path), nil
		}
		return "", fmt.Errorf("stat log path: %w", err)
	}
	if !info.IsDir() {
		return filepath.Clean(path), nil
	}
	return FindLatestLogFile(path)
}

// logCandidate holds a log file path and its cached modification time.
// Stat results are cached so a file deleted mid-sort cannot break ordering.
type logCandidate struct {
	path    string
	modTime int64
}

// FindLatestLogFile returns the most recently modified wakfu*.log file in dir.
// Returns ErrNoLogFiles if there is none.
func FindLatestLogFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logGlob))
	if err != nil {
		return "", fmt.Errorf("globbing log files: %w", err)
	}

	candidates := make([]logCandidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, logCandidate{
			path:    m,
			modTime: info.ModTime().UnixNano(),
		})
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogFiles, dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})

	return candidates[0].path, nil
}
