// Package pidfile guards against two daemons running at once.
package pidfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/jason790/lamplighter/internal/logger"
)

// ErrAlreadyRunning is returned when the pid file names a live process.
var ErrAlreadyRunning = errors.New("another instance is already running")

// File is an acquired pid file.
type File struct {
	path string
	pid  int
}

// Acquire writes the current pid to path. A pid file left behind by a process
// that no longer exists is replaced; one that names a live process is not.
func Acquire(ctx context.Context, path string) (*File, error) {
	pid := os.Getpid()

	if other, ok := readPID(path); ok && other != pid {
		process, err := ps.FindProcess(other)
		if err != nil {
			return nil, fmt.Errorf("look up process %d: %w", other, err)
		}

		if process != nil {
			return nil, fmt.Errorf("%w: pid %d (%s) holds %s", ErrAlreadyRunning, other, process.Executable(), path)
		}

		logger.WarnKV(ctx, "Replacing stale pid file", "path", path, "pid", other)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pid file directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil { //nolint:gosec // Pid files are world readable.
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return &File{path: path, pid: pid}, nil
}

// Path returns the location of the pid file.
func (f *File) Path() string {
	return f.path
}

// Release removes the pid file if it still holds our pid.
func (f *File) Release() error {
	if other, ok := readPID(f.path); !ok || other != f.pid {
		return nil
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}

	return nil
}

// readPID returns the pid stored at path. Missing or garbled files report false.
func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}
