package pid

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"codeberg.org/mutker/dashmon/internal/errors"
)

const (
	pidFileName = "dashmon.pid"
	pidFilePerm = 0o600
)

// File guards against a second daemon instance.
type File struct {
	path string
}

// DefaultPath is the PID file location used by the daemon.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), pidFileName)
}

func New(path string) *File {
	if path == "" {
		path = DefaultPath()
	}

	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

// Write records the current process ID. A file naming a live process other
// than this one is an ErrAlreadyRunning; a stale or unreadable file is replaced.
func (f *File) Write() error {
	errFactory := errors.New()
	self := os.Getpid()

	if owner, ok := f.owner(); ok && owner != self && alive(owner) {
		return errFactory.WithData(errors.ErrAlreadyRunning, owner)
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(self)), pidFilePerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the PID file if it exists.
func (f *File) Remove() error {
	errFactory := errors.New()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func (f *File) owner() (int, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
