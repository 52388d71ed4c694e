//go:build !windows
// +build !windows

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"mysqllogger/internal/logger"
)

// ErrLocked is returned by Acquire when another process holds the PID file.
var ErrLocked = errors.New("another mysql_logger instance holds the PID file lock")

// LockFile represents an exclusive lock on a PID file
type LockFile struct {
	path string
	fd   int
}

// Acquire creates and locks the PID file, then records our pid in it.
// The lock lives as long as the returned LockFile (or the process).
func Acquire(pidFile string) (*LockFile, error) {
	dir := filepath.Dir(pidFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}

	// Open without truncating: the current holder's pid must survive a failed attempt.
	fd, err := unix.Open(pidFile, unix.O_RDWR|unix.O_CREAT|unix.O_CLOEXEC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open PID file: %w", err)
	}

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to lock PID file: %w", err)
	}

	if err := unix.Ftruncate(fd, 0); err != nil {
		unix.Flock(fd, unix.LOCK_UN)
		unix.Close(fd)
		return nil, fmt.Errorf("failed to truncate PID file: %w", err)
	}

	pid := fmt.Sprintf("%d", os.Getpid())
	if _, err := unix.Pwrite(fd, []byte(pid), 0); err != nil {
		unix.Flock(fd, unix.LOCK_UN)
		unix.Close(fd)
		return nil, fmt.Errorf("failed to write PID: %w", err)
	}

	logger.Info("Acquired PID file lock: %s (PID: %d)", pidFile, os.Getpid())

	return &LockFile{path: pidFile, fd: fd}, nil
}

// Release unlocks and removes the PID file. Safe to call more than once.
func (lf *LockFile) Release() error {
	if lf == nil || lf.fd <= 0 {
		return nil
	}

	logger.Info("Releasing PID file lock: %s", lf.path)

	unix.Flock(lf.fd, unix.LOCK_UN)
	unix.Close(lf.fd)
	os.Remove(lf.path)

	lf.fd = 0
	return nil
}

// Check reports whether some process holds the lock on pidFile, and its pid.
func Check(pidFile string) (bool, int, error) {
	fd, err := unix.Open(pidFile, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("failed to open PID file: %w", err)
	}
	defer unix.Close(fd)

	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return true, readPIDFromFd(fd), nil
	}

	// Nobody holds it: the file is stale.
	unix.Flock(fd, unix.LOCK_UN)
	return false, 0, nil
}

func readPIDFromFd(fd int) int {
	buf := make([]byte, 32)
	n, err := unix.Pread(fd, buf, 0)
	if err != nil || n == 0 {
		return 0
	}

	var pid int
	fmt.Sscanf(string(buf[:n]), "%d", &pid)
	return pid
}
