package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// isAlive reports whether pid names a live process. Variable so tests can
// simulate other daemons.
var isAlive = func(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
}

// terminate sends SIGTERM to pid.
var terminate = func(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	return p.Terminate()
}

// ReadPIDs reads every decimal pid recorded in path. Tokens that are not
// numbers are skipped.
func ReadPIDs(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pids []int
	for _, field := range strings.Fields(string(data)) {
		pid, err := strconv.Atoi(field)
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// LivePIDs returns the recorded pids that belong to running processes. A
// missing or unreadable pid file means nothing is running.
func LivePIDs(path string) []int {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}

	pids, err := ReadPIDs(path)
	if err != nil {
		return nil
	}

	var live []int
	for _, pid := range pids {
		if isAlive(pid) {
			live = append(live, pid)
		}
	}
	return live
}

// WritePID records the current process id in path, replacing any previous content.
func WritePID(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create PID directory: %w", err)
		}
	}

	content := fmt.Sprintf("%d", os.Getpid())
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// RemovePIDFile deletes path if it is a regular file.
func RemovePIDFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}
