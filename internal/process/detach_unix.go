//go:build !windows
// +build !windows

package process

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	constants "mysqllogger/config"
	"mysqllogger/internal/logger"
)

const (
	stageSession = "session"
	stageDaemon  = "daemon"
)

// Detach turns the current invocation into a background daemon. The process
// re-executes itself twice: first into a new session, then once more so the
// daemon is not a session leader and can never reacquire a terminal. Every
// intermediate process gets parent == true and should exit right away.
// In the final process Detach resets the umask, moves to "/" and returns
// parent == false.
func Detach() (parent bool, err error) {
	switch os.Getenv(constants.DETACH_STAGE_ENV) {
	case "":
		return true, respawn(stageSession, true)
	case stageSession:
		return true, respawn(stageDaemon, false)
	default:
		os.Unsetenv(constants.DETACH_STAGE_ENV)
		unix.Umask(0)
		if err := os.Chdir(constants.DETACH_WORK_DIR); err != nil {
			return false, fmt.Errorf("failed to change directory: %w", err)
		}
		logger.Info("Detached into background (PID: %d)", os.Getpid())
		return false, nil
	}
}

func respawn(next string, newSession bool) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	devNull, err := os.OpenFile(constants.NULL_DEVICE, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", constants.NULL_DEVICE, err)
	}
	defer devNull.Close()

	// The working directory is inherited so every stage resolves relative
	// flags alike.
	cmd := exec.Command(executable, os.Args[1:]...)
	cmd.Env = append(os.Environ(), constants.DETACH_STAGE_ENV+"="+next)
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	if newSession {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s stage: %w", next, err)
	}

	// Released, not waited on: the caller exits immediately and the child
	// is adopted by init.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release %s stage: %w", next, err)
	}
	return nil
}
