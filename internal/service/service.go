// Package service registers mysql_logger with systemd or launchd and reports
// the poll loop's state to systemd while it runs.
package service

import (
	"fmt"
	"os"
	"runtime"

	"github.com/okzk/sdnotify"
	"github.com/takama/daemon"

	constants "mysqllogger/config"
	"mysqllogger/internal/logger"
)

// Service is the mysql-logger unit as known to the host's init system.
type Service struct {
	daemon daemon.Daemon
}

// New returns the system unit when running as root, the per-user agent
// otherwise.
func New() (*Service, error) {
	kind := daemon.UserAgent
	if os.Geteuid() == 0 {
		kind = daemon.SystemDaemon
	}

	d, err := daemon.New(constants.SERVICE_NAME, constants.SERVICE_DESCRIPTION, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s unit: %w", constants.SERVICE_NAME, err)
	}
	return &Service{daemon: d}, nil
}

// InstallArgs builds the unit's command line: start in the foreground, since
// the init system supervises the process, followed by pass-through flags.
func InstallArgs(extra ...string) []string {
	return append([]string{"--command", constants.COMMAND_START}, extra...)
}

// Install writes the unit file. The executable path is resolved by
// takama/daemon; args become the daemon's flags.
func (s *Service) Install(args ...string) (string, error) {
	return s.do("install", func() (string, error) { return s.daemon.Install(args...) })
}

// Remove deletes the unit file.
func (s *Service) Remove() (string, error) {
	return s.do("remove", s.daemon.Remove)
}

// Start asks the init system to launch the poller.
func (s *Service) Start() (string, error) {
	return s.do("start", s.daemon.Start)
}

// Stop asks the init system to terminate the poller.
func (s *Service) Stop() (string, error) {
	return s.do("stop", s.daemon.Stop)
}

// Status reports the init system's view of the unit.
func (s *Service) Status() (string, error) {
	return s.daemon.Status()
}

func (s *Service) do(action string, fn func() (string, error)) (string, error) {
	status, err := fn()
	if err != nil {
		logger.Warning("Service %s failed: %v", action, err)
		return status, err
	}
	logger.Info("Service %s: %s", action, status)
	return status, nil
}

// The helpers below are no-ops outside systemd: sdnotify returns an error
// when NOTIFY_SOCKET is unset, which is ignored.

// NotifyReady tells systemd the pid file is written and polling begins.
func NotifyReady() {
	if runtime.GOOS == "linux" {
		sdnotify.Ready()
		logger.Debug("systemd: READY=1")
	}
}

// NotifyStopping tells systemd the poll loop has ended.
func NotifyStopping() {
	if runtime.GOOS == "linux" {
		sdnotify.Stopping()
		logger.Debug("systemd: STOPPING=1")
	}
}

// NotifyWatchdog is called after every tick so a wedged poll trips
// WatchdogSec.
func NotifyWatchdog() {
	if runtime.GOOS == "linux" {
		sdnotify.Watchdog()
	}
}

// NotifyStatus publishes a one-line status shown by systemctl status.
func NotifyStatus(status string) {
	if runtime.GOOS == "linux" {
		sdnotify.Status(status)
	}
}
