// Package process owns the daemon's pid file: single-instance enforcement,
// background detachment and the start/stop/status control surface.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mysqllogger/internal/logger"
)

// ControlError reports a failed detach or a pid that could not be signalled.
type ControlError struct {
	Op  string
	PID int
	Err error
}

func (e *ControlError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%s pid %d: %v", e.Op, e.PID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ControlError) Unwrap() error {
	return e.Err
}

// Controller starts, stops and reports on the daemon recorded in PIDFile.
type Controller struct {
	PIDFile string
	// Detach runs the body in a detached background process.
	Detach bool
	// Lock holds PIDFile under an exclusive flock for the daemon's lifetime.
	Lock bool
	// Name is used in status messages.
	Name string
	Out  io.Writer
	// OnReady runs once the pid is recorded, right before the body.
	OnReady func()

	detach func() (bool, error)
}

// NewController creates a controller that prints to stdout.
func NewController(pidFile string) *Controller {
	return &Controller{
		PIDFile: pidFile,
		Name:    filepath.Base(os.Args[0]),
		Out:     os.Stdout,
		detach:  Detach,
	}
}

// RunningPIDs returns the live pids recorded in the pid file.
func (c *Controller) RunningPIDs() []int {
	pids := LivePIDs(c.PIDFile)
	if !c.Lock || c.PIDFile == "" {
		return pids
	}

	held, pid, err := Check(c.PIDFile)
	if err != nil || !held || pid <= 0 {
		return pids
	}
	for _, p := range pids {
		if p == pid {
			return pids
		}
	}
	return append(pids, pid)
}

// Start runs body unless a daemon is already running, in which case it
// returns 1 without calling body. In the intermediate processes of a detach
// Start returns 0 immediately. A body ended by context cancellation counts
// as a clean exit.
func (c *Controller) Start(ctx context.Context, body func(context.Context) error) (int, error) {
	if pids := c.RunningPIDs(); len(pids) > 0 {
		logger.Warning("Refusing to start: daemon already running (PIDs: %v)", pids)
		fmt.Fprintln(c.Out, "Daemon is already running")
		return 1, nil
	}

	if c.Detach {
		detach := c.detach
		if detach == nil {
			detach = Detach
		}
		parent, err := detach()
		if err != nil {
			return 1, &ControlError{Op: "detach", Err: err}
		}
		if parent {
			return 0, nil
		}
	}

	if c.PIDFile != "" {
		if c.Lock {
			lock, err := Acquire(c.PIDFile)
			if err != nil {
				if errors.Is(err, ErrLocked) {
					fmt.Fprintln(c.Out, "Daemon is already running")
					return 1, nil
				}
				return 1, &ControlError{Op: "lock", Err: err}
			}
			defer lock.Release()
		} else if err := WritePID(c.PIDFile); err != nil {
			return 1, &ControlError{Op: "record", Err: err}
		}
	}

	logger.Info("Daemon started (PID: %d, pidfile: %s)", os.Getpid(), c.PIDFile)
	if c.OnReady != nil {
		c.OnReady()
	}

	if err := body(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return 1, err
	}
	return 0, nil
}

// Stop signals every live recorded pid and removes the pid file, unless a
// still-running daemon holds its lock. Signal failures are reported but
// never change the result.
func (c *Controller) Stop() int {
	for _, pid := range c.RunningPIDs() {
		fmt.Fprintf(c.Out, "Killing pid %d\n", pid)
		if err := terminate(pid); err != nil {
			cerr := &ControlError{Op: "kill", PID: pid, Err: err}
			logger.Warning("%v", cerr)
			fmt.Fprintln(c.Out, cerr)
		}
	}

	if c.PIDFile == "" {
		return 0
	}
	// A locked pid file belongs to a daemon that has not exited yet. It
	// removes the file itself on release; unlinking it here would let a new
	// start lock a fresh file while the old daemon still runs.
	if c.Lock {
		if held, pid, _ := Check(c.PIDFile); held {
			logger.Info("Leaving locked PID file %s to PID %d", c.PIDFile, pid)
			return 0
		}
	}
	if err := RemovePIDFile(c.PIDFile); err != nil {
		logger.Warning("%v", err)
	}
	return 0
}

// Status prints whether the daemon is running and returns 0 if it is, 1 if not.
func (c *Controller) Status() int {
	if len(c.RunningPIDs()) > 0 {
		fmt.Fprintf(c.Out, "%s is running.\n", c.Name)
		return 0
	}
	fmt.Fprintf(c.Out, "%s is not running.\n", c.Name)
	return 1
}
