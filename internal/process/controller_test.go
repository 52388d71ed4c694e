//go:build !windows
// +build !windows

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func stubSignals(t *testing.T, alive map[int]bool) *[]int {
	t.Helper()

	origAlive, origTerminate := isAlive, terminate
	t.Cleanup(func() { isAlive, terminate = origAlive, origTerminate })

	var killed []int
	isAlive = func(pid int) bool { return alive[pid] }
	terminate = func(pid int) error {
		killed = append(killed, pid)
		delete(alive, pid)
		return nil
	}
	return &killed
}

func newTestController(t *testing.T) (*Controller, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	c := NewController(filepath.Join(t.TempDir(), "mysql_logger.pid"))
	c.Name = "mysql_logger"
	c.Out = out
	return c, out
}

func TestLivePIDs_CurrentProcess(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "mysql_logger.pid")
	if err := WritePID(pidFile); err != nil {
		t.Fatalf("WritePID failed: %v", err)
	}

	pids := LivePIDs(pidFile)
	if len(pids) != 1 || pids[0] != os.Getpid() {
		t.Errorf("Expected [%d], got %v", os.Getpid(), pids)
	}
}

func TestLivePIDs_FinishedProcessIsNotLive(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Run(); err != nil {
		t.Fatalf("Failed to run child: %v", err)
	}

	pidFile := filepath.Join(t.TempDir(), "mysql_logger.pid")
	os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", cmd.Process.Pid)), 0644)

	if pids := LivePIDs(pidFile); len(pids) != 0 {
		t.Errorf("Reaped child should not be live, got %v", pids)
	}
}

func TestLivePIDs_MissingOrGarbage(t *testing.T) {
	dir := t.TempDir()

	if pids := LivePIDs(filepath.Join(dir, "absent.pid")); pids != nil {
		t.Errorf("Missing file should yield nothing, got %v", pids)
	}

	garbage := filepath.Join(dir, "garbage.pid")
	os.WriteFile(garbage, []byte("not-a-pid\n"), 0644)
	if pids := LivePIDs(garbage); pids != nil {
		t.Errorf("Garbage should yield nothing, got %v", pids)
	}
}

func TestReadPIDs_MultipleTokens(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "mysql_logger.pid")
	os.WriteFile(pidFile, []byte("12 x 34\n56"), 0644)

	pids, err := ReadPIDs(pidFile)
	if err != nil {
		t.Fatalf("ReadPIDs failed: %v", err)
	}
	if fmt.Sprint(pids) != "[12 34 56]" {
		t.Errorf("Unexpected pids: %v", pids)
	}
}

func TestStart_AlreadyRunning(t *testing.T) {
	stubSignals(t, map[int]bool{4242: true})
	c, out := newTestController(t)
	os.WriteFile(c.PIDFile, []byte("4242"), 0644)

	called := false
	code, err := c.Start(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if called {
		t.Error("Body must not run when a daemon is already running")
	}
	if !strings.Contains(out.String(), "Daemon is already running") {
		t.Errorf("Expected already-running message, got %q", out.String())
	}
}

func TestStart_RecordsPIDAndRunsBody(t *testing.T) {
	c, _ := newTestController(t)
	os.WriteFile(c.PIDFile, []byte("stale content that is longer than a pid"), 0644)

	ready := false
	c.OnReady = func() { ready = true }

	var recorded string
	code, err := c.Start(context.Background(), func(context.Context) error {
		data, _ := os.ReadFile(c.PIDFile)
		recorded = string(data)
		return context.Canceled
	})
	if err != nil || code != 0 {
		t.Fatalf("Expected clean exit, got code %d err %v", code, err)
	}
	if recorded != fmt.Sprintf("%d", os.Getpid()) {
		t.Errorf("Pid file should hold only our pid, got %q", recorded)
	}
	if !ready {
		t.Error("OnReady should run before the body")
	}
}

func TestStart_SecondStartIsRefused(t *testing.T) {
	c, out := newTestController(t)

	var inner int
	c.Start(context.Background(), func(context.Context) error {
		// The pid file now names this live process.
		inner, _ = c.Start(context.Background(), func(context.Context) error {
			t.Error("Nested body must not run")
			return nil
		})
		return nil
	})

	if inner != 1 {
		t.Errorf("Second start should return 1, got %d", inner)
	}
	if strings.Count(out.String(), "Daemon is already running") != 1 {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestStart_WithLock(t *testing.T) {
	c, out := newTestController(t)
	c.Lock = true

	var inner int
	code, err := c.Start(context.Background(), func(context.Context) error {
		if held, pid, _ := Check(c.PIDFile); !held || pid != os.Getpid() {
			t.Errorf("Pid file should be locked by us, held=%v pid=%d", held, pid)
		}
		inner, _ = c.Start(context.Background(), func(context.Context) error { return nil })
		return nil
	})
	if err != nil || code != 0 {
		t.Fatalf("Expected clean exit, got code %d err %v", code, err)
	}
	if inner != 1 {
		t.Errorf("Locked pid file should refuse a second start, got %d", inner)
	}
	if !strings.Contains(out.String(), "Daemon is already running") {
		t.Errorf("Expected already-running message, got %q", out.String())
	}
	if _, err := os.Stat(c.PIDFile); !os.IsNotExist(err) {
		t.Error("Pid file should be removed when the lock is released")
	}
}

func TestStart_DetachParentReturnsZero(t *testing.T) {
	c, _ := newTestController(t)
	c.Detach = true
	c.detach = func() (bool, error) { return true, nil }

	code, err := c.Start(context.Background(), func(context.Context) error {
		t.Error("Body must not run in the detaching parent")
		return nil
	})
	if err != nil || code != 0 {
		t.Errorf("Parent should exit 0, got code %d err %v", code, err)
	}
	if _, err := os.Stat(c.PIDFile); !os.IsNotExist(err) {
		t.Error("Parent must not write the pid file")
	}
}

func TestStart_DetachFailure(t *testing.T) {
	c, _ := newTestController(t)
	c.Detach = true
	c.detach = func() (bool, error) { return false, errors.New("no executable") }

	code, err := c.Start(context.Background(), func(context.Context) error { return nil })
	var ce *ControlError
	if !errors.As(err, &ce) || ce.Op != "detach" {
		t.Fatalf("Expected detach ControlError, got %v", err)
	}
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
}

func TestStart_BodyError(t *testing.T) {
	c, _ := newTestController(t)
	boom := errors.New("boom")

	code, err := c.Start(context.Background(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) || code != 1 {
		t.Errorf("Expected body error with code 1, got code %d err %v", code, err)
	}
}

func TestStopThenStatus(t *testing.T) {
	killed := stubSignals(t, map[int]bool{100: true, 200: true})
	c, out := newTestController(t)
	os.WriteFile(c.PIDFile, []byte("100 300 200"), 0644)

	if code := c.Status(); code != 0 {
		t.Fatalf("Status before stop should be 0, got %d", code)
	}

	if code := c.Stop(); code != 0 {
		t.Errorf("Stop should return 0, got %d", code)
	}
	if fmt.Sprint(*killed) != "[100 200]" {
		t.Errorf("Only live pids should be signalled, got %v", *killed)
	}
	if _, err := os.Stat(c.PIDFile); !os.IsNotExist(err) {
		t.Error("Stop should delete the pid file")
	}

	if code := c.Status(); code != 1 {
		t.Errorf("Status after stop should be 1, got %d", code)
	}

	want := "mysql_logger is running.\nKilling pid 100\nKilling pid 200\nmysql_logger is not running.\n"
	if out.String() != want {
		t.Errorf("Unexpected output:\n got %q\nwant %q", out.String(), want)
	}
}

func TestStop_SignalFailureIsReported(t *testing.T) {
	stubSignals(t, map[int]bool{7: true})
	terminate = func(pid int) error { return errors.New("operation not permitted") }

	c, out := newTestController(t)
	os.WriteFile(c.PIDFile, []byte("7"), 0644)

	if code := c.Stop(); code != 0 {
		t.Errorf("Stop should still return 0, got %d", code)
	}
	if !strings.Contains(out.String(), "kill pid 7: operation not permitted") {
		t.Errorf("Expected per-pid failure report, got %q", out.String())
	}
	if _, err := os.Stat(c.PIDFile); !os.IsNotExist(err) {
		t.Error("Pid file should be removed even when a signal fails")
	}
}

func TestStop_NothingRunning(t *testing.T) {
	stubSignals(t, map[int]bool{})
	c, out := newTestController(t)

	if code := c.Stop(); code != 0 {
		t.Errorf("Stop should return 0, got %d", code)
	}
	if out.Len() != 0 {
		t.Errorf("Nothing should be printed, got %q", out.String())
	}
}

func TestStop_WithLockLeavesHeldFile(t *testing.T) {
	killed := stubSignals(t, map[int]bool{os.Getpid(): true})
	c, _ := newTestController(t)
	c.Lock = true

	// Stands in for a daemon that received SIGTERM but has not exited yet.
	lock, err := Acquire(c.PIDFile)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}

	if code := c.Stop(); code != 0 {
		t.Errorf("Stop should return 0, got %d", code)
	}
	if len(*killed) != 1 || (*killed)[0] != os.Getpid() {
		t.Errorf("Lock holder should be signalled, got %v", *killed)
	}
	if _, err := os.Stat(c.PIDFile); err != nil {
		t.Fatalf("Locked pid file must stay until its holder releases it: %v", err)
	}

	// A start racing the exiting daemon is refused.
	if _, err := Acquire(c.PIDFile); !errors.Is(err, ErrLocked) {
		t.Errorf("Second lock should fail while the old daemon holds it, got %v", err)
	}

	lock.Release()
	if _, err := os.Stat(c.PIDFile); !os.IsNotExist(err) {
		t.Error("Release should remove the pid file")
	}
}

func TestStop_WithLockRemovesStaleFile(t *testing.T) {
	stubSignals(t, map[int]bool{})
	c, _ := newTestController(t)
	c.Lock = true
	os.WriteFile(c.PIDFile, []byte("99999"), 0644)

	c.Stop()
	if _, err := os.Stat(c.PIDFile); !os.IsNotExist(err) {
		t.Error("Unlocked pid file should be removed")
	}
}
