package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeService struct {
	installArgs []string
	calls       []string
	statusErr   error
	startErr    error
}

func (f *fakeService) Install(args ...string) (string, error) {
	f.calls = append(f.calls, "install")
	f.installArgs = args
	return "Install mysql-logger: [  OK  ]", nil
}

func (f *fakeService) Remove() (string, error) {
	f.calls = append(f.calls, "remove")
	return "Removing mysql-logger: [  OK  ]", nil
}

func (f *fakeService) Start() (string, error) {
	f.calls = append(f.calls, "start")
	if f.startErr != nil {
		return "", f.startErr
	}
	return "Starting mysql-logger: [  OK  ]", nil
}

func (f *fakeService) Stop() (string, error) {
	f.calls = append(f.calls, "stop")
	return "Stopping mysql-logger: [  OK  ]", nil
}

func (f *fakeService) Status() (string, error) {
	f.calls = append(f.calls, "status")
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return "Service (pid  1234) is running...", nil
}

func stubService(t *testing.T, fake *fakeService) {
	t.Helper()
	orig := newService
	newService = func() (serviceManager, error) { return fake, nil }
	t.Cleanup(func() { newService = orig })
}

func TestServiceInstall_PassesDaemonArgs(t *testing.T) {
	fake := &fakeService{}
	stubService(t, fake)

	code, stdout, _ := run(t, context.Background(), "service", "install", "--", "-u", "monitor", "-s")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}

	want := "--command start -u monitor -s"
	if got := strings.Join(fake.installArgs, " "); got != want {
		t.Errorf("Install args = %q, want %q", got, want)
	}
	if !strings.Contains(stdout, "Install mysql-logger") {
		t.Errorf("Install result should be shown, got %q", stdout)
	}
}

func TestServiceRemove_StopsFirst(t *testing.T) {
	fake := &fakeService{}
	stubService(t, fake)

	if code, _, _ := run(t, context.Background(), "service", "remove"); code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if strings.Join(fake.calls, ",") != "stop,remove" {
		t.Errorf("Unexpected calls %v", fake.calls)
	}
}

func TestServiceStart_Failure(t *testing.T) {
	fake := &fakeService{startErr: errors.New("Service is not installed")}
	stubService(t, fake)

	code, stdout, _ := run(t, context.Background(), "service", "start")
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stdout, "Service is not installed") {
		t.Errorf("Failure should be shown, got %q", stdout)
	}
}

func TestServiceStatus(t *testing.T) {
	fake := &fakeService{}
	stubService(t, fake)

	code, stdout, _ := run(t, context.Background(), "service", "status")
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}
	if !strings.Contains(stdout, "is running") {
		t.Errorf("Status should be shown, got %q", stdout)
	}

	fake.statusErr = errors.New("Service is not installed")
	if code, _, _ := run(t, context.Background(), "service", "status"); code != 1 {
		t.Errorf("Expected exit code 1 for a missing service, got %d", code)
	}
}

func TestServiceHelpDoesNotFail(t *testing.T) {
	if code, _, _ := run(t, context.Background(), "service", "--help"); code != 0 {
		t.Errorf("Subcommand help should exit 0, got %d", code)
	}
}
