package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRenderStatus_KeepsMessage(t *testing.T) {
	for _, status := range []string{"success", "warning", "error", "info", "unknown"} {
		got := RenderStatus(status, "mysql_logger is running.")
		if !strings.Contains(got, "mysql_logger is running.") {
			t.Errorf("%s: message lost in %q", status, got)
		}
	}
}

func TestRenderSection_Width(t *testing.T) {
	if !strings.Contains(RenderSectionStart("Service"), "Service") {
		t.Error("Section header should contain its title")
	}
	if !strings.Contains(RenderSectionEnd(), strings.Repeat("─", DefaultWidth)) {
		t.Error("Section footer should span the default width")
	}
}

func TestWithSpinnerResult(t *testing.T) {
	out := &bytes.Buffer{}
	result, err := WithSpinnerResult(out, "Installing", func() (string, error) {
		return "Install mysql-logger:\t\t\t\t\t[  OK  ]", nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(result, "OK") || !strings.Contains(out.String(), "Install mysql-logger") {
		t.Errorf("Result should be reported, got %q", out.String())
	}

	out.Reset()
	_, err = WithSpinnerResult(out, "Removing", func() (string, error) {
		return "", errors.New("Service is not installed")
	})
	if err == nil || !strings.Contains(out.String(), "Service is not installed") {
		t.Errorf("Failure should be reported, got err=%v out=%q", err, out.String())
	}
}
