package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SimpleSpinner is a non-blocking terminal spinner
type SimpleSpinner struct {
	out     io.Writer
	frames  []string
	current int
	message string
	done    chan struct{}
	stopped chan struct{}
}

// NewSimpleSpinner creates a spinner writing to out
func NewSimpleSpinner(out io.Writer, message string) *SimpleSpinner {
	return &SimpleSpinner{
		out:     out,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start starts the spinner animation
func (s *SimpleSpinner) Start() {
	go func() {
		defer close(s.stopped)
		style := lipgloss.NewStyle().Foreground(PrimaryColor)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for {
			fmt.Fprintf(s.out, "\r  %s %s", style.Render(s.frames[s.current]), WhiteStyle.Render(s.message))
			s.current = (s.current + 1) % len(s.frames)
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop stops the spinner and clears the line
func (s *SimpleSpinner) Stop() {
	close(s.done)
	<-s.stopped
	fmt.Fprint(s.out, "\r\033[K")
}

// WithSpinnerResult runs fn behind a spinner and reports its result as a
// status line.
func WithSpinnerResult(out io.Writer, message string, fn func() (string, error)) (string, error) {
	spinner := NewSimpleSpinner(out, message)
	spinner.Start()
	result, err := fn()
	spinner.Stop()
	if err != nil {
		PrintStatus(out, "error", err.Error())
		return result, err
	}
	PrintStatus(out, "success", result)
	return result, nil
}
