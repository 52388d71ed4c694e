// Package sink delivers each tick's text to stdout or the system log.
package sink

import (
	"io"
	"log/syslog"
	"os"
	"strings"

	constants "mysqllogger/config"
)

// Sink receives the rendered text of one tick.
type Sink interface {
	Emit(text string)
}

type syncer interface {
	Sync() error
}

// Console writes text verbatim and flushes after every tick.
type Console struct {
	out io.Writer
}

// NewConsole creates a console sink on stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter creates a console sink on w.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Emit writes text and flushes the underlying file when there is one.
func (c *Console) Emit(text string) {
	if text == "" {
		return
	}
	io.WriteString(c.out, text)
	if s, ok := c.out.(syncer); ok {
		s.Sync()
	}
}

// lineWriter is the part of *syslog.Writer the sink uses.
type lineWriter interface {
	Info(m string) error
	Close() error
}

// Syslog sends each line as its own INFO message tagged mysql_logger.
// Delivery is best effort: transport failures are dropped.
type Syslog struct {
	dial func() (lineWriter, error)
}

// NewSyslog creates a sink on the local system log.
func NewSyslog() *Syslog {
	return &Syslog{dial: func() (lineWriter, error) {
		// log/syslog always adds the pid to the tag.
		return syslog.New(syslog.LOG_INFO|syslog.LOG_USER, constants.SYSLOG_TAG)
	}}
}

// Emit opens a session per non-empty line, escaping % first.
func (s *Syslog) Emit(text string) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		s.send(Escape(line))
	}
}

func (s *Syslog) send(msg string) {
	defer func() { recover() }()

	w, err := s.dial()
	if err != nil {
		return
	}
	defer w.Close()
	w.Info(msg)
}

// Escape protects % from transports that treat it as a format directive.
func Escape(line string) string {
	return strings.ReplaceAll(line, "%", `\%`)
}
