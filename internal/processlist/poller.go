// Package processlist polls one MySQL instance for its session list and renders
// the sessions worth logging, one line each.
package processlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	constants "mysqllogger/config"
	"mysqllogger/internal/instances"
)

// ignoredCommands are session states that carry no activity.
var ignoredCommands = map[string]bool{
	"Sleep":       true,
	"Connect":     true,
	"Binlog Dump": true,
	"Daemon":      true,
}

// Poller renders the processlist of a single instance.
type Poller struct {
	Fetcher Fetcher
	Query   string
	// Timestamp prefixes each line with the local time. The syslog sink
	// stamps lines itself, so it is off there.
	Timestamp bool
	Now       func() time.Time
}

// NewPoller creates a poller running the processlist query through f.
func NewPoller(f Fetcher, timestamp bool) *Poller {
	return &Poller{
		Fetcher:   f,
		Query:     constants.PROCESSLIST_QUERY,
		Timestamp: timestamp,
		Now:       time.Now,
	}
}

// Poll returns the rendered lines for inst, or a *QueryError. The caller
// treats an error as "nothing from this instance this tick".
func (p *Poller) Poll(ctx context.Context, inst instances.Instance) (string, error) {
	rows, err := p.Fetcher.Fetch(ctx, inst, p.Query)
	if err != nil {
		var qe *QueryError
		if errors.As(err, &qe) {
			return "", qe
		}
		return "", newQueryError(inst, err)
	}

	var b strings.Builder
	for _, row := range rows {
		if p.Skip(row) {
			continue
		}
		p.writeLine(&b, inst, row)
	}
	return b.String(), nil
}

// Skip reports whether row is idle noise or the poll query itself.
func (p *Poller) Skip(row Row) bool {
	if cmd, ok := row.Get("Command"); ok && ignoredCommands[render(cmd)] {
		return true
	}
	if info, ok := row.Get("Info"); ok && info != nil && render(info) == p.Query {
		return true
	}
	return false
}

func (p *Poller) writeLine(b *strings.Builder, inst instances.Instance, row Row) {
	if p.Timestamp {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		b.WriteString(now().Format(constants.TIMESTAMP_FORMAT))
		b.WriteString(" - ")
	}
	b.WriteString(inst.Tag())
	b.WriteByte(' ')
	for i, col := range row.Columns {
		var v interface{}
		if i < len(row.Values) {
			v = row.Values[i]
		}
		fmt.Fprintf(b, "%s=\"%s\" ", col, render(v))
	}
	b.WriteByte('\n')
}

// render turns a scanned value into text. Text values have embedded
// newlines joined with spaces so every session stays on one line.
func render(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return joinLines(string(val))
	case string:
		return joinLines(val)
	case time.Time:
		return val.Format(constants.TIMESTAMP_FORMAT)
	default:
		return fmt.Sprint(val)
	}
}

func joinLines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	parts := strings.Split(s, "\n")
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, " ")
}
