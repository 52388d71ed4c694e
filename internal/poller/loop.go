// Package poller drives the once-per-second processlist poll across every
// connectable instance.
package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	constants "mysqllogger/config"
	"mysqllogger/internal/instances"
	"mysqllogger/internal/logger"
	"mysqllogger/internal/metrics"
	"mysqllogger/internal/processlist"
	"mysqllogger/internal/sink"
)

// Registry yields the instances to poll this tick.
type Registry interface {
	Connectable() []instances.Instance
}

// Querier polls a single instance.
type Querier interface {
	Poll(ctx context.Context, inst instances.Instance) (string, error)
}

// TickError is an unexpected failure that aborted a whole tick.
type TickError struct {
	Value interface{}
	Stack []byte
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick failed: %v", e.Value)
}

// Loop polls every connectable instance in registry order, once per Interval,
// until its context ends. Per-instance and per-tick failures never stop it.
type Loop struct {
	registry Registry
	querier  Querier
	sink     sink.Sink

	Interval time.Duration
	// Diagnostics receives the report for instances that could not be polled.
	Diagnostics io.Writer
	Metrics     *metrics.PollMetrics
	// Heartbeat runs after every tick, successful or not.
	Heartbeat func()
}

// New creates a loop with the default one second interval.
func New(registry Registry, querier Querier, out sink.Sink) *Loop {
	return &Loop{
		registry:    registry,
		querier:     querier,
		sink:        out,
		Interval:    constants.POLL_INTERVAL,
		Diagnostics: os.Stdout,
	}
}

// Run ticks until ctx is cancelled and returns ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if _, err := l.Tick(ctx); err != nil {
			l.reportTickError(err)
		}
		if l.Heartbeat != nil {
			l.Heartbeat()
		}

		timer := time.NewTimer(l.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick polls every connectable instance, hands the combined text to the sink
// and returns it. A panic while polling one instance only drops that
// instance; a panic anywhere else in the tick comes back as *TickError.
func (l *Loop) Tick(ctx context.Context) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &TickError{Value: r, Stack: debug.Stack()}
		}
	}()

	start := time.Now()
	targets := l.registry.Connectable()

	var b strings.Builder
	for _, inst := range targets {
		out, pollErr := l.pollOne(ctx, inst)
		if pollErr != nil {
			l.reportQueryError(inst, pollErr)
			l.Metrics.ObservePoll(inst.Tag(), 0, pollErr)
			continue
		}
		l.Metrics.ObservePoll(inst.Tag(), strings.Count(out, "\n"), nil)
		b.WriteString(out)
	}

	text = b.String()
	l.sink.Emit(text)
	l.Metrics.ObserveTick(time.Since(start), len(targets))
	return text, nil
}

// pollOne polls a single instance. A panic inside the poll is confined to
// this instance and comes back as a *processlist.QueryError.
func (l *Loop) pollOne(ctx context.Context, inst instances.Instance) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Poll of %s (%s) panicked: %v\n%s", inst.Name, inst.Tag(), r, debug.Stack())
			out = ""
			err = &processlist.QueryError{
				Instance: inst.Tag(),
				Message:  fmt.Sprint(r),
				Err:      fmt.Errorf("poll panicked: %v", r),
			}
		}
	}()
	return l.querier.Poll(ctx, inst)
}

func (l *Loop) reportQueryError(inst instances.Instance, err error) {
	var qe *processlist.QueryError
	if errors.As(err, &qe) {
		logger.Warning("Poll of %s (%s) failed: %v", inst.Name, inst.Tag(), qe)
		if l.Diagnostics != nil {
			io.WriteString(l.Diagnostics, qe.Diagnostic())
		}
		return
	}
	logger.Warning("Poll of %s (%s) failed: %v", inst.Name, inst.Tag(), err)
	if l.Diagnostics != nil {
		fmt.Fprintln(l.Diagnostics, err)
	}
}

// reportTickError forwards the failure to the sink. The sink itself may be
// what failed, so a second panic is contained here.
func (l *Loop) reportTickError(err error) {
	l.Metrics.ObserveTickError()

	var te *TickError
	if errors.As(err, &te) {
		logger.Error("%v\n%s", te, te.Stack)
	} else {
		logger.Error("%v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Sink failed while reporting tick error: %v", r)
		}
	}()
	l.sink.Emit(err.Error() + "\n")
}
