package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"mysqllogger/internal/config"
	"mysqllogger/internal/instances"
	"mysqllogger/internal/logger"
	"mysqllogger/internal/metrics"
	"mysqllogger/internal/poller"
	"mysqllogger/internal/process"
	"mysqllogger/internal/processlist"
	"mysqllogger/internal/service"
	"mysqllogger/internal/sink"
)

func runStart(parent context.Context, cfg config.Config, ctrl *process.Controller, out io.Writer) int {
	if parent == nil {
		parent = context.Background()
	}

	registry, err := instances.Load(cfg.MyCnf)
	if err != nil {
		logger.Error("%v", err)
		fmt.Fprintln(out, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ctrl.OnReady = func() {
		service.NotifyReady()
		service.NotifyStatus(fmt.Sprintf("Polling %d instances", len(registry.Instances())))
	}

	code, err := ctrl.Start(ctx, func(ctx context.Context) error {
		return runDaemon(ctx, cfg, registry)
	})
	if err != nil {
		logger.Error("%v", err)
		fmt.Fprintln(out, err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

// runDaemon polls until ctx ends. It runs in the final, possibly detached,
// process with the pid file already written.
func runDaemon(ctx context.Context, cfg config.Config, registry *instances.Registry) (err error) {
	defer func() {
		logger.Info("=== DAEMON EXITING - PID: %d ===", os.Getpid())
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("=== PANIC DETECTED ===")
			logger.Error("Panic value: %v", r)
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logger.Error("Stack trace:\n%s", string(buf[:n]))
			err = fmt.Errorf("daemon panic: %v", r)
		}
	}()
	defer service.NotifyStopping()

	logger.Info("=== DAEMON STARTING - PID: %d ===", os.Getpid())
	logger.Info("  Config: %s", registry.Path())
	logger.Info("  Instances: %d", len(registry.Instances()))
	for _, inst := range registry.Instances() {
		logger.Info("    %s %s", inst.Name, inst.Tag())
	}

	var out sink.Sink = sink.NewConsole()
	if cfg.Syslog {
		out = sink.NewSyslog()
		logger.Info("  Output: syslog")
	} else {
		logger.Info("  Output: stdout")
	}

	m := metrics.NewPollMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error("Metrics listener failed: %v", err)
			}
		}()
	}

	querier := processlist.NewPoller(processlist.NewSQLFetcher(cfg.DBUser, cfg.DBPass), !cfg.Syslog)
	loop := poller.New(registry, querier, out)
	loop.Metrics = m
	loop.Heartbeat = service.NotifyWatchdog

	return loop.Run(ctx)
}
