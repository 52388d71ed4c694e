// Package commands builds the mysql_logger command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	constants "mysqllogger/config"
	"mysqllogger/internal/config"
	"mysqllogger/internal/logger"
	"mysqllogger/internal/process"
)

// exitError carries a process exit code out of a RunE.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the command line in args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	return ExecuteContext(context.Background(), args, stdout, stderr)
}

// ExecuteContext is Execute with a parent context for the poll loop.
func ExecuteContext(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := 0
	root := NewRootCmd(&code)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return code
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	// Flag parsing and unknown commands end up here.
	fmt.Fprintln(stderr, err)
	root.SetOut(stderr)
	root.Usage()
	return 1
}

// NewRootCmd creates the root command. Asking for help sets *code to 1.
func NewRootCmd(code *int) *cobra.Command {
	root := &cobra.Command{
		Use:   constants.APP_NAME,
		Short: "Log MySQL processlist snapshots once a second",
		Long: `mysql_logger polls SHOW FULL PROCESSLIST on every MySQL instance listed in
my.cnf once a second and writes the active sessions to stdout or syslog.`,
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			if rc := runRoot(cmd); rc != 0 {
				return &exitError{code: rc}
			}
			return nil
		},
	}

	config.RegisterFlags(root.Flags())

	defaultHelp := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		defaultHelp(cmd, args)
		if cmd == root {
			*code = 1
		}
	})

	root.AddCommand(NewServiceCmd())
	return root
}

func runRoot(cmd *cobra.Command) int {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		var invalid *config.InvalidCommandError
		if errors.As(err, &invalid) {
			fmt.Fprintln(out, invalid.Error())
			cmd.Usage()
			return 1
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Error loading config: %v\n", err)
		return 1
	}

	if err := resolvePaths(&cfg); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error resolving paths: %v\n", err)
		return 1
	}

	logger.Init(cfg.LogFile)

	ctrl := process.NewController(cfg.PIDFile)
	ctrl.Detach = cfg.Daemonize
	ctrl.Lock = cfg.LockPIDFile
	ctrl.Out = out

	switch cfg.Command {
	case constants.COMMAND_STOP:
		return ctrl.Stop()
	case constants.COMMAND_STATUS:
		return ctrl.Status()
	default:
		return runStart(cmd.Context(), cfg, ctrl, out)
	}
}

// resolvePaths makes file paths absolute. The detached daemon runs from "/",
// so a relative pid file would otherwise end up somewhere else.
func resolvePaths(cfg *config.Config) error {
	for _, p := range []*string{&cfg.PIDFile, &cfg.MyCnf, &cfg.LogFile} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return err
		}
		*p = abs
	}
	return nil
}
