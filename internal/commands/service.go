package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	constants "mysqllogger/config"
	"mysqllogger/internal/service"
	"mysqllogger/internal/ui"
)

// serviceManager is the part of *service.Service the commands use.
type serviceManager interface {
	Install(args ...string) (string, error)
	Remove() (string, error)
	Start() (string, error)
	Stop() (string, error)
	Status() (string, error)
}

// newService is a variable so tests can avoid touching the host's init system.
var newService = func() (serviceManager, error) {
	s, err := service.New()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewServiceCmd creates the service command with subcommands
func NewServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the mysql_logger system service",
		Long: `Manage mysql_logger as a system service (systemd on Linux, launchd on macOS).

The service manager runs the start command in the foreground; it takes care
of detaching and restarting.

Examples:
  mysql_logger service install -- -u monitor -p secret -s
  mysql_logger service start
  mysql_logger service status
  mysql_logger service stop
  mysql_logger service remove`,
	}

	cmd.AddCommand(newServiceInstallCmd())
	cmd.AddCommand(newServiceActionCmd("remove", "Remove the mysql_logger service", "Removing Service", func(s serviceManager) (string, error) {
		// Stop first if running
		s.Stop()
		return s.Remove()
	}))
	cmd.AddCommand(newServiceActionCmd("start", "Start the mysql_logger service", "Starting Service", serviceManager.Start))
	cmd.AddCommand(newServiceActionCmd("stop", "Stop the mysql_logger service", "Stopping Service", serviceManager.Stop))
	cmd.AddCommand(newServiceStatusCmd())

	return cmd
}

func newServiceInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [-- flags]",
		Short: "Install mysql_logger as a system service",
		Long: `Install mysql_logger as a system service. Arguments after "--" are passed
to the daemon, for example credentials and --syslog.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.RenderSectionStart("Installing Service"))
			defer fmt.Fprintln(out, ui.RenderSectionEnd())

			return runService(out, "Installing "+constants.SERVICE_NAME, func(s serviceManager) (string, error) {
				return s.Install(service.InstallArgs(args...)...)
			})
		},
	}
}

func newServiceActionCmd(use, short, title string, action func(serviceManager) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.RenderSectionStart(title))
			defer fmt.Fprintln(out, ui.RenderSectionEnd())

			return runService(out, title, action)
		},
	}
}

func newServiceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the mysql_logger service status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.RenderSectionStart("Service Status"))
			defer fmt.Fprintln(out, ui.RenderSectionEnd())

			svc, err := newService()
			if err != nil {
				ui.PrintStatus(out, "error", fmt.Sprintf("Failed to create service: %v", err))
				return &exitError{code: 1}
			}

			fmt.Fprintln(out, ui.RenderKeyValue("Service", constants.SERVICE_NAME))
			status, err := svc.Status()
			if err != nil {
				ui.PrintStatus(out, "warning", fmt.Sprintf("Status: %v", err))
				return &exitError{code: 1}
			}
			ui.PrintStatus(out, "info", status)
			return nil
		},
	}
}

func runService(out io.Writer, title string, action func(serviceManager) (string, error)) error {
	svc, err := newService()
	if err != nil {
		ui.PrintStatus(out, "error", fmt.Sprintf("Failed to create service: %v", err))
		return &exitError{code: 1}
	}

	if _, err := ui.WithSpinnerResult(out, title, func() (string, error) { return action(svc) }); err != nil {
		return &exitError{code: 1}
	}
	return nil
}
