package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/slideshow-runner/internal/platform"
)

var (
	installUsername        string
	installNoAutostart     bool
	installBlockUntilReady bool
)

// newServiceManager is replaced in tests.
var newServiceManager = platform.NewServiceManager

func serviceManager() (platform.ServiceManager, error) {
	mgr := newServiceManager()
	if !mgr.IsSupported() {
		return nil, fmt.Errorf("service management is not supported on this platform")
	}
	return mgr, nil
}

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install as a user service",
		Long: `Install slideshow-runner as a service that runs "serve".

On Linux, this writes a systemd user unit (Type=notify) and enables it.
On Windows, this installs a Windows Service.`,
		RunE: runInstall,
	}

	cmd.Flags().StringVar(&installUsername, "username", "", "username to run the service as (Windows)")
	cmd.Flags().BoolVar(&installNoAutostart, "no-autostart", false, "do not enable the service at login or boot")
	cmd.Flags().BoolVar(&installBlockUntilReady, "block-until-ready", false, "report ready only once the player is running")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	mgr, err := serviceManager()
	if err != nil {
		return err
	}

	opts := platform.InstallOptions{
		Username:        installUsername,
		ConfigPath:      cfgFile,
		AutoStart:       !installNoAutostart,
		BlockUntilReady: installBlockUntilReady,
	}

	if err := mgr.Install(cmd.Context(), opts); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Service installed successfully.")
	fmt.Fprintln(out, "Use 'slideshow-runner start' to start the service.")
	return nil
}

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the service",
		Long:  `Stop and remove the slideshow-runner service.`,
		RunE:  runUninstall,
	}
}

func runUninstall(cmd *cobra.Command, args []string) error {
	mgr, err := serviceManager()
	if err != nil {
		return err
	}

	if err := mgr.Uninstall(cmd.Context()); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Service uninstalled successfully.")
	return nil
}

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the installed service",
		RunE:  runStart,
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	mgr, err := serviceManager()
	if err != nil {
		return err
	}

	if err := mgr.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Service started.")
	return nil
}

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the installed service",
		RunE:  runStop,
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	mgr, err := serviceManager()
	if err != nil {
		return err
	}

	if err := mgr.Stop(cmd.Context()); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Service stopped.")
	return nil
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Long:  `Display the current status of the slideshow-runner service.`,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, err := serviceManager()
	if err != nil {
		return err
	}

	status, err := mgr.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get service status: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Service Status: %s\n", status.State)
	if status.PID > 0 {
		fmt.Fprintf(out, "PID: %d\n", status.PID)
	}
	if status.StartTime != "" {
		fmt.Fprintf(out, "Start Time: %s\n", status.StartTime)
	}
	if status.Message != "" {
		fmt.Fprintf(out, "Message: %s\n", status.Message)
	}

	return nil
}
