package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/slideshow-runner/internal/config"
)

var initForce bool

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example config file",
		Long: `Write a commented example config file to the default location, or to
the path given with --config. An existing file is kept unless --force is set.`,
		RunE: runInit,
	}

	cmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.WriteExampleConfig(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote example config to %s\n", path)
	return nil
}
