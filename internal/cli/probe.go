package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/slideshow-runner/internal/slideshow"
)

var probeJSON bool

const probeTimeout = 10 * time.Second

// NewProbeCmd creates the probe command.
func NewProbeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run the monitor probe once",
		Long: `Run the configured monitor probe once and print what it reports.

Useful for checking which outputs the supervisor will consider active
before installing the service.`,
		RunE: runProbe,
	}

	cmd.Flags().BoolVar(&probeJSON, "json", false, "output in JSON format")

	return cmd
}

type probeResult struct {
	Method   string   `json:"method"`
	Raw      any      `json:"raw"`
	Monitors []string `json:"monitors"`
	Ready    bool     `json:"ready"`
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	probe, err := newProbe(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
	defer cancel()

	raw, err := probe.Probe(ctx)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}

	monitors := slideshow.NormalizeMonitors(raw)
	res := probeResult{
		Method:   cfg.Probe.Method,
		Raw:      raw,
		Monitors: monitors,
		Ready:    len(monitors) > 0,
	}

	out := cmd.OutOrStdout()
	if probeJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal probe result: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintf(out, "Probe method: %s\n", res.Method)
	fmt.Fprintf(out, "Raw result: %#v\n", res.Raw)
	if !res.Ready {
		fmt.Fprintln(out, "No active monitors.")
		return nil
	}
	fmt.Fprintln(out, "Active monitors:")
	for _, m := range res.Monitors {
		fmt.Fprintf(out, "  %s\n", m)
	}
	return nil
}
