package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/spellbook/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the effective configuration as YAML.

Values come from environment variables (SPELLBOOK_*), then config.yaml in the
data directory, then built-in defaults. Use --init to write the current values
to config.yaml as a starting point.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configInit bool

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Write config.yaml if it does not exist")
}

func runConfig(cmd *cobra.Command, args []string) error {
	const name = "config"

	cfg, err := config.Load()
	if err != nil {
		return trackCLIError(name, fmt.Errorf("load config: %w", err))
	}
	out := cmd.OutOrStdout()

	if configInit {
		path := config.GetPaths(cfg).Config
		if _, err := os.Stat(path); err == nil {
			return trackCLIError(name, fmt.Errorf("config file %s already exists", path))
		}
		if err := config.WriteFile(path, cfg); err != nil {
			return trackCLIError(name, fmt.Errorf("write config: %w", err))
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("✓ Wrote "+path))
		return nil
	}

	data, err := config.Dump(cfg)
	if err != nil {
		return trackCLIError(name, fmt.Errorf("encode config: %w", err))
	}
	_, _ = fmt.Fprint(out, string(data))
	return nil
}
