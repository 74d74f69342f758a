package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/telemetry"

	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

var (
	configPath string
	verbose    bool
	dumpDir    string

	// cfg is loaded before any subcommand runs.
	cfg Config
)

var rootCmd = &cobra.Command{
	Use:          "cookcounty",
	Short:        "cookcounty aggregates Cook County property records from the county's public sites.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if dumpDir != "" {
			loaded.Fetch.DumpDir = dumpDir
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "Path of the config file, a sibling .local file overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVar(&dumpDir, "dump-dir", "", "Write every upstream exchange under this directory.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
