package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var staleLimit int

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the property cache.",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [pin]",
	Short: "Remove the cached records of a PIN, or of every PIN when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		pinStr := ""
		if len(args) == 1 {
			pinStr = args[0]
		}
		removed, err := a.lookup.ClearCache(cmd.Context(), pinStr)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d entries\n", removed)
		return nil
	},
}

var cacheStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List cached records older than the cache's max age.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.store.ListStale(cmd.Context(), staleLimit)
		if err != nil {
			return err
		}
		staleTable(os.Stdout, entries, a.time.Now()).Render()
		return nil
	},
}

func init() {
	cacheStaleCmd.Flags().IntVar(&staleLimit, "limit", 100, "Maximum number of entries to list.")
	cacheCmd.AddCommand(cacheClearCmd, cacheStaleCmd)
	rootCmd.AddCommand(cacheCmd)
}
