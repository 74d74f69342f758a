package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Fetch every PIN in the first column of a CSV file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		pins, err := importer.ParsePinsCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		runner := a.newRunner(ctx)
		job, err := runner.Submit(ctx, pins)
		if err != nil {
			return err
		}
		runner.Wait()

		// an interrupted job still has its progress persisted
		job, err = runner.Get(context.WithoutCancel(ctx), job.ID)
		if err != nil {
			return err
		}
		jobTable(os.Stdout, job).Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
