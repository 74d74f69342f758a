package commands

import (
	"os"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/aggregate"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/spf13/cobra"
)

var (
	fetchSource string
	fetchJSON   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <pin>",
	Short: "Look up a property and print what each source returned.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var slots []aggregate.Slot
		if fetchSource != "" {
			kind, err := property.ParseSourceKind(fetchSource)
			if err != nil {
				return err
			}
			res, err := a.lookup.FetchSource(ctx, args[0], kind)
			if err != nil {
				return err
			}
			slots = []aggregate.Slot{{Source: kind, Result: res}}
		} else {
			agg, err := a.coordinator.FetchAggregated(ctx, args[0])
			if err != nil {
				return err
			}
			slots = agg.Slots
		}

		if fetchJSON {
			records := make([]property.Record, len(slots))
			for i, slot := range slots {
				records[i] = slot.Record
			}
			return printJSON(os.Stdout, records)
		}
		slotTable(os.Stdout, slots).Render()
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchSource, "source", "s", "", "Only query this source (tax-portal, clerk, recorder, gis).")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print the records as JSON instead of a table.")
	rootCmd.AddCommand(fetchCmd)
}
