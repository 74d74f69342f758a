package commands

import (
	"os"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/bids"

	"github.com/spf13/cobra"
)

var (
	setBid     string
	setOverbid string
)

var bidsCmd = &cobra.Command{
	Use:   "bids",
	Short: "Read and record the bid and overbid of properties.",
}

var bidsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every recorded bid.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.bids.List(cmd.Context())
		if err != nil {
			return err
		}
		bidTable(os.Stdout, list).Render()
		return nil
	},
}

var bidsGetCmd = &cobra.Command{
	Use:   "get <pin>",
	Short: "Show the bid of a property.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		bid, err := a.bids.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		bidTable(os.Stdout, []bids.Bid{bid}).Render()
		return nil
	},
}

var bidsSetCmd = &cobra.Command{
	Use:   "set <pin>",
	Short: "Record the bid and/or overbid of a property, an empty value clears it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		current, err := a.bids.Get(ctx, args[0])
		if err != nil {
			return err
		}
		bid, overbid := current.Bid, current.Overbid
		if cmd.Flags().Changed("bid") {
			bid = &setBid
		}
		if cmd.Flags().Changed("overbid") {
			overbid = &setOverbid
		}

		updated, err := a.bids.Upsert(ctx, args[0], bid, overbid)
		if err != nil {
			return err
		}
		bidTable(os.Stdout, []bids.Bid{updated}).Render()
		return nil
	},
}

func init() {
	bidsSetCmd.Flags().StringVar(&setBid, "bid", "", "Bid amount, e.g. 12,500.00")
	bidsSetCmd.Flags().StringVar(&setOverbid, "overbid", "", "Overbid amount.")
	bidsCmd.AddCommand(bidsListCmd, bidsGetCmd, bidsSetCmd)
	rootCmd.AddCommand(bidsCmd)
}
