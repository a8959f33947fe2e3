package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"oracle-panel/internal/app"
)

var (
	backfillFrom   uint64
	backfillTo     uint64
	backfillWindow uint64
	backfillDryRun bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Record confirmations for contract events of past blocks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillTo != 0 && backfillFrom > backfillTo {
			return fmt.Errorf("--from-block must not be after --to-block")
		}
		if backfillWindow == 0 {
			return fmt.Errorf("--window must be greater than zero")
		}

		opts := app.BackfillOptions{
			FromBlock: backfillFrom,
			ToBlock:   backfillTo,
			Window:    backfillWindow,
			DryRun:    backfillDryRun,
		}

		return getApp().Backfill(cmd.Context(), opts)
	},
}

func init() {
	backfillCmd.Flags().Uint64Var(&backfillFrom, "from-block", 0, "First block to scan (inclusive)")
	backfillCmd.Flags().Uint64Var(&backfillTo, "to-block", 0, "Last block to scan (inclusive, defaults to head)")
	backfillCmd.Flags().Uint64Var(&backfillWindow, "window", 5000, "Blocks per log query")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "Log confirmations without writing to storage")
}
