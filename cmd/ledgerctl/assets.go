package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
)

func init() {
	rootCmd.AddCommand(depreciationCmd)
	depreciationCmd.AddCommand(depreciationRunCmd)
}

var depreciationCmd = &cobra.Command{
	Use:   "depreciation",
	Short: "Fixed asset depreciation",
}

var depreciationRunCmd = &cobra.Command{
	Use:   "run YEAR MONTH",
	Short: "Depreciate every active asset for one month",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, month, err := yearMonth(args)
		if err != nil {
			return err
		}
		scope, err := scopeFlags(cmd)
		if err != nil {
			return err
		}
		rt, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		result, err := rt.services.Assets.RunDepreciation(cmd.Context(), scope, periods.MonthKey(year, month))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d recorded, %d skipped, total %s\n", result.Period, len(result.Recorded), result.Skipped,
			reports.FormatAmount(result.TotalAmount, rt.cfg.Currency))
		for _, failure := range result.Failed {
			fmt.Fprintf(out, "failed %s: %s\n", failure.Number, failure.Error)
		}
		if len(result.Failed) > 0 {
			return fmt.Errorf("%d assets failed", len(result.Failed))
		}
		return nil
	},
}
