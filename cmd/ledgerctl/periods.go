package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/periods"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
)

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.AddCommand(periodCloseCmd, periodReopenCmd, periodListCmd)
}

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Close, reopen and list accounting periods",
}

var periodCloseCmd = &cobra.Command{
	Use:   "close YEAR [MONTH]",
	Short: "Close a month, or run the year-end close when MONTH is omitted",
	Args:  cobra.RangeArgs(1, 2),
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
		out := cmd.OutOrStdout()
		if month > 0 {
			p, err := rt.services.Close.CloseMonth(cmd.Context(), scope, year, month)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "period %s %s\n", p.Key(), p.Status)
			return nil
		}
		result, err := rt.services.Close.CloseYear(cmd.Context(), scope, year)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "year %d locked, net income %s\n", result.Year, reports.FormatAmount(result.NetIncome, rt.cfg.Currency))
		if result.Journal != nil {
			fmt.Fprintf(out, "closing journal %s\n", result.Journal.Number)
		}
		return nil
	},
}

var periodReopenCmd = &cobra.Command{
	Use:   "reopen YEAR MONTH",
	Short: "Reopen a closed month",
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
		p, err := rt.services.Close.ReopenPeriod(cmd.Context(), scope, year, month)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "period %s %s\n", p.Key(), p.Status)
		return nil
	},
}

var periodListCmd = &cobra.Command{
	Use:   "list YEAR",
	Short: "List the stored periods of a year",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _, err := yearMonth(args)
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
		list, err := rt.services.Periods.List(cmd.Context(), scope, year)
		if err != nil {
			return err
		}
		writePeriods(cmd.OutOrStdout(), list)
		return nil
	},
}

func writePeriods(w io.Writer, list []periods.Period) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no periods")
		return
	}
	for _, p := range list {
		fmt.Fprintf(w, "%-8s %s..%s %s\n", p.Key(), p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly), p.Status)
	}
}
