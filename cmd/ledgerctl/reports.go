package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/shared"
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(tbCmd, plCmd, bsCmd)
	reportCmd.PersistentFlags().String("from", "", "Start date YYYY-MM-DD")
	reportCmd.PersistentFlags().String("to", "", "End or as-of date YYYY-MM-DD (default today)")
	reportCmd.PersistentFlags().Bool("json", false, "Print the report as JSON")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print financial reports from posted journals",
}

var tbCmd = &cobra.Command{
	Use:   "tb",
	Short: "Trial balance, cumulative or for --from/--to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReport(cmd, func(rt *runtime, from, to *time.Time) (any, func(io.Writer, string) error, error) {
			tb, err := rt.services.Reports.TrialBalance(cmd.Context(), mustScope(cmd), reports.Filter{Start: from, End: to})
			return tb, func(w io.Writer, currency string) error { return writeTrialBalance(w, tb, currency) }, err
		})
	},
}

var plCmd = &cobra.Command{
	Use:   "pl",
	Short: "Profit and loss for --from/--to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReport(cmd, func(rt *runtime, from, to *time.Time) (any, func(io.Writer, string) error, error) {
			if from == nil || to == nil {
				return nil, nil, fmt.Errorf("profit and loss requires --from and --to")
			}
			pl, err := rt.services.Reports.ProfitAndLoss(cmd.Context(), mustScope(cmd), *from, *to)
			return pl, func(w io.Writer, currency string) error { return writeProfitAndLoss(w, pl, currency) }, err
		})
	},
}

var bsCmd = &cobra.Command{
	Use:   "bs",
	Short: "Balance sheet as of --to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReport(cmd, func(rt *runtime, from, to *time.Time) (any, func(io.Writer, string) error, error) {
			asOf := time.Now()
			if to != nil {
				asOf = *to
			}
			bs, err := rt.services.Reports.BalanceSheet(cmd.Context(), mustScope(cmd), asOf)
			return bs, func(w io.Writer, currency string) error { return writeBalanceSheet(w, bs, currency) }, err
		})
	},
}

type reportFunc func(rt *runtime, from, to *time.Time) (any, func(io.Writer, string) error, error)

// withReport validates scope and dates, connects, runs load and prints the result.
func withReport(cmd *cobra.Command, load reportFunc) error {
	if _, err := scopeFlags(cmd); err != nil {
		return err
	}
	from, err := dateFlag(cmd, "from")
	if err != nil {
		return err
	}
	to, err := dateFlag(cmd, "to")
	if err != nil {
		return err
	}
	rt, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()
	report, render, err := load(rt, from, to)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return render(cmd.OutOrStdout(), rt.cfg.Currency)
}

// mustScope returns the scope withReport already validated.
func mustScope(cmd *cobra.Command) shared.Scope {
	scope, _ := scopeFlags(cmd)
	return scope
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD", name, raw)
	}
	return &t, nil
}

func writeTrialBalance(w io.Writer, tb reports.TrialBalance, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	if tb.StartDate != nil {
		fmt.Fprintf(tw, "Trial balance %s to %s\t\t\t\n", tb.StartDate.Format(time.DateOnly), tb.EndDate.Format(time.DateOnly))
	} else {
		fmt.Fprintf(tw, "Trial balance as of %s\t\t\t\n", tb.EndDate.Format(time.DateOnly))
	}
	fmt.Fprintln(tw, "Code\tName\tDebit\tCredit\t")
	for _, line := range tb.Accounts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", line.Code, line.Name,
			reports.FormatAmount(line.Debit, currency), reports.FormatAmount(line.Credit, currency))
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t\n", reports.FormatAmount(tb.TotalDebit, currency), reports.FormatAmount(tb.TotalCredit, currency))
	if !tb.IsBalanced {
		fmt.Fprintln(tw, "\tUNBALANCED\t\t\t")
	}
	return tw.Flush()
}

func writeProfitAndLoss(w io.Writer, pl reports.ProfitAndLoss, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Profit and loss %s to %s\t\t\n", pl.StartDate.Format(time.DateOnly), pl.EndDate.Format(time.DateOnly))
	for _, section := range []reports.ProfitAndLossSection{pl.Revenue, pl.COGS, pl.Expense} {
		fmt.Fprintf(tw, "%s\t\t\n", section.Label)
		for _, acc := range section.Accounts {
			fmt.Fprintf(tw, "  %s %s\t%s\t\n", acc.Code, acc.Name, reports.FormatAmount(acc.Amount, currency))
		}
		fmt.Fprintf(tw, "Total %s\t%s\t\n", section.Label, reports.FormatAmount(section.Total, currency))
	}
	fmt.Fprintf(tw, "Gross profit\t%s\t\n", reports.FormatAmount(pl.GrossProfit, currency))
	fmt.Fprintf(tw, "Net income\t%s\t\n", reports.FormatAmount(pl.NetIncome, currency))
	return tw.Flush()
}

func writeBalanceSheet(w io.Writer, bs reports.BalanceSheet, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Balance sheet as of %s\t\t\n", bs.AsOf.Format(time.DateOnly))
	for _, section := range []reports.BalanceSheetSection{bs.Assets, bs.Liabilities, bs.Equity} {
		fmt.Fprintf(tw, "%s\t\t\n", section.Label)
		for _, acc := range section.Accounts {
			fmt.Fprintf(tw, "  %s %s\t%s\t\n", acc.Code, acc.Name, reports.FormatAmount(acc.Balance, currency))
		}
		fmt.Fprintf(tw, "Total %s\t%s\t\n", section.Label, reports.FormatAmount(section.Total, currency))
	}
	fmt.Fprintf(tw, "Unclosed earnings\t%s\t\n", reports.FormatAmount(bs.UnclosedEarnings, currency))
	fmt.Fprintf(tw, "Total liabilities and equity\t%s\t\n", reports.FormatAmount(bs.TotalLiabilitiesAndEquity, currency))
	if !bs.IsBalanced {
		fmt.Fprintln(tw, "UNBALANCED\t\t")
	}
	return tw.Flush()
}
