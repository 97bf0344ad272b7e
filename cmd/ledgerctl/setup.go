package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("file", "f", "", "Chart of accounts TOML (default COA_SEED_FILE)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the ledger schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		if err := db.Migrate(cmd.Context(), rt.pool); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a tenant's chart of accounts and account mappings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := scopeFlags(cmd)
		if err != nil {
			return err
		}
		rt, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = rt.cfg.ChartSeedFile
		}
		chart, err := accounts.LoadChart(path)
		if err != nil {
			return err
		}
		result, err := rt.services.SeedChart(cmd.Context(), scope, chart)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d created, %d existing, %d mappings\n",
			path, result.Created, result.Existing, len(chart.Mappings))
		return nil
	},
}
