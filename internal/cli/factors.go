package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/freightledger/freightledger/internal/app"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/emissions"
)

func newFactorsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factors",
		Short: "Manage the emission factor catalog",
	}
	cmd.AddCommand(newFactorsSeedCmd(root), newFactorsListCmd(root))
	return cmd
}

func newFactorsSeedCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the default emission factors into PostgreSQL",
		Long: `Stores the default emission factor catalog when the emission_factors
table is empty. A catalog that already holds factors is left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.DatabaseEnabled() {
				return errors.New("factors seed needs a database: set DATABASE_HOST")
			}

			a, err := app.New(cmd.Context(), cfg, app.Options{}, root.logger())
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Factors.SeedDefaults(cmd.Context())
			if err != nil {
				return err
			}

			if root.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"inserted": n})
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog already seeded, nothing inserted")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d emission factors\n", n)
			return nil
		},
	}
}

func newFactorsListCmd(root *rootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List emission factors",
		Long: `Lists the emission factors in the configured database. Without a
database the default catalog is listed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter distance.Mode
			if mode != "" {
				m, err := distance.ParseMode(mode)
				if err != nil {
					return err
				}
				filter = m
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, app.Options{}, root.logger())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Pool == nil {
				if _, err := a.Factors.SeedDefaults(cmd.Context()); err != nil {
					return err
				}
			}

			all, err := a.Factors.List(cmd.Context())
			if err != nil {
				return err
			}

			factors := make([]*emissions.Factor, 0, len(all))
			for _, f := range all {
				if filter == "" || f.Mode == filter {
					factors = append(factors, f)
				}
			}

			if root.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), factors)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintln(tw, "MODE\tVEHICLE TYPE\tFACTOR\tUNIT")
			for _, f := range factors {
				fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", f.Mode, f.VehicleType, f.Value, f.Unit)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "only list factors for this transport mode")
	return cmd
}
