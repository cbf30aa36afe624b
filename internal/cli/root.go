// Package cli implements the freightctl command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/freightledger/freightledger/internal/config"
)

// Output formats.
const (
	OutputJSON  = "json"
	OutputTable = "table"
)

// tabPadding is the minimum column padding for tabwriter output.
const tabPadding = 2

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configDir string
	envFile   string
	output    string
	verbose   bool
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	opts := config.Options{EnvFile: o.envFile}
	if o.configDir != "" {
		opts.ConfigPaths = []string{o.configDir}
	}
	return config.Load(opts)
}

// logger writes to stderr so stdout stays machine-readable.
func (o *rootOptions) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// NewRootCmd creates the root freightctl command.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "freightctl",
		Short:         "Freight shipment distance, cost and emissions tooling",
		Version:       version,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			switch opts.output {
			case OutputJSON, OutputTable:
				return nil
			}
			return fmt.Errorf("unknown output format %q: must be json or table", opts.output)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configDir, "config", "", "directory containing config.yaml")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", OutputTable, "output format: json or table")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newDistanceCmd(opts),
		newFactorsCmd(opts),
		newShipmentCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

const rootCmdExample = `  # Distance of a road leg, using providers configured in the environment
  freightctl distance --from 19.0760,72.8777 --to 18.5204,73.8567 --mode road

  # Seed the default emission factor catalog into PostgreSQL
  DATABASE_HOST=localhost freightctl factors seed

  # Estimate a shipment from a request file without storing it
  freightctl shipment estimate -f request.yaml -o json

  # Mint an admin token for the HTTP API
  AUTH_SIGNING_KEY=... freightctl token --subject ops@example.com`

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatKm(km float64) string {
	return fmt.Sprintf("%.2f km", km)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
