package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/freightledger/freightledger/internal/app"
	"github.com/freightledger/freightledger/internal/goods"
	"github.com/freightledger/freightledger/internal/shipment"
)

func newShipmentCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipment",
		Short: "Compute shipments",
	}
	cmd.AddCommand(newShipmentEstimateCmd(root))
	return cmd
}

func newShipmentEstimateCmd(root *rootOptions) *cobra.Command {
	var (
		file    string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Compute a shipment from a YAML request without storing it",
		Long: `Reads a shipment request (good plus transport legs) from a YAML file and
prints its distance, cost and emissions. Nothing is persisted. Factors come
from the configured database, or the default catalog when none is set.`,
		Example: `  freightctl shipment estimate -f request.yaml

  # request.yaml
  good:
    name: Cement
    quantity: 12
    unit: tons
    ghg_category: upstream
  transport_legs:
    - from_location: {address: Mumbai, latitude: 19.076, longitude: 72.8777}
      to_location: {address: Pune, latitude: 18.5204, longitude: 73.8567}
      transport_mode: road
      vehicle_type: Heavy Truck
      cost_type: per_ton
      cost_value: 850`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := readCreateRequest(file)
			if err != nil {
				return err
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if offline {
				cfg.Providers.GoogleMapsAPIKey = ""
				cfg.Providers.ORSAPIKey = ""
				cfg.Providers.SeaRouteURL = ""
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

			shp, err := a.Shipments.Estimate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if root.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), shp)
			}
			return writeShipmentTable(cmd, shp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML shipment request")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip routing providers")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readCreateRequest loads and checks a YAML shipment request.
func readCreateRequest(path string) (shipment.CreateRequest, error) {
	var req shipment.CreateRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading request: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parsing request %s: %w", path, err)
	}

	if err := goods.Validate(req.Good); err != nil {
		var (
			verr   *goods.ValidationError
			fields string
		)
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				fields += fmt.Sprintf("\n  good.%s: %s", fe.Field, fe.Message)
			}
		}
		return req, fmt.Errorf("invalid good in %s:%s", path, fields)
	}
	if len(req.Legs) == 0 {
		return req, fmt.Errorf("%s has no transport_legs", path)
	}

	req.Good.Category = req.Good.Category.OrDefault()
	for i := range req.Legs {
		req.Legs[i].From = req.Legs[i].From.WithDefaults()
		req.Legs[i].To = req.Legs[i].To.WithDefaults()
	}
	return req, nil
}

func writeShipmentTable(cmd *cobra.Command, shp *shipment.Shipment) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Good: %s (%g %s, %s)\n\n", shp.Good.Name, shp.Good.Quantity, shp.Good.Unit, shp.Good.Category)

	tw := tabwriter.NewWriter(out, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "#\tMODE\tVEHICLE\tDISTANCE\tMETHOD\tCOST\tEMISSIONS (kg)")
	for i, leg := range shp.Legs {
		vehicle := leg.VehicleType
		if !leg.FactorFound {
			vehicle += " (no factor)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.2f\t%.3f\n",
			i+1, leg.Mode, orDash(vehicle), formatKm(leg.DistanceKm), leg.DistanceMethod, leg.Cost, leg.EmissionsKg)
	}
	fmt.Fprintf(tw, "\tTOTAL\t\t%s\t\t%.2f\t%.3f\n", formatKm(shp.TotalDistance), shp.TotalCost, shp.TotalEmissions)
	return tw.Flush()
}
