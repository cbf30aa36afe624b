package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/freightledger/freightledger/internal/app"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/geo"
)

func newDistanceCmd(root *rootOptions) *cobra.Command {
	var (
		from, to, mode string
		offline        bool
	)

	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Resolve the distance of a single leg",
		Long: `Resolves the distance between two coordinates for a transport mode.

Routing providers are taken from the configuration. With --offline no
provider is called and the geodesic fallback for the mode is used.`,
		Example: `  freightctl distance --from 22.5726,88.3639 --to 25.5941,85.1376 --mode rail
  freightctl distance --from 18.94,72.84 --to 13.08,80.27 --mode water --offline -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			origin, err := parsePoint(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			destination, err := parsePoint(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			m, err := distance.ParseMode(mode)
			if err != nil {
				return err
			}

			resolver, cleanup, err := newResolver(cmd.Context(), root, offline)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := resolver.Resolve(cmd.Context(), origin, destination, m)
			if err != nil {
				return err
			}

			if root.output == OutputJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					TransportMode distance.Mode `json:"transport_mode"`
					distance.Result
				}{m, res})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mode:     %s\n", m)
			fmt.Fprintf(out, "Distance: %s\n", formatKm(res.DistanceKm))
			fmt.Fprintf(out, "Method:   %s\n", res.Method)
			fmt.Fprintf(out, "Provider: %s\n", orDash(res.Provider))
			if res.OriginPort != "" || res.DestinationPort != "" {
				fmt.Fprintf(out, "Ports:    %s -> %s\n", orDash(res.OriginPort), orDash(res.DestinationPort))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "origin as lat,lon")
	cmd.Flags().StringVar(&to, "to", "", "destination as lat,lon")
	cmd.Flags().StringVar(&mode, "mode", "road", "transport mode: road, rail, air or water")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip routing providers")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newResolver(ctx context.Context, root *rootOptions, offline bool) (*distance.Resolver, func(), error) {
	logger := root.logger()
	if offline {
		return distance.NewResolver(distance.ResolverConfig{Logger: logger}), func() {}, nil
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	// Distances never touch storage.
	cfg.Database.Host = ""

	a, err := app.New(ctx, cfg, app.Options{}, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Resolver, a.Close, nil
}

// parsePoint parses "lat,lon".
func parsePoint(s string) (geo.Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("expected lat,lon, got %q", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid longitude %q", lonStr)
	}

	if lat < -90 || lat > 90 {
		return geo.Point{}, fmt.Errorf("latitude %g out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return geo.Point{}, fmt.Errorf("longitude %g out of range", lon)
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}
