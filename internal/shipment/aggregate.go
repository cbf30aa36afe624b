package shipment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/geo"
	"github.com/freightledger/freightledger/internal/goods"
)

// DefaultLegConcurrency bounds concurrent distance resolutions per shipment.
const DefaultLegConcurrency = 4

// ResolveFunc resolves the distance of one leg.
type ResolveFunc func(ctx context.Context, origin, destination geo.Point, mode distance.Mode) (distance.Result, error)

// EmissionsFunc computes emissions for one leg. found is false when no
// emission factor matches.
type EmissionsFunc func(mode distance.Mode, vehicleType string, massKg, distanceKm float64) (kg float64, found bool)

// AggregateOptions tunes Aggregate.
type AggregateOptions struct {
	Concurrency int
	Logger      zerolog.Logger
	Now         func() time.Time
}

// Aggregate computes a shipment from its good and leg requests. Distances are
// resolved concurrently; accumulation happens in declared leg order so the
// totals do not depend on scheduling. The returned shipment has no ID.
func Aggregate(ctx context.Context, good goods.Good, reqs []LegRequest, resolve ResolveFunc, emissionsFn EmissionsFunc, opts AggregateOptions) (*Shipment, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultLegConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	// Unknown categories would be booked to the wrong bucket and stored in a
	// form that no longer decodes.
	if err := goods.Validate(good); err != nil {
		return nil, &CreationError{Leg: -1, Cause: err}
	}

	modes := make([]distance.Mode, len(reqs))
	for i, req := range reqs {
		m, err := distance.ParseMode(req.Mode)
		if err != nil {
			return nil, &CreationError{Leg: i, Cause: err}
		}
		modes[i] = m
	}

	resolved := make([]distance.Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, req := range reqs {
		if d := manualDistance(req); d > 0 {
			resolved[i] = distance.Result{DistanceKm: d, Method: distance.MethodManual}
			continue
		}
		g.Go(func() error {
			res, err := resolve(gctx, req.From.Point(), req.To.Point(), modes[i])
			if err != nil {
				return &CreationError{Leg: i, Cause: err}
			}
			resolved[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := opts.Now().UTC()
	massKg := good.MassKg()
	good.Category = good.Category.OrDefault()

	s := &Shipment{
		Good:      good,
		Legs:      make([]Leg, 0, len(reqs)),
		CreatedAt: now,
	}

	for i, req := range reqs {
		res := resolved[i]

		if !req.CostType.Valid() {
			opts.Logger.Debug().
				Int("leg", i).
				Str("cost_type", string(req.CostType)).
				Msg("unknown cost type, applying value as total")
		}
		cost := AllocateCost(req.CostType, req.CostValue, massKg)

		kg, found := emissionsFn(modes[i], req.VehicleType, massKg, res.DistanceKm)

		s.Legs = append(s.Legs, Leg{
			ID:             "leg_" + uuid.New().String()[:22],
			From:           req.From.WithDefaults(),
			To:             req.To.WithDefaults(),
			Mode:           modes[i],
			VehicleType:    req.VehicleType,
			DistanceKm:     res.DistanceKm,
			DistanceMethod: res.Method,
			CostType:       req.CostType,
			CostValue:      req.CostValue,
			ManualDistance: res.Method == distance.MethodManual,
			Cost:           cost,
			EmissionsKg:    kg,
			FactorFound:    found,
			CreatedAt:      now,
		})

		s.TotalDistance += res.DistanceKm
		s.TotalCost += cost
		if found {
			s.TotalEmissions += kg
		}
	}

	attributeTotals(s)
	return s, nil
}

// attributeTotals assigns the shipment totals to the good's category bucket.
// Attribution is shipment-wide; legs are not split across categories.
func attributeTotals(s *Shipment) {
	switch s.Good.Category {
	case goods.CategoryDownstream:
		s.DownstreamCost = s.TotalCost
		s.DownstreamEmissions = s.TotalEmissions
	case goods.CategoryCompanyOwned:
		s.CompanyOwnedCost = s.TotalCost
		s.CompanyOwnedEmissions = s.TotalEmissions
	default:
		s.UpstreamCost = s.TotalCost
		s.UpstreamEmissions = s.TotalEmissions
	}
}

func manualDistance(req LegRequest) float64 {
	if req.ManualDistance == nil {
		return 0
	}
	return *req.ManualDistance
}
