package distance

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/freightledger/freightledger/internal/geo"
	"github.com/freightledger/freightledger/internal/routing"
	"github.com/freightledger/freightledger/internal/telemetry"
)

const (
	// DefaultProviderTimeout bounds every provider call.
	DefaultProviderTimeout = 10 * time.Second

	// portMoveTolerance is the coordinate delta in degrees below which an
	// endpoint is considered to already be at its port.
	portMoveTolerance = 0.01
)

// ResolverConfig holds the providers and tuning for a Resolver. Any provider
// may be nil; a nil provider behaves like one that always fails.
type ResolverConfig struct {
	Driving  routing.DrivingProvider
	Transit  routing.TransitProvider
	SeaRoute routing.SeaRouteProvider

	// Ports is the catalog used to snap water legs (default: geo.DefaultPortCatalog).
	Ports *geo.PortCatalog

	// PortRadiusKm is the maximum snapping distance (default: 500).
	PortRadiusKm float64

	// ProviderTimeout bounds each provider call (default: 10s).
	ProviderTimeout time.Duration

	// Cache memoizes provider distances. Optional.
	Cache *Cache

	// Metrics records provider calls and fallbacks. Optional.
	Metrics *Metrics

	Logger zerolog.Logger
}

// Resolver computes leg distances. It never surfaces provider failures: every
// supported mode yields a distance.
type Resolver struct {
	driving      routing.DrivingProvider
	transit      routing.TransitProvider
	seaRoute     routing.SeaRouteProvider
	ports        *geo.PortCatalog
	portRadiusKm float64
	timeout      time.Duration
	cache        *Cache
	metrics      *Metrics
	logger       zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	ports := cfg.Ports
	if ports == nil {
		ports = geo.DefaultPortCatalog()
	}

	radius := cfg.PortRadiusKm
	if radius <= 0 {
		radius = geo.DefaultPortRadiusKm
	}

	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}

	return &Resolver{
		driving:      cfg.Driving,
		transit:      cfg.Transit,
		seaRoute:     cfg.SeaRoute,
		ports:        ports,
		portRadiusKm: radius,
		timeout:      timeout,
		cache:        cfg.Cache,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// CacheStats reports the distance cache size. Zero when caching is off.
func (r *Resolver) CacheStats() CacheStats {
	if r.cache == nil {
		return CacheStats{}
	}
	return r.cache.Stats()
}

// attempt is the outcome of a single provider call.
type attempt struct {
	km       float64
	ok       bool
	err      error
	provider string
	polyline string
}

func failed(err error) attempt {
	return attempt{err: err}
}

// Resolve returns the distance between origin and destination for mode. The
// only error is *InvalidModeError.
func (r *Resolver) Resolve(ctx context.Context, origin, destination geo.Point, mode Mode) (Result, error) {
	if !mode.Valid() {
		return Result{}, &InvalidModeError{Mode: string(mode)}
	}

	ctx, span := telemetry.StartSpan(ctx, "distance.Resolve", attribute.String("transport_mode", string(mode)))
	res := r.resolve(ctx, origin, destination, mode)
	span.SetAttributes(
		attribute.String("distance.method", string(res.Method)),
		attribute.String("distance.provider", res.Provider),
		attribute.Float64("distance.km", res.DistanceKm),
	)
	span.End()
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, origin, destination geo.Point, mode Mode) Result {
	if mode == ModeAir {
		return Result{DistanceKm: geo.Haversine(origin, destination), Method: MethodGeodesic}
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(mode, origin, destination); ok {
			r.metrics.RecordCache(mode, true)
			return cached
		}
		r.metrics.RecordCache(mode, false)
	}

	var res Result
	switch mode {
	case ModeRoad:
		res = r.road(ctx, origin, destination)
	case ModeRail:
		res = r.rail(ctx, origin, destination)
	case ModeWater:
		res = r.water(ctx, origin, destination)
	}

	if r.cache != nil && res.Provider != "" {
		r.cache.Set(mode, origin, destination, res)
	}
	return res
}

func (r *Resolver) road(ctx context.Context, origin, destination geo.Point) Result {
	a := r.drivingAttempt(ctx, origin, destination)
	if a.ok {
		return Result{DistanceKm: a.km, Method: MethodDrivingAPI, Provider: a.provider}
	}

	r.fallback(ModeRoad, MethodGeodesic, a.err)
	return Result{DistanceKm: geo.Haversine(origin, destination), Method: MethodGeodesic}
}

func (r *Resolver) rail(ctx context.Context, origin, destination geo.Point) Result {
	if a := r.railDirectionsAttempt(ctx, origin, destination); a.ok {
		return Result{DistanceKm: a.km, Method: MethodRailDirections, Provider: a.provider, Polyline: a.polyline}
	} else if a.err != nil {
		r.logger.Debug().Err(a.err).Msg("rail directions unavailable, trying transit matrix")
	}

	a := r.railMatrixAttempt(ctx, origin, destination)
	if a.ok {
		return Result{DistanceKm: a.km, Method: MethodRailMatrix, Provider: a.provider}
	}

	r.fallback(ModeRail, MethodGeodesicRail, a.err)
	return Result{
		DistanceKm: geo.Haversine(origin, destination) * RailSinuosity,
		Method:     MethodGeodesicRail,
	}
}

func (r *Resolver) water(ctx context.Context, origin, destination geo.Point) Result {
	fromPort := r.ports.Nearest(origin, r.portRadiusKm)
	toPort := r.ports.Nearest(destination, r.portRadiusKm)

	a := r.seaAttempt(ctx, fromPort.Point, toPort.Point)
	if !a.ok {
		r.fallback(ModeWater, MethodGeodesicSea, a.err)
		return Result{
			DistanceKm: geo.Haversine(origin, destination) * SeaSinuosity,
			Method:     MethodGeodesicSea,
		}
	}

	km := a.km
	if geo.Moved(origin, fromPort.Point, portMoveTolerance) {
		km += geo.Haversine(origin, fromPort.Point)
	}
	if geo.Moved(destination, toPort.Point, portMoveTolerance) {
		km += geo.Haversine(destination, toPort.Point)
	}

	res := Result{DistanceKm: km, Method: MethodSeaRoute, Provider: a.provider, Polyline: a.polyline}
	if fromPort.Port != nil {
		res.OriginPort = fromPort.Port.Name
	}
	if toPort.Port != nil {
		res.DestinationPort = toPort.Port.Name
	}
	return res
}

func (r *Resolver) drivingAttempt(ctx context.Context, origin, destination geo.Point) attempt {
	if r.driving == nil {
		return failed(routing.ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	res, err := r.driving.DrivingDistance(ctx, routing.DrivingRequest{
		Origin:      origin,
		Destination: destination,
		AvoidTolls:  true,
	})
	r.metrics.RecordRequest(r.driving.Name(), "driving_distance", time.Since(start), err)
	if err != nil {
		return failed(err)
	}
	if res == nil || res.DistanceMeters <= 0 {
		return failed(routing.ErrNoRouteFound)
	}
	return attempt{km: res.Km(), ok: true, provider: r.driving.Name()}
}

func (r *Resolver) railDirectionsAttempt(ctx context.Context, origin, destination geo.Point) attempt {
	if r.transit == nil {
		return failed(routing.ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	route, err := r.transit.TransitDirections(ctx, routing.TransitRequest{Origin: origin, Destination: destination})
	r.metrics.RecordRequest(r.transit.Name(), "transit_directions", time.Since(start), err)
	if err != nil {
		return failed(err)
	}
	if route == nil {
		return failed(routing.ErrNoRouteFound)
	}

	km, found := route.DistanceKm()
	if !found || km <= 0 {
		return failed(routing.ErrNoRouteFound)
	}
	return attempt{km: km, ok: true, provider: r.transit.Name(), polyline: route.Polyline}
}

func (r *Resolver) railMatrixAttempt(ctx context.Context, origin, destination geo.Point) attempt {
	if r.transit == nil {
		return failed(routing.ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	res, err := r.transit.TransitDistance(ctx, routing.TransitRequest{Origin: origin, Destination: destination})
	r.metrics.RecordRequest(r.transit.Name(), "transit_distance", time.Since(start), err)
	if err != nil {
		return failed(err)
	}
	if res == nil || res.DistanceMeters <= 0 {
		return failed(routing.ErrNoRouteFound)
	}
	return attempt{km: res.Km(), ok: true, provider: r.transit.Name()}
}

func (r *Resolver) seaAttempt(ctx context.Context, fromPort, toPort geo.Point) attempt {
	if r.seaRoute == nil {
		return failed(routing.ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	route, err := r.seaRoute.SeaRoute(ctx, fromPort, toPort)
	r.metrics.RecordRequest(r.seaRoute.Name(), "sea_route", time.Since(start), err)
	if err != nil {
		return failed(err)
	}
	if route == nil || route.LengthKm < 0 {
		return failed(routing.ErrNoRouteFound)
	}
	return attempt{km: route.LengthKm, ok: true, provider: r.seaRoute.Name(), polyline: route.Polyline}
}

func (r *Resolver) fallback(mode Mode, method Method, err error) {
	r.metrics.RecordFallback(mode, method)

	event := r.logger.Warn()
	if errors.Is(err, routing.ErrNotConfigured) {
		event = r.logger.Debug()
	}
	event.
		Err(err).
		Str("mode", string(mode)).
		Str("method", string(method)).
		Msg("distance provider failed, using analytic fallback")
}
