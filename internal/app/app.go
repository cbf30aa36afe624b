// Package app wires configuration into the stores, routing providers and
// services shared by the API server and freightctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/config"
	"github.com/freightledger/freightledger/internal/database"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/emissions"
	"github.com/freightledger/freightledger/internal/events"
	"github.com/freightledger/freightledger/internal/goods"
	"github.com/freightledger/freightledger/internal/location"
	"github.com/freightledger/freightledger/internal/provider/resilience"
	"github.com/freightledger/freightledger/internal/routing"
	"github.com/freightledger/freightledger/internal/routing/googlemaps"
	"github.com/freightledger/freightledger/internal/routing/openrouteservice"
	"github.com/freightledger/freightledger/internal/routing/searoute"
	"github.com/freightledger/freightledger/internal/shipment"
)

// NewLogger builds the process logger from the app section.
func NewLogger(cfg config.AppConfig, service, version string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.LogFormat, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Logger()
}

// Options controls which parts of the application are built.
type Options struct {
	// Metrics enables OpenTelemetry instruments on the distance resolver.
	Metrics bool

	// Events builds the configured event publisher. When false shipments
	// are created without publishing.
	Events bool
}

// App holds the wired services. Close releases the database pool and the
// event publisher.
type App struct {
	Pool      *pgxpool.Pool // Nil when running on in-memory stores
	Providers *resilience.Registry
	Resolver  *distance.Resolver
	Geocoder  routing.Geocoder // Nil when no geocoding key is configured
	Publisher events.Publisher

	Goods     *goods.Service
	Factors   *emissions.Service
	Shipments *shipment.Service
	Locations *location.Service

	logger zerolog.Logger
}

// New connects the configured backends and builds every service.
func New(ctx context.Context, cfg *config.Config, opts Options, logger zerolog.Logger) (*App, error) {
	a := &App{
		Providers: resilience.NewRegistry(),
		Publisher: events.NoopPublisher{},
		logger:    logger,
	}

	goodsRepo, factorRepo, shipmentRepo, err := a.stores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var resolverMetrics *distance.Metrics
	if opts.Metrics {
		resolverMetrics, err = distance.NewMetrics()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("creating distance metrics: %w", err)
		}
	}

	driving, transit, sea, geocoder := a.routingProviders(cfg.Providers)
	a.Geocoder = geocoder
	a.Resolver = distance.NewResolver(distance.ResolverConfig{
		Driving:         driving,
		Transit:         transit,
		SeaRoute:        sea,
		PortRadiusKm:    cfg.Engine.PortRadiusKm,
		ProviderTimeout: cfg.Providers.Timeout,
		Cache: distance.NewCache(distance.CacheConfig{
			TTL:    cfg.Engine.DistanceCacheTTL,
			Logger: logger,
		}),
		Metrics: resolverMetrics,
		Logger:  logger,
	})

	a.Factors, err = emissions.NewService(emissions.ServiceConfig{
		Repository: factorRepo,
		Logger:     logger,
		CacheTTL:   cfg.Engine.FactorCacheTTL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating emission factor service: %w", err)
	}

	if opts.Events {
		a.Publisher, err = newPublisher(ctx, cfg.Events, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	airports, err := location.DefaultAirportCatalog()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Goods = goods.NewService(goodsRepo, logger)
	a.Locations = location.NewService(location.ServiceConfig{
		Geocoder: geocoder,
		Airports: airports,
		Logger:   logger,
	})
	a.Shipments = shipment.NewService(shipment.ServiceConfig{
		Repository:     shipmentRepo,
		Resolver:       a.Resolver,
		Factors:        a.Factors,
		Publisher:      a.Publisher,
		LegConcurrency: cfg.Engine.LegConcurrency,
		Logger:         logger,
	})

	return a, nil
}

// Close releases the publisher and the database pool.
func (a *App) Close() {
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("failed to close event publisher")
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func (a *App) stores(ctx context.Context, cfg *config.Config) (goods.Repository, emissions.Repository, shipment.Repository, error) {
	if !cfg.DatabaseEnabled() {
		a.logger.Warn().Msg("no database host configured, using in-memory stores")
		return goods.NewInMemoryRepository(), emissions.NewInMemoryRepository(), shipment.NewInMemoryRepository(), nil
	}

	dbConfig := database.FromConfig(cfg.Database)
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.Pool = pool

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
	}

	a.logger.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	return goods.NewPostgresRepository(pool),
		emissions.NewPostgresRepository(pool),
		shipment.NewPostgresRepository(pool),
		nil
}

// routingProviders builds the configured provider clients. Providers without
// credentials are left nil and their legs fall back to geodesic distances.
func (a *App) routingProviders(cfg config.ProvidersConfig) (routing.DrivingProvider, routing.TransitProvider, routing.SeaRouteProvider, routing.Geocoder) {
	var (
		driving  routing.DrivingProvider
		transit  routing.TransitProvider
		sea      routing.SeaRouteProvider
		geocoder routing.Geocoder
	)

	if cfg.GoogleMapsAPIKey != "" {
		google := googlemaps.NewClient(googlemaps.ClientConfig{
			APIKey:   cfg.GoogleMapsAPIKey,
			Timeout:  cfg.Timeout,
			Registry: a.Providers,
			Logger:   a.logger,
		})
		transit = google
		geocoder = google
		if cfg.DrivingProvider == config.DrivingProviderGoogle {
			driving = google
		}
	}

	if cfg.ORSAPIKey != "" {
		ors := openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.ORSAPIKey,
			Timeout:  cfg.Timeout,
			Registry: a.Providers,
			Logger:   a.logger,
		})
		if cfg.DrivingProvider == config.DrivingProviderORS {
			driving = ors
		}
		if geocoder == nil {
			geocoder = ors
		}
	}

	if cfg.SeaRouteURL != "" {
		sea = searoute.NewClient(searoute.ClientConfig{
			BaseURL:  cfg.SeaRouteURL,
			Timeout:  cfg.Timeout,
			Registry: a.Providers,
			Logger:   a.logger,
		})
	}

	if driving == nil {
		a.logger.Warn().Str("driving_provider", cfg.DrivingProvider).Msg("driving provider not configured, road legs use geodesic distance")
	}
	if transit == nil {
		a.logger.Warn().Msg("transit provider not configured, rail legs use geodesic distance")
	}
	if sea == nil {
		a.logger.Warn().Msg("sea route engine not configured, water legs use geodesic distance")
	}

	return driving, transit, sea, geocoder
}

func newPublisher(ctx context.Context, cfg config.EventsConfig, logger zerolog.Logger) (events.Publisher, error) {
	switch cfg.Backend {
	case config.EventsBackendPubSub:
		p, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: cfg.PubSubProject,
			Topic:     cfg.PubSubTopic,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("project", cfg.PubSubProject).Str("topic", cfg.PubSubTopic).Msg("publishing shipment events to pubsub")
		return p, nil
	case config.EventsBackendKafka:
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing shipment events to kafka")
		return events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Logger:  logger,
		}), nil
	case config.EventsBackendNone, "":
		return events.NoopPublisher{}, nil
	}
	return nil, errors.New("unknown events backend " + cfg.Backend)
}
