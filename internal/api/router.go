// Package api provides the HTTP API for freightledger.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/handler"
	"github.com/freightledger/freightledger/internal/api/middleware"
	"github.com/freightledger/freightledger/internal/auth"
	"github.com/freightledger/freightledger/internal/emissions"
	"github.com/freightledger/freightledger/internal/goods"
	"github.com/freightledger/freightledger/internal/location"
	"github.com/freightledger/freightledger/internal/provider/resilience"
	"github.com/freightledger/freightledger/internal/shipment"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// AdminAuth validates admin bearer tokens. Nil rejects every admin request.
	AdminAuth middleware.TokenValidator

	Database  handler.Pinger       // Optional
	Providers *resilience.Registry // Optional

	GoodsService    *goods.Service
	FactorService   *emissions.Service
	ShipmentService *shipment.Service
	LocationService *location.Service
	Resolver        shipment.DistanceResolver
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "freightledger-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // Reject forwarded plain HTTP
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON request bodies

	opsCfg := handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Database:  cfg.Database,
		Providers: cfg.Providers,
		Factors:   cfg.FactorService,
	}
	if cache, ok := cfg.Resolver.(handler.CacheReporter); ok {
		opsCfg.Distances = cache
	}
	opsHandler := handler.NewOpsHandler(opsCfg)
	goodsHandler := handler.NewGoodsHandler(cfg.GoodsService, cfg.Logger)
	factorHandler := handler.NewFactorHandler(cfg.FactorService, cfg.Logger)
	shipmentHandler := handler.NewShipmentHandler(cfg.ShipmentService, cfg.Logger)
	locationHandler := handler.NewLocationHandler(cfg.LocationService, cfg.Logger)
	distanceHandler := handler.NewDistanceHandler(cfg.Resolver, cfg.Logger)

	validator := cfg.AdminAuth
	if validator == nil {
		validator = disabledAdmin{}
	}
	adminAuth := middleware.AdminAuth(validator)
	adminRateLimit := middleware.RateLimitBySubject(middleware.AdminRateLimit)  // 10 req/min per admin
	computeRateLimit := middleware.RateLimitByIP(middleware.ComputeRateLimit)   // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	admin := chi.Chain(adminAuth, adminRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Route("/goods", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", goodsHandler.ListGoods)
			r.Post("/", goodsHandler.CreateGood)
			r.Get("/{goodId}", goodsHandler.GetGood)
		})

		r.Route("/emission-factors", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", factorHandler.ListFactors)
			r.With(admin...).Post("/", factorHandler.CreateFactor)
			r.With(admin...).Post("/seed", factorHandler.SeedFactors)
			r.With(admin...).Put("/{factorId}", factorHandler.UpdateFactor)
			r.With(admin...).Delete("/{factorId}", factorHandler.DeleteFactor)
		})

		r.With(standardRateLimit).Get("/vehicle-types/{mode}", factorHandler.VehicleTypes)

		// Distance and shipment creation call routing providers.
		r.With(computeRateLimit).Post("/distance:calculate", distanceHandler.Calculate)

		r.Route("/shipments", func(r chi.Router) {
			r.With(computeRateLimit).Post("/", shipmentHandler.CreateShipment)
			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", shipmentHandler.ListShipments)
				r.Delete("/", shipmentHandler.BulkDelete)
				r.Post("/analytics", shipmentHandler.TripAnalytics)
				r.Get("/scatter-analytics", shipmentHandler.ScatterAnalytics)
				r.Get("/{shipmentId}", shipmentHandler.GetShipment)
			})
		})

		r.With(computeRateLimit).Get("/locations/search", locationHandler.Search)

		r.Route("/admin", func(r chi.Router) {
			r.Use(admin...)
			r.Post("/reset", shipmentHandler.Reset)
		})
	})

	return r
}

// disabledAdmin rejects every token, used when no signing key is configured.
type disabledAdmin struct{}

func (disabledAdmin) ValidateAdmin(string) (*auth.Claims, error) {
	return nil, auth.ErrNotConfigured
}
