// Package main provides the entrypoint for the freightledger API server.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api"
	"github.com/freightledger/freightledger/internal/api/handler"
	"github.com/freightledger/freightledger/internal/api/middleware"
	"github.com/freightledger/freightledger/internal/app"
	"github.com/freightledger/freightledger/internal/auth"
	"github.com/freightledger/freightledger/internal/config"
	"github.com/freightledger/freightledger/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "freightledger-api"

func main() {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		boot := bootLogger(os.Stderr)
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := app.NewLogger(cfg.App, serviceName, Version)
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting freightledger API")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

// bootLogger logs failures that happen before the configured logger exists.
func bootLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", serviceName).Str("version", Version).Logger()
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg.Telemetry, serviceName, Version, cfg.App.Env))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return err
	}

	services, err := app.New(ctx, cfg, app.Options{Metrics: true, Events: true}, log)
	if err != nil {
		return err
	}
	defer services.Close()

	if n, err := services.Factors.SeedDefaults(ctx); err != nil {
		log.Error().Err(err).Msg("failed to seed default emission factors")
	} else if n > 0 {
		log.Info().Int("count", n).Msg("default emission factors seeded")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.Auth.SigningKey,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
	})
	if !jwtService.Enabled() {
		log.Warn().Msg("AUTH_SIGNING_KEY not set, admin endpoints are disabled")
	}

	routerCfg := api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         metrics,
		RequireTLS:      cfg.App.RequireTLS,
		AdminAuth:       jwtService,
		Providers:       services.Providers,
		GoodsService:    services.Goods,
		FactorService:   services.Factors,
		ShipmentService: services.Shipments,
		LocationService: services.Locations,
		Resolver:        services.Resolver,
	}
	// Left unset for in-memory stores so readiness reports them as such.
	if services.Pool != nil {
		routerCfg.Database = handler.Pinger(services.Pool)
	}

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           api.NewRouter(routerCfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second, // Multi-leg shipments wait on routing providers
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
