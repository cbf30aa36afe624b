// Package config loads service settings from defaults, an optional
// config.yaml, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Driving provider choices.
const (
	DrivingProviderGoogle = "google"
	DrivingProviderORS    = "openrouteservice"
)

// Event backends.
const (
	EventsBackendNone   = "none"
	EventsBackendPubSub = "pubsub"
	EventsBackendKafka  = "kafka"
)

// Config is the complete service configuration.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Providers ProvidersConfig
	Telemetry TelemetryConfig
	Events    EventsConfig
	Auth      AuthConfig
	Engine    EngineConfig
}

// AppConfig holds HTTP server and logging settings.
type AppConfig struct {
	Port       string
	Env        string
	LogLevel   string
	LogFormat  string // json or console
	RequireTLS bool   // Reject plain-HTTP requests forwarded by the load balancer
}

// DatabaseConfig holds PostgreSQL settings. An empty Host selects the
// in-memory stores.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// ProvidersConfig holds routing provider credentials.
type ProvidersConfig struct {
	GoogleMapsAPIKey string
	ORSAPIKey        string
	DrivingProvider  string
	SeaRouteURL      string
	Timeout          time.Duration
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64 // Fraction of root traces sampled, 0..1
}

// EventsConfig selects and configures the shipment event backend.
type EventsConfig struct {
	Backend       string
	PubSubProject string
	PubSubTopic   string
	KafkaBrokers  []string
	KafkaTopic    string
}

// AuthConfig holds admin token settings. An empty SigningKey disables the
// admin routes.
type AuthConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// EngineConfig tunes shipment computation.
type EngineConfig struct {
	LegConcurrency   int
	DistanceCacheTTL time.Duration
	FactorCacheTTL   time.Duration
	PortRadiusKm     float64
}

// Options controls where Load looks for settings.
type Options struct {
	// EnvFile is loaded into the environment when it exists (default: .env).
	EnvFile string

	// ConfigPaths are searched for config.yaml (default: current directory).
	ConfigPaths []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.require_tls", false)

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "freightledger")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "freightledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrate", true)

	v.SetDefault("providers.google_maps_api_key", "")
	v.SetDefault("providers.ors_api_key", "")
	v.SetDefault("providers.driving_provider", DrivingProviderGoogle)
	v.SetDefault("providers.searoute_url", "")
	v.SetDefault("providers.timeout", 10*time.Second)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("events.backend", EventsBackendNone)
	v.SetDefault("events.pubsub_project", "")
	v.SetDefault("events.pubsub_topic", "shipments")
	v.SetDefault("events.kafka_brokers", "localhost:9092")
	v.SetDefault("events.kafka_topic", "shipments")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.issuer", "freightledger")
	v.SetDefault("auth.audience", "freightledger-admin")

	v.SetDefault("engine.leg_concurrency", 4)
	v.SetDefault("engine.distance_cache_ttl", 6*time.Hour)
	v.SetDefault("engine.factor_cache_ttl", time.Minute)
	v.SetDefault("engine.port_radius_km", 500.0)
}

// Load reads the configuration. Environment variables use the upper-cased
// key with dots replaced by underscores, e.g. DATABASE_HOST or APP_PORT.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env file is normal outside local development.
	_ = godotenv.Load(envFile)

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	paths := opts.ConfigPaths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Port:       v.GetString("app.port"),
			Env:        v.GetString("app.env"),
			LogLevel:   v.GetString("app.log_level"),
			LogFormat:  v.GetString("app.log_format"),
			RequireTLS: v.GetBool("app.require_tls"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			Migrate:         v.GetBool("database.migrate"),
		},
		Providers: ProvidersConfig{
			GoogleMapsAPIKey: v.GetString("providers.google_maps_api_key"),
			ORSAPIKey:        v.GetString("providers.ors_api_key"),
			DrivingProvider:  strings.ToLower(v.GetString("providers.driving_provider")),
			SeaRouteURL:      v.GetString("providers.searoute_url"),
			Timeout:          v.GetDuration("providers.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("telemetry.enabled"),
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			SampleRatio:  v.GetFloat64("telemetry.sample_ratio"),
		},
		Events: EventsConfig{
			Backend:       strings.ToLower(v.GetString("events.backend")),
			PubSubProject: v.GetString("events.pubsub_project"),
			PubSubTopic:   v.GetString("events.pubsub_topic"),
			KafkaBrokers:  splitList(v.GetString("events.kafka_brokers")),
			KafkaTopic:    v.GetString("events.kafka_topic"),
		},
		Auth: AuthConfig{
			SigningKey: v.GetString("auth.signing_key"),
			Issuer:     v.GetString("auth.issuer"),
			Audience:   v.GetString("auth.audience"),
		},
		Engine: EngineConfig{
			LegConcurrency:   v.GetInt("engine.leg_concurrency"),
			DistanceCacheTTL: v.GetDuration("engine.distance_cache_ttl"),
			FactorCacheTTL:   v.GetDuration("engine.factor_cache_ttl"),
			PortRadiusKm:     v.GetFloat64("engine.port_radius_km"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Providers.DrivingProvider {
	case DrivingProviderGoogle, DrivingProviderORS:
	default:
		return fmt.Errorf("unknown driving provider %q", c.Providers.DrivingProvider)
	}

	switch c.Events.Backend {
	case EventsBackendNone:
	case EventsBackendPubSub:
		if c.Events.PubSubProject == "" {
			return errors.New("events.pubsub_project is required for the pubsub backend")
		}
	case EventsBackendKafka:
		if len(c.Events.KafkaBrokers) == 0 {
			return errors.New("events.kafka_brokers is required for the kafka backend")
		}
	default:
		return fmt.Errorf("unknown events backend %q", c.Events.Backend)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1, got %g", c.Telemetry.SampleRatio)
	}

	if c.Engine.LegConcurrency < 1 {
		return fmt.Errorf("engine.leg_concurrency must be at least 1, got %d", c.Engine.LegConcurrency)
	}
	return nil
}

// DatabaseEnabled reports whether a PostgreSQL host is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.Database.Host != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
