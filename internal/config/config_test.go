package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightledger/freightledger/internal/config"
)

func emptyOptions(t *testing.T) config.Options {
	dir := t.TempDir()
	return config.Options{
		EnvFile:     filepath.Join(dir, "missing.env"),
		ConfigPaths: []string{dir},
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(emptyOptions(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "json", cfg.App.LogFormat)
	assert.False(t, cfg.App.RequireTLS)
	assert.False(t, cfg.DatabaseEnabled())
	assert.Equal(t, config.DrivingProviderGoogle, cfg.Providers.DrivingProvider)
	assert.Equal(t, 10*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, config.EventsBackendNone, cfg.Events.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 4, cfg.Engine.LegConcurrency)
	assert.Equal(t, 6*time.Hour, cfg.Engine.DistanceCacheTTL)
	assert.InDelta(t, 500.0, cfg.Engine.PortRadiusKm, 1e-9)
	assert.Empty(t, cfg.Auth.SigningKey)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_REQUIRE_TLS", "true")
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("PROVIDERS_DRIVING_PROVIDER", "OpenRouteService")
	t.Setenv("EVENTS_BACKEND", "kafka")
	t.Setenv("EVENTS_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("ENGINE_LEG_CONCURRENCY", "8")
	t.Setenv("ENGINE_FACTOR_CACHE_TTL", "30s")

	cfg, err := config.Load(emptyOptions(t))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.True(t, cfg.App.RequireTLS)
	assert.True(t, cfg.DatabaseEnabled())
	assert.Equal(t, config.DrivingProviderORS, cfg.Providers.DrivingProvider)
	assert.Equal(t, config.EventsBackendKafka, cfg.Events.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 8, cfg.Engine.LegConcurrency)
	assert.Equal(t, 30*time.Second, cfg.Engine.FactorCacheTTL)
}

func TestLoad_ConfigFileAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "app:\n  log_level: debug\nauth:\n  issuer: from-file\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUTH_SIGNING_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("AUTH_SIGNING_KEY") })

	cfg, err := config.Load(config.Options{EnvFile: envFile, ConfigPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "from-file", cfg.Auth.Issuer)
	assert.Equal(t, "from-dotenv", cfg.Auth.SigningKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driving provider", map[string]string{"PROVIDERS_DRIVING_PROVIDER": "bing"}},
		{"unknown events backend", map[string]string{"EVENTS_BACKEND": "sqs"}},
		{"pubsub without project", map[string]string{"EVENTS_BACKEND": "pubsub"}},
		{"kafka without brokers", map[string]string{"EVENTS_BACKEND": "kafka", "EVENTS_KAFKA_BROKERS": " "}},
		{"zero concurrency", map[string]string{"ENGINE_LEG_CONCURRENCY": "0"}},
		{"sample ratio above one", map[string]string{"TELEMETRY_SAMPLE_RATIO": "1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load(emptyOptions(t))
			assert.Error(t, err)
		})
	}
}
