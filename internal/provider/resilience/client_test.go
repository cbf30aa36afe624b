package resilience_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightledger/freightledger/internal/provider/resilience"
)

// fastClient returns a client with millisecond backoff and a breaker that
// never trips unless tripAfter is positive.
func fastClient(name string, retries uint64, tripAfter uint32, registry *resilience.Registry) *resilience.Client {
	cb := resilience.DefaultCircuitBreakerConfig(name)
	cb.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return tripAfter > 0 && counts.ConsecutiveFailures >= tripAfter
	}
	return resilience.NewClient(resilience.ClientConfig{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		CircuitBreaker:  &cb,
		Registry:        registry,
	})
}

// statusSequence serves the given statuses in order, repeating the last.
func statusSequence(t *testing.T, hits *atomic.Int32, statuses ...int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1)) - 1
		w.WriteHeader(statuses[min(n, len(statuses)-1)])
	}))
	t.Cleanup(server.Close)
	return server
}

func get(t *testing.T, ctx context.Context, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return req
}

func closeBody(resp *http.Response) {
	if resp != nil {
		resp.Body.Close()
	}
}

func TestClient_RetryBehaviour(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		wantStatus int
		wantHits   int32
	}{
		{"first attempt succeeds", []int{http.StatusOK}, http.StatusOK, 1},
		{"recovers after 5xx", []int{http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK}, http.StatusOK, 3},
		{"4xx is not retried", []int{http.StatusBadRequest, http.StatusOK}, http.StatusBadRequest, 1},
		{"429 is handed to the caller", []int{http.StatusTooManyRequests, http.StatusOK}, http.StatusTooManyRequests, 1},
		{"exhausted 5xx returns last response", []int{http.StatusBadGateway}, http.StatusBadGateway, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := statusSequence(t, &hits, tt.statuses...)
			client := fastClient("searoute", 3, 0, nil)

			resp, err := client.Do(get(t, context.Background(), server.URL))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestClient_ReplaysRequestBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		first := len(bodies) == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	payload := `{"coordinates":[[72.87,19.07],[77.10,28.70]]}`
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, strings.NewReader(payload))
	require.NoError(t, err)

	resp, err := fastClient("openrouteservice", 3, 0, nil).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{payload, payload}, bodies)
}

func TestClient_UnreplayableBodyNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := statusSequence(t, &hits, http.StatusServiceUnavailable, http.StatusOK)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, io.NopCloser(strings.NewReader("{}")))
	require.NoError(t, err)
	req.GetBody = nil

	resp, err := fastClient("openrouteservice", 3, 0, nil).Do(req)
	require.NoError(t, err, "the 503 from the only attempt is handed back")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_CircuitBreakerTrips(t *testing.T) {
	var hits atomic.Int32
	server := statusSequence(t, &hits, http.StatusInternalServerError)
	client := fastClient("google-maps", 1, 3, nil)

	for i := 0; i < 2; i++ {
		resp, _ := client.Do(get(t, context.Background(), server.URL))
		closeBody(resp)
	}
	require.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())
	served := hits.Load()

	resp, err := client.Do(get(t, context.Background(), server.URL))
	closeBody(resp)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, served, hits.Load(), "open breaker short-circuits the request")
}

func TestClient_TransportErrorsExhaustRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cb := resilience.DefaultCircuitBreakerConfig("slow")
	cb.ReadyToTrip = func(gobreaker.Counts) bool { return false }
	client := resilience.NewClient(resilience.ClientConfig{
		Name:            "slow",
		Timeout:         20 * time.Millisecond,
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		CircuitBreaker:  &cb,
	})

	resp, err := client.Do(get(t, context.Background(), server.URL))
	closeBody(resp)
	require.Error(t, err)
	assert.ErrorIs(t, err, resilience.ErrMaxRetriesExceeded)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	defer close(release)

	registry := resilience.NewRegistry()
	client := resilience.NewClient(resilience.ClientConfig{Name: "google-maps", Registry: registry})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	resp, err := client.Do(get(t, ctx, server.URL))
	closeBody(resp)
	require.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrMaxRetriesExceeded)

	health := registry.GetHealth("google-maps")
	require.NotNil(t, health)
	assert.Nil(t, health.LastFailureAt, "a sibling leg's cancellation is not a provider failure")
	assert.Zero(t, health.Counts.TotalFailures)
	assert.True(t, health.IsHealthy())
}

func TestClient_RecordsOutcomesInRegistry(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := fastClient("searoute", 1, 0, registry)
	assert.Equal(t, []string{"searoute"}, registry.GetProviderNames())

	resp, err := client.Do(get(t, context.Background(), server.URL))
	require.NoError(t, err)
	resp.Body.Close()

	health := registry.GetHealth("searoute")
	require.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)

	fail.Store(true)
	resp, err = client.Do(get(t, context.Background(), server.URL))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	health = registry.GetHealth("searoute")
	require.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "Bad Gateway")
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := resilience.DefaultCircuitBreakerConfig("searoute")

	assert.Equal(t, "searoute", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 2*time.Minute, cfg.Interval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NotNil(t, cfg.ReadyToTrip)
	assert.NotNil(t, cfg.IsSuccessful)
	assert.Nil(t, cfg.OnStateChange)
}

func TestDefaultReadyToTrip(t *testing.T) {
	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"no requests", gobreaker.Counts{}, false},
		{"two consecutive failures", gobreaker.Counts{Requests: 2, TotalFailures: 2, ConsecutiveFailures: 2}, false},
		{"three consecutive failures", gobreaker.Counts{Requests: 3, TotalFailures: 3, ConsecutiveFailures: 3}, true},
		{"too few requests for ratio", gobreaker.Counts{Requests: 4, TotalFailures: 2, ConsecutiveFailures: 1}, false},
		{"forty percent failing", gobreaker.Counts{Requests: 10, TotalFailures: 4, ConsecutiveFailures: 1}, false},
		{"half failing", gobreaker.Counts{Requests: 10, TotalFailures: 5, ConsecutiveFailures: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.DefaultReadyToTrip(tt.counts))
		})
	}
}

func TestDefaultIsSuccessful(t *testing.T) {
	assert.True(t, resilience.DefaultIsSuccessful(nil))
	assert.True(t, resilience.DefaultIsSuccessful(context.Canceled))
	assert.True(t, resilience.DefaultIsSuccessful(fmt.Errorf("sea route: %w", context.Canceled)))
	assert.False(t, resilience.DefaultIsSuccessful(context.DeadlineExceeded))
	assert.False(t, resilience.DefaultIsSuccessful(&resilience.ServerError{StatusCode: http.StatusBadGateway}))
}

func TestLogStateChange(t *testing.T) {
	var buf bytes.Buffer
	hook := resilience.LogStateChange(zerolog.New(&buf))

	var entry map[string]any
	hook("searoute", gobreaker.StateClosed, gobreaker.StateOpen)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "searoute", entry["provider"])
	assert.Equal(t, "closed", entry["from"])
	assert.Equal(t, "open", entry["to"])

	buf.Reset()
	hook("searoute", gobreaker.StateOpen, gobreaker.StateHalfOpen)
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
}

func TestNewClient_Defaults(t *testing.T) {
	cfg := resilience.DefaultClientConfig("openrouteservice")
	assert.Equal(t, "openrouteservice", cfg.Name)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	require.NotNil(t, cfg.CircuitBreaker)
	assert.Equal(t, "openrouteservice", cfg.CircuitBreaker.Name)

	client := resilience.NewClient(resilience.ClientConfig{Name: "bare"})
	assert.Equal(t, "bare", client.Name())
	assert.Equal(t, gobreaker.StateClosed, client.CircuitBreakerState())
	assert.Zero(t, client.CircuitBreakerCounts().Requests)
}

func TestServerError(t *testing.T) {
	err := &resilience.ServerError{StatusCode: http.StatusServiceUnavailable}
	assert.Equal(t, "server error: Service Unavailable", err.Error())
}
