package openrouteservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightledger/freightledger/internal/provider/resilience"
	"github.com/freightledger/freightledger/internal/routing"
)

const hgvRouteFixture = `{
  "bbox": [72.8777, 19.076, 77.1025, 28.7041],
  "routes": [
    {
      "summary": {"distance": 1421337.4, "duration": 61200.2},
      "segments": [{"distance": 1421337.4, "duration": 61200.2}]
    }
  ]
}`

var (
	mumbai = routing.Coordinate{Lat: 19.0760, Lon: 72.8777}
	delhi  = routing.Coordinate{Lat: 28.7041, Lon: 77.1025}
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// newTestClient points a client at handler through a plain http.Client, so
// responses reach the error mapping without retries.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		APIKey:     "ors-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_DrivingDistance(t *testing.T) {
	var got directionsRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/directions/driving-hgv", r.URL.Path)
		assert.Equal(t, "ors-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(hgvRouteFixture))
	})

	result, err := client.DrivingDistance(context.Background(), routing.DrivingRequest{
		Origin:      mumbai,
		Destination: delhi,
		AvoidTolls:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, ProviderName, result.Provider)
	assert.Equal(t, 1421337, result.DistanceMeters)
	assert.Equal(t, 61200, result.DurationSeconds)
	assert.InDelta(t, 1421.337, result.Km(), 0.001)

	require.Len(t, got.Coordinates, 2)
	assert.Equal(t, [2]float64{mumbai.Lon, mumbai.Lat}, got.Coordinates[0], "coordinates are sent lon first")
	assert.Equal(t, [2]float64{delhi.Lon, delhi.Lat}, got.Coordinates[1])
	assert.Equal(t, "m", got.Units)
	require.NotNil(t, got.Options)
	assert.Equal(t, []string{"tollways"}, got.Options.AvoidFeatures)
}

func TestClient_DrivingDistance_TollsAllowed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "options")
		_, _ = w.Write([]byte(hgvRouteFixture))
	})

	_, err := client.DrivingDistance(context.Background(), routing.DrivingRequest{Origin: mumbai, Destination: delhi})
	require.NoError(t, err)
}

func TestClient_DrivingDistance_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantErr  error
	}{
		{"empty routes", http.StatusOK, `{"routes":[]}`, "NO_ROUTE", routing.ErrNoRouteFound},
		{"zero distance", http.StatusOK, `{"routes":[{"summary":{"distance":0}}]}`, "NO_ROUTE", routing.ErrNoRouteFound},
		{"route not found", http.StatusBadRequest, `{"error":{"code":2009,"message":"Route could not be found"}}`, "NO_ROUTE", routing.ErrNoRouteFound},
		{"point not routable", http.StatusBadRequest, `{"error":{"code":2010,"message":"Could not find routable point"}}`, "NO_ROUTE", routing.ErrNoRouteFound},
		{"invalid parameter", http.StatusBadRequest, `{"error":{"code":2003,"message":"Parameter 'units' has incorrect value"}}`, "INVALID_PARAMETER", routing.ErrInvalidCoordinates},
		{"other bad request", http.StatusBadRequest, `{"error":{"code":2099,"message":"Unknown"}}`, "BAD_REQUEST", routing.ErrInvalidCoordinates},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":403,"message":"Rate limit exceeded"}}`, "RATE_LIMIT", routing.ErrRateLimitExceeded},
		{"bad key", http.StatusForbidden, `Access to this API has been disallowed`, "FORBIDDEN", routing.ErrProviderUnavailable},
		{"not found", http.StatusNotFound, ``, "NO_ROUTE", routing.ErrNoRouteFound},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"Internal server error"}}`, "SERVER_500", routing.ErrProviderUnavailable},
		{"unparsable error", http.StatusConflict, `<html>conflict</html>`, "HTTP_409", routing.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.DrivingDistance(context.Background(), routing.DrivingRequest{Origin: mumbai, Destination: delhi})

			var routingErr *routing.Error
			require.ErrorAs(t, err, &routingErr)
			assert.Equal(t, ProviderName, routingErr.Provider)
			assert.Equal(t, tt.wantCode, routingErr.Code)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_DrivingDistance_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		name        string
		origin      routing.Coordinate
		destination routing.Coordinate
		wantCode    string
	}{
		{"latitude above range", routing.Coordinate{Lat: 91, Lon: 72.9}, delhi, "INVALID_ORIGIN"},
		{"latitude below range", routing.Coordinate{Lat: -91, Lon: 72.9}, delhi, "INVALID_ORIGIN"},
		{"longitude above range", mumbai, routing.Coordinate{Lat: 28.7, Lon: 181}, "INVALID_DESTINATION"},
		{"longitude below range", mumbai, routing.Coordinate{Lat: 28.7, Lon: -181}, "INVALID_DESTINATION"},
	}

	var calls int
	client := NewClient(ClientConfig{
		APIKey: "ors-key",
		HTTPClient: doerFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, errors.New("unexpected call")
		}),
		Logger: zerolog.Nop(),
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.DrivingDistance(context.Background(), routing.DrivingRequest{
				Origin:      tt.origin,
				Destination: tt.destination,
			})

			var routingErr *routing.Error
			require.ErrorAs(t, err, &routingErr)
			assert.Equal(t, tt.wantCode, routingErr.Code)
			assert.ErrorIs(t, err, routing.ErrInvalidCoordinates)
		})
	}
	assert.Zero(t, calls, "invalid coordinates never reach the API")
}

func TestClient_NetworkError(t *testing.T) {
	client := NewClient(ClientConfig{
		APIKey: "ors-key",
		HTTPClient: doerFunc(func(*http.Request) (*http.Response, error) {
			return nil, resilience.ErrCircuitOpen
		}),
		Logger: zerolog.Nop(),
	})

	_, err := client.DrivingDistance(context.Background(), routing.DrivingRequest{Origin: mumbai, Destination: delhi})
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen, "the transport cause is kept")

	_, err = client.Geocode(context.Background(), "Nhava Sheva")
	assert.ErrorIs(t, err, routing.ErrProviderUnavailable)
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(ClientConfig{
		HTTPClient: doerFunc(func(*http.Request) (*http.Response, error) {
			t.Fatal("unconfigured client must not call the API")
			return nil, nil
		}),
		Logger: zerolog.Nop(),
	})

	_, err := client.DrivingDistance(context.Background(), routing.DrivingRequest{Origin: mumbai, Destination: delhi})
	assert.ErrorIs(t, err, routing.ErrNotConfigured)

	_, err = client.SearchPlaces(context.Background(), "mumbai")
	assert.ErrorIs(t, err, routing.ErrNotConfigured)
}

func TestClient_SearchPlaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "nhava sheva", r.URL.Query().Get("text"))
		assert.Equal(t, "ors-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "6", r.URL.Query().Get("size"))
		_, _ = w.Write([]byte(`{"features":[
			{"geometry":{"coordinates":[72.9505,18.9647]},"properties":{"label":"Nhava Sheva, Navi Mumbai, India"}},
			{"geometry":{"coordinates":[]},"properties":{"label":"broken"}},
			{"geometry":{"coordinates":[72.95,18.95]},"properties":{"name":"JNPT"}}
		]}`))
	})

	places, err := client.SearchPlaces(context.Background(), "nhava sheva")
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, "Nhava Sheva, Navi Mumbai, India", places[0].Address)
	assert.Equal(t, routing.Coordinate{Lat: 18.9647, Lon: 72.9505}, places[0].Location)
	assert.Equal(t, "JNPT", places[1].Address, "falls back to the feature name")
}

func TestFeatureCollection_PlacesLimit(t *testing.T) {
	var fc featureCollection
	require.NoError(t, json.Unmarshal([]byte(`{"features":[
		{"geometry":{"coordinates":[1,1]},"properties":{"label":"a"}},
		{"geometry":{"coordinates":[2,2]},"properties":{"label":"b"}},
		{"geometry":{"coordinates":[3,3]},"properties":{"label":"c"}}
	]}`), &fc))

	places := fc.places(2)
	require.Len(t, places, 2)
	assert.Equal(t, "b", places[1].Address)
	assert.Empty(t, featureCollection{}.places(maxGeocodeResults))
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, ProviderName, NewClient(ClientConfig{APIKey: "ors-key"}).Name())
}

func TestError_IsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{routing.ErrProviderUnavailable, true},
		{routing.ErrRateLimitExceeded, true},
		{routing.ErrNoRouteFound, false},
		{routing.ErrInvalidCoordinates, false},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, fail("X", "x", tt.err).IsRetryable())
		})
	}
}
