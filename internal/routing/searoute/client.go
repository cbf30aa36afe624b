// Package searoute provides a client for a searoute HTTP engine that returns
// maritime routes as GeoJSON line strings.
package searoute

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/provider/resilience"
	"github.com/freightledger/freightledger/internal/routing"
	"github.com/freightledger/freightledger/pkg/polyline"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "searoute"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the sea route client.
type ClientConfig struct {
	// BaseURL is the searoute engine URL (required).
	BaseURL string

	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client is a sea route engine client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var _ routing.SeaRouteProvider = (*Client)(nil)

// NewClient creates a new sea route client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// feature is the GeoJSON Feature returned by the engine.
type feature struct {
	Geometry struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Length *float64 `json:"length"`
		Units  string   `json:"units"`
	} `json:"properties"`
}

// SeaRoute returns the maritime route between origin and destination.
// The length is taken from properties.length (km) and computed from the
// geometry when the engine omits it.
func (c *Client) SeaRoute(ctx context.Context, origin, destination routing.Coordinate) (*routing.SeaRoute, error) {
	if c.baseURL == "" {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NOT_CONFIGURED",
			Message:  "searoute engine URL is not set",
			Err:      routing.ErrNotConfigured,
		}
	}
	if origin.Validate() != nil || destination.Validate() != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_COORDINATES",
			Message:  "origin or destination out of range",
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	params := url.Values{}
	params.Set("opos", lonLat(origin))
	params.Set("dpos", lonLat(destination))
	params.Set("units", "km")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/route?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach searoute engine",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no sea route between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:  fmt.Sprintf("searoute engine returned status %d", resp.StatusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}

	var f feature
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	points := polyline.FromLonLat(f.Geometry.Coordinates)

	// A reported length is authoritative, including zero when both ends
	// snap to the same port. Without one the geometry must describe a path.
	var length float64
	switch {
	case f.Properties.Length != nil && *f.Properties.Length >= 0:
		length = *f.Properties.Length
	case f.Properties.Length == nil && len(points) >= 2:
		length = polyline.LengthKm(points)
	default:
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "EMPTY_ROUTE",
			Message:  "searoute engine returned an empty route",
			Err:      routing.ErrNoRouteFound,
		}
	}

	c.logger.Debug().
		Float64("length_km", length).
		Int("points", len(points)).
		Msg("received sea route")

	return &routing.SeaRoute{
		LengthKm:    length,
		Coordinates: points,
		Polyline:    polyline.Encode(points),
		Provider:    ProviderName,
		FetchedAt:   time.Now(),
	}, nil
}

func lonLat(c routing.Coordinate) string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}
