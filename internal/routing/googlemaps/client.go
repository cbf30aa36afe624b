// Package googlemaps provides a client for the Google Maps web services used
// by freight legs: Distance Matrix, Directions, Places text search and
// Geocoding.
package googlemaps

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
)

const (
	// ProviderName identifies this provider.
	ProviderName = "google-maps"

	// DefaultBaseURL is the Google Maps web services base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	maxPlaces = 6
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google Maps client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL overrides the API base URL (tests).
	BaseURL string

	// HTTPClient is the HTTP client to use. If nil, a resilient client is created.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Client is a Google Maps web services client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var (
	_ routing.DrivingProvider = (*Client)(nil)
	_ routing.TransitProvider = (*Client)(nil)
	_ routing.Geocoder        = (*Client)(nil)
)

// NewClient creates a new Google Maps client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

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
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// DrivingDistance queries the Distance Matrix API in driving mode.
func (c *Client) DrivingDistance(ctx context.Context, req routing.DrivingRequest) (*routing.DistanceResult, error) {
	params := url.Values{}
	params.Set("origins", latLng(req.Origin))
	params.Set("destinations", latLng(req.Destination))
	params.Set("mode", "driving")
	params.Set("units", "metric")
	if req.AvoidTolls {
		params.Set("avoid", "tolls")
	}
	return c.matrix(ctx, params, req.Origin, req.Destination)
}

// TransitDistance queries the Distance Matrix API for a train trip.
func (c *Client) TransitDistance(ctx context.Context, req routing.TransitRequest) (*routing.DistanceResult, error) {
	params := url.Values{}
	params.Set("origins", latLng(req.Origin))
	params.Set("destinations", latLng(req.Destination))
	params.Set("mode", "transit")
	params.Set("transit_mode", "train")
	params.Set("units", "metric")
	return c.matrix(ctx, params, req.Origin, req.Destination)
}

func (c *Client) matrix(ctx context.Context, params url.Values, origin, dest routing.Coordinate) (*routing.DistanceResult, error) {
	if err := validatePair(origin, dest); err != nil {
		return nil, err
	}

	var resp distanceMatrixResponse
	if err := c.get(ctx, "/maps/api/distancematrix/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		return nil, statusError(resp.Status, resp.ErrorMessage)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "EMPTY_MATRIX",
			Message:  "distance matrix contained no elements",
			Err:      routing.ErrNoRouteFound,
		}
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != statusOK || el.Distance == nil {
		return nil, statusError(el.Status, "")
	}

	result := &routing.DistanceResult{
		DistanceMeters: el.Distance.Value,
		Provider:       ProviderName,
		FetchedAt:      time.Now(),
	}
	if el.Duration != nil {
		result.DurationSeconds = el.Duration.Value
	}
	return result, nil
}

// TransitDirections queries the Directions API in transit mode restricted to rail.
func (c *Client) TransitDirections(ctx context.Context, req routing.TransitRequest) (*routing.TransitRoute, error) {
	if err := validatePair(req.Origin, req.Destination); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("origin", latLng(req.Origin))
	params.Set("destination", latLng(req.Destination))
	params.Set("mode", "transit")
	params.Set("transit_mode", "rail")
	params.Set("units", "metric")

	var resp directionsResponse
	if err := c.get(ctx, "/maps/api/directions/json", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != statusOK {
		return nil, statusError(resp.Status, resp.ErrorMessage)
	}
	if len(resp.Routes) == 0 {
		return nil, statusError(statusZeroResults, "")
	}

	first := resp.Routes[0]
	route := &routing.TransitRoute{
		Legs:      make([]routing.RouteLeg, 0, len(first.Legs)),
		Polyline:  first.OverviewPolyline.Points,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
	for _, leg := range first.Legs {
		rl := routing.RouteLeg{Summary: first.Summary}
		if leg.Distance != nil {
			meters := leg.Distance.Value
			rl.DistanceMeters = &meters
		}
		route.Legs = append(route.Legs, rl)
	}

	c.logger.Debug().
		Int("legs", len(route.Legs)).
		Msg("received rail directions from google maps")

	return route, nil
}

// SearchPlaces runs a Places text search restricted to geocodable results.
func (c *Client) SearchPlaces(ctx context.Context, query string) ([]routing.Place, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "geocode")
	return c.places(ctx, "/maps/api/place/textsearch/json", params)
}

// Geocode resolves an address with the Geocoding API.
func (c *Client) Geocode(ctx context.Context, address string) ([]routing.Place, error) {
	params := url.Values{}
	params.Set("address", address)
	return c.places(ctx, "/maps/api/geocode/json", params)
}

func (c *Client) places(ctx context.Context, path string, params url.Values) ([]routing.Place, error) {
	var resp placesResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	if resp.Status == statusZeroResults {
		return nil, nil
	}
	if resp.Status != statusOK {
		return nil, statusError(resp.Status, resp.ErrorMessage)
	}

	places := make([]routing.Place, 0, maxPlaces)
	for _, r := range resp.Results {
		if len(places) == maxPlaces {
			break
		}
		if r.Geometry == nil || r.Geometry.Location == nil {
			continue
		}
		address := r.FormattedAddress
		if address == "" {
			address = r.Name
		}
		places = append(places, routing.Place{
			Address:  address,
			Location: routing.Coordinate{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng},
		})
	}
	return places, nil
}

// get performs a GET request against path and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "NOT_CONFIGURED",
			Message:  "google maps API key is not set",
			Err:      routing.ErrNotConfigured,
		}
	}
	params.Set("key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach google maps",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return httpError(resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// statusError maps a Google status string to a domain error.
func statusError(status, message string) error {
	if message == "" {
		message = "google maps returned status " + status
	}

	switch status {
	case statusZeroResults, statusNotFound:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrNoRouteFound}
	case statusOverLimit, statusOverDailyLimit:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrRateLimitExceeded}
	case statusInvalidRequest:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrInvalidCoordinates}
	default:
		return &routing.Error{Provider: ProviderName, Code: status, Message: message, Err: routing.ErrProviderUnavailable}
	}
}

func httpError(statusCode int) error {
	if statusCode == http.StatusTooManyRequests {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	}
	return &routing.Error{
		Provider: ProviderName,
		Code:     fmt.Sprintf("HTTP_%d", statusCode),
		Message:  fmt.Sprintf("google maps returned status %d", statusCode),
		Err:      routing.ErrProviderUnavailable,
	}
}

func validatePair(origin, dest routing.Coordinate) error {
	if origin.Validate() != nil || dest.Validate() != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_COORDINATES",
			Message:  "origin or destination out of range",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	return nil
}

func latLng(c routing.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
