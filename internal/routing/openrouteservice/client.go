// Package openrouteservice provides a client for the OpenRouteService
// directions and geocoding APIs, used for heavy goods vehicle distances.
package openrouteservice

import (
	"bytes"
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
	// ProviderName identifies this routing provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the OpenRouteService API base URL.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// ProfileDrivingHGV is the heavy goods vehicle profile.
	ProfileDrivingHGV = "driving-hgv"

	maxGeocodeResults = 6
	acceptGeoJSON     = "application/json, application/geo+json"
)

// HTTPDoer executes HTTP requests. *resilience.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string        // Defaults to DefaultBaseURL
	HTTPClient HTTPDoer      // Defaults to a resilient client registered with Registry
	Timeout    time.Duration // Defaults to DefaultTimeout
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

var (
	_ routing.DrivingProvider = (*Client)(nil)
	_ routing.Geocoder        = (*Client)(nil)
)

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = cfg.Timeout
		if rc.Timeout == 0 {
			rc.Timeout = DefaultTimeout
		}
		rc.Registry = cfg.Registry
		rc.Logger = cfg.Logger
		c.httpClient = resilience.NewClient(rc)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// DrivingDistance returns the heavy goods vehicle distance between two points.
func (c *Client) DrivingDistance(ctx context.Context, req routing.DrivingRequest) (*routing.DistanceResult, error) {
	if c.apiKey == "" {
		return nil, errNotConfigured
	}
	if req.Origin.Validate() != nil {
		return nil, fail("INVALID_ORIGIN", "invalid origin coordinates", routing.ErrInvalidCoordinates)
	}
	if req.Destination.Validate() != nil {
		return nil, fail("INVALID_DESTINATION", "invalid destination coordinates", routing.ErrInvalidCoordinates)
	}

	body, err := json.Marshal(newDirectionsRequest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding directions request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/directions/"+ProfileDrivingHGV, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building directions request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", acceptGeoJSON)

	c.logger.Debug().
		Floats64("origin", []float64{req.Origin.Lat, req.Origin.Lon}).
		Floats64("destination", []float64{req.Destination.Lat, req.Destination.Lon}).
		Bool("avoid_tolls", req.AvoidTolls).
		Msg("requesting hgv directions")

	var directions directionsResponse
	if err := c.fetch(httpReq, &directions); err != nil {
		return nil, err
	}
	if len(directions.Routes) == 0 || directions.Routes[0].Summary.Distance <= 0 {
		return nil, fail("NO_ROUTE", "response contained no route", routing.ErrNoRouteFound)
	}

	summary := directions.Routes[0].Summary
	return &routing.DistanceResult{
		DistanceMeters:  int(summary.Distance),
		DurationSeconds: int(summary.Duration),
		Provider:        ProviderName,
		FetchedAt:       time.Now(),
	}, nil
}

// SearchPlaces runs a Pelias text search.
func (c *Client) SearchPlaces(ctx context.Context, query string) ([]routing.Place, error) {
	return c.search(ctx, query)
}

// Geocode resolves an address. ORS has one search endpoint, so this is the
// same query as SearchPlaces.
func (c *Client) Geocode(ctx context.Context, address string) ([]routing.Place, error) {
	return c.search(ctx, address)
}

func (c *Client) search(ctx context.Context, text string) ([]routing.Place, error) {
	if c.apiKey == "" {
		return nil, errNotConfigured
	}

	query := url.Values{
		"api_key": {c.apiKey},
		"text":    {text},
		"size":    {strconv.Itoa(maxGeocodeResults)},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/geocode/search?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building geocode request: %w", err)
	}
	httpReq.Header.Set("Accept", acceptGeoJSON)

	var collection featureCollection
	if err := c.fetch(httpReq, &collection); err != nil {
		return nil, err
	}
	return collection.places(maxGeocodeResults), nil
}

// fetch executes req and decodes a 200 response into out.
func (c *Client) fetch(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", req.URL.Path).Msg("openrouteservice request failed")
		return fail("REQUEST_FAILED", "failed to reach routing provider", fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading openrouteservice response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return mapError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding openrouteservice response: %w", err)
	}
	return nil
}

var errNotConfigured = fail("NOT_CONFIGURED", "openrouteservice API key is not set", routing.ErrNotConfigured)

func fail(code, message string, err error) *routing.Error {
	return &routing.Error{Provider: ProviderName, Code: code, Message: message, Err: err}
}

// statusErrors maps HTTP statuses with a fixed meaning to domain errors.
var statusErrors = map[int]*routing.Error{
	http.StatusTooManyRequests: fail("RATE_LIMIT", "API rate limit exceeded, please try again later", routing.ErrRateLimitExceeded),
	http.StatusUnauthorized:    fail("FORBIDDEN", "API access denied, check the openrouteservice key", routing.ErrProviderUnavailable),
	http.StatusForbidden:       fail("FORBIDDEN", "API access denied, check the openrouteservice key", routing.ErrProviderUnavailable),
	http.StatusNotFound:        fail("NO_ROUTE", "no route found between the given points", routing.ErrNoRouteFound),
}

// mapError turns a non-200 response into a *routing.Error. Bad requests are
// classified by the ORS error code in the body.
func mapError(status int, body []byte) error {
	if e, ok := statusErrors[status]; ok {
		mapped := *e
		return &mapped
	}
	if status >= http.StatusInternalServerError {
		return fail(fmt.Sprintf("SERVER_%d", status), "routing provider is temporarily unavailable", routing.ErrProviderUnavailable)
	}

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return fail(fmt.Sprintf("HTTP_%d", status), fmt.Sprintf("routing provider returned status %d", status), routing.ErrProviderUnavailable)
	}
	msg := apiErr.Error.Message
	if status != http.StatusBadRequest {
		return fail(fmt.Sprintf("HTTP_%d", status), msg, routing.ErrProviderUnavailable)
	}
	switch apiErr.Error.Code {
	case codeRouteNotFound, codePointNotFound:
		return fail("NO_ROUTE", msg, routing.ErrNoRouteFound)
	case codeInvalidParameter:
		return fail("INVALID_PARAMETER", msg, routing.ErrInvalidCoordinates)
	default:
		return fail("BAD_REQUEST", msg, routing.ErrInvalidCoordinates)
	}
}
