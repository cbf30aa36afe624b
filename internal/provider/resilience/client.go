package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without contacting the provider while its
	// breaker is open or half-open and saturated.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when every attempt failed without a
	// response to hand back.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ClientConfig holds configuration for the resilient HTTP client. Zero
// durations and retry counts take the DefaultClientConfig values.
type ClientConfig struct {
	Name            string        // Provider name used by the breaker and the registry
	Timeout         time.Duration // Per attempt
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker overrides DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives the client on construction and every call outcome.
	Registry *Registry

	Logger zerolog.Logger
}

// DefaultClientConfig returns the settings used for routing providers.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		CircuitBreaker:  &cb,
		Logger:          zerolog.Nop(),
	}
}

// Client wraps http.Client with a circuit breaker and exponential retries.
// 5xx responses and transport errors are retried; other statuses are
// returned to the caller on the first attempt.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	registry *Registry
	cfg      ClientConfig
}

// NewClient creates a resilient client and registers it with cfg.Registry
// when one is set.
func NewClient(cfg ClientConfig) *Client {
	defaults := DefaultClientConfig(cfg.Name)
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = defaults.InitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = defaults.MaxInterval
	}

	cb := *defaults.CircuitBreaker
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}
	notify := cb.OnStateChange
	if notify == nil {
		notify = LogStateChange(cfg.Logger)
	}
	cb.OnStateChange = func(breaker string, from, to gobreaker.State) {
		notify(breaker, from, to)
		if cfg.Registry != nil {
			cfg.Registry.RecordStateChange(cfg.Name, to)
		}
	}

	c := &Client{
		name:     cfg.Name,
		http:     &http.Client{Timeout: cfg.Timeout},
		breaker:  NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type param, not response
		registry: cfg.Registry,
		cfg:      cfg,
	}
	if c.registry != nil {
		c.registry.Register(c.name, c)
	}
	return c
}

// Name returns the provider name this client was created for.
func (c *Client) Name() string {
	return c.name
}

// Do executes req under the breaker, retrying transient failures with
// exponential backoff until req's context ends.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext is Do with an explicit context. Requests with a body must be
// replayable (GetBody set, as http.NewRequest does for in-memory readers)
// to be retried.
//
// When retries are exhausted on 5xx responses, the last response is returned
// with a nil error so callers can map the status themselves.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	var (
		last    *http.Response
		attempt int
	)
	keep := func(resp *http.Response) {
		if last != nil && last != resp {
			last.Body.Close()
		}
		last = resp
	}

	err := backoff.Retry(func() error {
		attempt++
		resp, err := c.attempt(ctx, req, attempt)
		if resp != nil {
			keep(resp)
		}
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case errors.Is(err, errBodyNotReplayable):
			return backoff.Permanent(err)
		}
		return err
	}, c.policy(ctx))

	if err == nil {
		c.record(nil)
		return last, nil
	}
	// A canceled caller says nothing about the provider.
	if ctx.Err() == nil {
		c.record(err)
	}
	if last != nil {
		return last, nil
	}
	if attempt > 1 && ctx.Err() == nil && !errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
	}
	return nil, err
}

var errBodyNotReplayable = errors.New("request body cannot be replayed for retry")

// attempt sends one copy of req through the breaker. 5xx responses come back
// together with a *ServerError so they count as breaker failures.
func (c *Client) attempt(ctx context.Context, req *http.Request, n int) (*http.Response, error) {
	out := req.Clone(ctx)
	if n > 1 && req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errBodyNotReplayable
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewinding request body: %w", err)
		}
		out.Body = body
	}

	return c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to the caller
		resp, err := c.http.Do(out)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0 // bounded by MaxRetries
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

// ServerError is a 5xx response from the provider.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the breaker's counts for the current interval.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
