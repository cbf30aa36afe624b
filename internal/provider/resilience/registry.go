package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a snapshot of one routing provider's breaker and its
// most recent outcomes.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	LastSuccessAt     *time.Time
	LastFailureAt     *time.Time
	LastStateChangeAt *time.Time // Nil until the breaker first changes state
	LastError         string
}

// IsHealthy reports a closed circuit.
func (h *ProviderHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports a half-open circuit, probing the provider again.
func (h *ProviderHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy reports an open circuit. Legs served by this provider use
// fallback distances until it closes.
func (h *ProviderHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Summary counts registered providers by circuit state.
type Summary struct {
	Healthy   int
	Degraded  int
	Unhealthy int
}

// Registry tracks the routing provider clients and their outcomes. The API
// status endpoint reads it to report which providers are being bypassed.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*registeredProvider
}

type registeredProvider struct {
	client            *Client
	lastSuccessAt     *time.Time
	lastFailureAt     *time.Time
	lastStateChangeAt *time.Time
	lastError         string
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*registeredProvider),
	}
}

// Register adds a provider client, replacing any client of the same name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &registeredProvider{client: client}
}

// Unregister removes a provider.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// RecordSuccess records a successful request for a provider.
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(p *registeredProvider, now time.Time) {
		p.lastSuccessAt = &now
	})
}

// RecordFailure records a failed request for a provider.
func (r *Registry) RecordFailure(name string, err error) {
	r.update(name, func(p *registeredProvider, now time.Time) {
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	})
}

// RecordStateChange notes when a provider's breaker last moved. Closing the
// breaker clears the last error.
func (r *Registry) RecordStateChange(name string, to gobreaker.State) {
	r.update(name, func(p *registeredProvider, now time.Time) {
		p.lastStateChangeAt = &now
		if to == gobreaker.StateClosed {
			p.lastError = ""
		}
	})
}

func (r *Registry) update(name string, fn func(p *registeredProvider, now time.Time)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		fn(p, time.Now())
	}
}

// GetHealth returns the health of one provider, or nil when it is not
// registered.
func (r *Registry) GetHealth(name string) *ProviderHealth {
	r.mu.RLock()
	p, ok := r.providers[name]
	if !ok {
		r.mu.RUnlock()
		return nil
	}
	h, client := p.snapshot(name)
	r.mu.RUnlock()

	return withBreaker(h, client)
}

// GetAllHealth returns the health of every provider, ordered by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	type entry struct {
		health *ProviderHealth
		client *Client
	}

	r.mu.RLock()
	entries := make([]entry, 0, len(r.providers))
	for name, p := range r.providers {
		h, client := p.snapshot(name)
		entries = append(entries, entry{h, client})
	}
	r.mu.RUnlock()

	// Breaker state is read outside the registry lock: state change hooks
	// run under the breaker's lock and then take the registry lock.
	health := make([]*ProviderHealth, 0, len(entries))
	for _, e := range entries {
		health = append(health, withBreaker(e.health, e.client))
	}
	sort.Slice(health, func(i, j int) bool { return health[i].Name < health[j].Name })

	return health
}

func (p *registeredProvider) snapshot(name string) (*ProviderHealth, *Client) {
	return &ProviderHealth{
		Name:              name,
		LastSuccessAt:     p.lastSuccessAt,
		LastFailureAt:     p.lastFailureAt,
		LastStateChangeAt: p.lastStateChangeAt,
		LastError:         p.lastError,
	}, p.client
}

func withBreaker(h *ProviderHealth, client *Client) *ProviderHealth {
	if client != nil {
		h.CircuitState = client.CircuitBreakerState()
		h.Counts = client.CircuitBreakerCounts()
	}
	return h
}

// Summarize counts providers by circuit state.
func (r *Registry) Summarize() Summary {
	var s Summary
	for _, h := range r.GetAllHealth() {
		switch {
		case h.IsUnhealthy():
			s.Unhealthy++
		case h.IsDegraded():
			s.Degraded++
		default:
			s.Healthy++
		}
	}
	return s
}

// Degraded reports whether any provider's circuit is not closed.
func (r *Registry) Degraded() bool {
	s := r.Summarize()
	return s.Degraded+s.Unhealthy > 0
}

// GetProviderNames returns the sorted names of all registered providers.
func (r *Registry) GetProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
