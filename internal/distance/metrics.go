package distance

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/freightledger/freightledger/internal/distance"

// Metrics records provider calls, analytic fallbacks and cache lookups.
// A nil *Metrics records nothing.
type Metrics struct {
	providerDuration metric.Float64Histogram
	providerCalls    metric.Int64Counter
	fallbacks        metric.Int64Counter
	cacheLookups     metric.Int64Counter
}

// NewMetrics creates the instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	var m Metrics
	var err, e error
	m.providerDuration, e = meter.Float64Histogram("distance.provider.duration",
		metric.WithDescription("Duration of routing provider calls"),
		metric.WithUnit("s"))
	err = errors.Join(err, e)
	m.providerCalls, e = meter.Int64Counter("distance.provider.calls",
		metric.WithDescription("Routing provider calls by outcome"),
		metric.WithUnit("{call}"))
	err = errors.Join(err, e)
	m.fallbacks, e = meter.Int64Counter("distance.fallbacks",
		metric.WithDescription("Legs resolved with an analytic distance after a provider failure"),
		metric.WithUnit("{leg}"))
	err = errors.Join(err, e)
	m.cacheLookups, e = meter.Int64Counter("distance.cache.lookups",
		metric.WithDescription("Distance cache lookups by result"),
		metric.WithUnit("{lookup}"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordRequest records one provider call.
func (m *Metrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
		attribute.String("outcome", outcome),
	)
	// Recorded after the leg's context may already be canceled.
	ctx := context.Background()
	m.providerDuration.Record(ctx, duration.Seconds(), attrs)
	m.providerCalls.Add(ctx, 1, attrs)
}

// RecordFallback records a leg that fell back to an analytic distance.
func (m *Metrics) RecordFallback(mode Mode, method Method) {
	if m == nil {
		return
	}
	m.fallbacks.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("transport.mode", string(mode)),
		attribute.String("distance.method", string(method)),
	))
}

// RecordCache records a cache lookup.
func (m *Metrics) RecordCache(mode Mode, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("transport.mode", string(mode)),
		attribute.String("cache.result", result),
	))
}
