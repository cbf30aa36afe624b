package shipment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/emissions"
	"github.com/freightledger/freightledger/internal/events"
	"github.com/freightledger/freightledger/internal/geo"
	"github.com/freightledger/freightledger/internal/telemetry"
)

// DistanceResolver resolves leg distances.
type DistanceResolver interface {
	Resolve(ctx context.Context, origin, destination geo.Point, mode distance.Mode) (distance.Result, error)
}

// FactorSource provides emission calculators bound to one catalog snapshot.
type FactorSource interface {
	Calculator(ctx context.Context) (emissions.LegFunc, error)
}

// ServiceConfig holds configuration for the shipment service.
type ServiceConfig struct {
	Repository     Repository
	Resolver       DistanceResolver
	Factors        FactorSource
	Publisher      events.Publisher
	LegConcurrency int
	Logger         zerolog.Logger
}

// Service creates, lists and analyzes shipments.
type Service struct {
	repo           Repository
	resolver       DistanceResolver
	factors        FactorSource
	publisher      events.Publisher
	legConcurrency int
	logger         zerolog.Logger
	now            func() time.Time
}

// NewService creates a new shipment service.
func NewService(cfg ServiceConfig) *Service {
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	concurrency := cfg.LegConcurrency
	if concurrency <= 0 {
		concurrency = DefaultLegConcurrency
	}

	return &Service{
		repo:           cfg.Repository,
		resolver:       cfg.Resolver,
		factors:        cfg.Factors,
		publisher:      publisher,
		legConcurrency: concurrency,
		logger:         cfg.Logger,
		now:            time.Now,
	}
}

// Create computes a shipment and persists it. Any resolver or factor store
// failure aborts with a *CreationError and nothing is stored.
func (s *Service) Create(ctx context.Context, req CreateRequest) (_ *Shipment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "shipment.Create", attribute.Int("shipment.legs", len(req.Legs)))
	defer func() { telemetry.EndSpan(span, err) }()

	shp, err := s.Estimate(ctx, req)
	if err != nil {
		return nil, err
	}

	shp.ID = "shp_" + uuid.New().String()[:22]
	if err := s.repo.Create(ctx, shp); err != nil {
		return nil, &CreationError{Leg: -1, Cause: err}
	}
	span.SetAttributes(attribute.String("shipment.id", shp.ID))

	s.logger.Info().
		Str("shipment_id", shp.ID).
		Int("legs", len(shp.Legs)).
		Float64("total_distance", shp.TotalDistance).
		Float64("total_emissions", shp.TotalEmissions).
		Msg("shipment created")

	s.publish(ctx, events.Event{
		Type: events.TypeShipmentCreated,
		Key:  shp.ID,
		Data: createdEvent{
			ShipmentID:     shp.ID,
			GoodName:       shp.Good.Name,
			Category:       string(shp.Good.Category),
			Legs:           len(shp.Legs),
			TotalDistance:  shp.TotalDistance,
			TotalCost:      shp.TotalCost,
			TotalEmissions: shp.TotalEmissions,
		},
	})

	return shp, nil
}

// Estimate computes a shipment without persisting it. The result has no ID.
func (s *Service) Estimate(ctx context.Context, req CreateRequest) (*Shipment, error) {
	calc, err := s.factors.Calculator(ctx)
	if err != nil {
		return nil, &CreationError{Leg: -1, Cause: err}
	}

	return Aggregate(ctx, req.Good, req.Legs, s.resolver.Resolve, EmissionsFunc(calc), AggregateOptions{
		Concurrency: s.legConcurrency,
		Logger:      s.logger,
		Now:         s.now,
	})
}

// Get retrieves a shipment by ID.
func (s *Service) Get(ctx context.Context, id string) (*Shipment, error) {
	return s.repo.Get(ctx, id)
}

// List returns shipments newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Shipment, error) {
	return s.repo.List(ctx, ListOptions{Limit: limit})
}

// BulkDelete removes the given shipments and returns how many were deleted.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int("requested", len(ids)).Int("deleted", n).Msg("shipments deleted")
	if n > 0 {
		s.publish(ctx, events.Event{
			Type: events.TypeShipmentDeleted,
			Key:  ids[0],
			Data: deletedEvent{ShipmentIDs: ids, Deleted: n},
		})
	}
	return n, nil
}

// Reset removes every shipment.
func (s *Service) Reset(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Warn().Int("deleted", n).Msg("all shipments deleted")
	return n, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("event_type", e.Type).Str("key", e.Key).Msg("failed to publish event")
	}
}

type createdEvent struct {
	ShipmentID     string  `json:"shipment_id"`
	GoodName       string  `json:"good_name"`
	Category       string  `json:"ghg_category"`
	Legs           int     `json:"legs"`
	TotalDistance  float64 `json:"total_distance"`
	TotalCost      float64 `json:"total_cost"`
	TotalEmissions float64 `json:"total_emissions"`
}

type deletedEvent struct {
	ShipmentIDs []string `json:"shipment_ids"`
	Deleted     int      `json:"deleted"`
}
