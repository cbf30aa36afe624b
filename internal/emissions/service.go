package emissions

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/distance"
)

// MaxVehicleTypeLength bounds the vehicle type key.
const MaxVehicleTypeLength = 100

// ServiceConfig holds configuration for the emission factor service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // How long a catalog snapshot is reused
	Defaults   []FactorInput // Seed catalog; nil loads the embedded defaults
}

// Service manages emission factors and serves catalog snapshots.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration
	defaults []FactorInput

	mu          sync.RWMutex
	snapshot    *Catalog
	cacheExpiry time.Time
}

// NewService creates a new emission factor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	defaults := cfg.Defaults
	if defaults == nil {
		var err error
		defaults, err = DefaultFactors()
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		defaults: defaults,
	}, nil
}

// Snapshot returns a consistent view of the whole catalog. The snapshot is
// cached for the configured TTL and dropped on every write.
func (s *Service) Snapshot(ctx context.Context) (*Catalog, error) {
	s.mu.RLock()
	if s.snapshot != nil && time.Now().Before(s.cacheExpiry) {
		c := s.snapshot
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	factors, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	c := NewCatalog(factors)

	s.mu.Lock()
	s.snapshot = c
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return c, nil
}

// InvalidateCache drops the cached snapshot.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.cacheExpiry = time.Time{}
}

// LegFunc computes the emissions of one leg against a fixed catalog
// snapshot. found is false when no factor matches.
type LegFunc func(mode distance.Mode, vehicleType string, massKg, distanceKm float64) (kg float64, found bool)

// Calculator takes one catalog snapshot and returns a LegFunc over it, so
// every leg of a shipment sees the same factors. Missing factors are logged
// as a data quality warning and count as zero emissions.
func (s *Service) Calculator(ctx context.Context) (LegFunc, error) {
	c, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return func(mode distance.Mode, vehicleType string, massKg, distanceKm float64) (float64, bool) {
		kg, found := c.LegEmissions(mode, vehicleType, massKg, distanceKm)
		if !found {
			s.logger.Warn().
				Str("transport_mode", string(mode)).
				Str("vehicle_type", vehicleType).
				Msg("no emission factor for leg, emissions counted as zero")
		}
		return kg, found
	}, nil
}

// LegEmissions looks up the factor for a single leg and computes its
// emissions. A missing factor yields zero emissions and found=false.
func (s *Service) LegEmissions(ctx context.Context, mode distance.Mode, vehicleType string, massKg, distanceKm float64) (float64, bool, error) {
	calc, err := s.Calculator(ctx)
	if err != nil {
		return 0, false, err
	}
	kg, found := calc(mode, vehicleType, massKg, distanceKm)
	return kg, found, nil
}

// List returns every factor.
func (s *Service) List(ctx context.Context) ([]*Factor, error) {
	return s.repo.List(ctx)
}

// Get retrieves a factor by ID.
func (s *Service) Get(ctx context.Context, id string) (*Factor, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new factor.
func (s *Service) Create(ctx context.Context, input FactorInput) (*Factor, error) {
	input = normalize(input)
	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	now := time.Now().UTC()
	f := &Factor{
		ID:          newFactorID(),
		Mode:        distance.Mode(input.Mode),
		VehicleType: input.VehicleType,
		Value:       input.Value,
		Unit:        input.Unit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	s.InvalidateCache()

	s.logger.Info().
		Str("factor_id", f.ID).
		Str("transport_mode", string(f.Mode)).
		Str("vehicle_type", f.VehicleType).
		Msg("emission factor created")
	return f, nil
}

// Update replaces the writable fields of an existing factor.
func (s *Service) Update(ctx context.Context, id string, input FactorInput) (*Factor, error) {
	input = normalize(input)
	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	f.Mode = distance.Mode(input.Mode)
	f.VehicleType = input.VehicleType
	f.Value = input.Value
	f.Unit = input.Unit
	f.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	s.InvalidateCache()
	return f, nil
}

// Delete removes a factor by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateCache()
	return nil
}

// SeedDefaults stores the default catalog when no factors exist yet.
// It returns the number of factors inserted.
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug().Int("existing", n).Msg("emission factor catalog not empty, skipping seed")
		return 0, nil
	}

	now := time.Now().UTC()
	factors := make([]*Factor, 0, len(s.defaults))
	for _, in := range s.defaults {
		in = normalize(in)
		factors = append(factors, &Factor{
			ID:          newFactorID(),
			Mode:        distance.Mode(in.Mode),
			VehicleType: in.VehicleType,
			Value:       in.Value,
			Unit:        in.Unit,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := s.repo.CreateMany(ctx, factors); err != nil {
		return 0, err
	}
	s.InvalidateCache()

	s.logger.Info().Int("count", len(factors)).Msg("seeded default emission factors")
	return len(factors), nil
}

// VehicleTypes returns the sorted, distinct vehicle types known for a mode.
func (s *Service) VehicleTypes(ctx context.Context, mode distance.Mode) ([]string, error) {
	if !mode.Valid() {
		return nil, &distance.InvalidModeError{Mode: string(mode)}
	}

	factors, err := s.repo.ListByMode(ctx, mode)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(factors))
	types := make([]string, 0, len(factors))
	for _, f := range factors {
		if !seen[f.VehicleType] {
			seen[f.VehicleType] = true
			types = append(types, f.VehicleType)
		}
	}
	sort.Strings(types)
	return types, nil
}

func normalize(in FactorInput) FactorInput {
	in.Mode = strings.ToLower(strings.TrimSpace(in.Mode))
	in.VehicleType = strings.TrimSpace(in.VehicleType)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Unit == "" {
		in.Unit = UnitKgPerTonneKm
	}
	return in
}

func validateInput(in FactorInput) []models.FieldError {
	var errs []models.FieldError

	if !distance.Mode(in.Mode).Valid() {
		errs = append(errs, models.FieldError{Field: "transport_mode", Message: "must be one of road, rail, air, water"})
	}

	if in.VehicleType == "" {
		errs = append(errs, models.FieldError{Field: "vehicle_type", Message: "is required"})
	} else if len(in.VehicleType) > MaxVehicleTypeLength {
		errs = append(errs, models.FieldError{Field: "vehicle_type", Message: "must be at most 100 characters"})
	}

	if math.IsNaN(in.Value) || math.IsInf(in.Value, 0) || in.Value < 0 {
		errs = append(errs, models.FieldError{Field: "emission_factor", Message: "must be a non-negative number"})
	}

	return errs
}

func newFactorID() string {
	return "ef_" + uuid.New().String()[:22]
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
