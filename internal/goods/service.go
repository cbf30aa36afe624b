package goods

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/models"
)

// MaxNameLength bounds a good's name.
const MaxNameLength = 200

// Service provides goods operations.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new goods service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create validates and stores a new good.
func (s *Service) Create(ctx context.Context, input Input) (*Good, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Unit = strings.ToLower(strings.TrimSpace(input.Unit))
	input.Category = strings.ToLower(strings.TrimSpace(input.Category))

	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	g := &Good{
		ID:        "gd_" + uuid.New().String()[:22],
		Name:      input.Name,
		Quantity:  input.Quantity,
		Unit:      Unit(input.Unit),
		Category:  Category(input.Category).OrDefault(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	s.logger.Info().Str("good_id", g.ID).Str("ghg_category", string(g.Category)).Msg("good created")
	return g, nil
}

// Get retrieves a good by ID.
func (s *Service) Get(ctx context.Context, id string) (*Good, error) {
	return s.repo.Get(ctx, id)
}

// List returns all goods.
func (s *Service) List(ctx context.Context) ([]*Good, error) {
	return s.repo.List(ctx)
}

// Validate checks a good built outside the service, such as one read from a
// request file. It returns a *ValidationError or nil.
func Validate(g Good) error {
	fieldErrors := validateInput(Input{
		Name:     strings.TrimSpace(g.Name),
		Quantity: g.Quantity,
		Unit:     string(g.Unit),
		Category: string(g.Category),
	})
	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}
	return nil
}

func validateInput(in Input) []models.FieldError {
	var errs []models.FieldError

	if in.Name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "is required"})
	} else if len(in.Name) > MaxNameLength {
		errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 200 characters"})
	}

	if math.IsNaN(in.Quantity) || math.IsInf(in.Quantity, 0) || in.Quantity <= 0 {
		errs = append(errs, models.FieldError{Field: "quantity", Message: "must be greater than 0"})
	}

	if !Unit(in.Unit).Valid() {
		errs = append(errs, models.FieldError{Field: "unit", Message: "must be one of kg, tons"})
	}

	if in.Category != "" && !Category(in.Category).Valid() {
		errs = append(errs, models.FieldError{Field: "ghg_category", Message: "must be one of upstream, downstream, company_owned"})
	}

	return errs
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
