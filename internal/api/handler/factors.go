package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/api/response"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/emissions"
)

// FactorHandler handles emission factor catalog endpoints.
type FactorHandler struct {
	service *emissions.Service
	logger  zerolog.Logger
}

// NewFactorHandler creates a new FactorHandler.
func NewFactorHandler(service *emissions.Service, logger zerolog.Logger) *FactorHandler {
	return &FactorHandler{service: service, logger: logger}
}

// ListFactors handles GET /v1/emission-factors.
func (h *FactorHandler) ListFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.List(w, r, factors)
}

// CreateFactor handles POST /v1/emission-factors.
func (h *FactorHandler) CreateFactor(w http.ResponseWriter, r *http.Request) {
	var req models.FactorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	factor, err := h.service.Create(r.Context(), factorInput(req))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/emission-factors/"+factor.ID, factor)
}

// UpdateFactor handles PUT /v1/emission-factors/{factorId}.
func (h *FactorHandler) UpdateFactor(w http.ResponseWriter, r *http.Request) {
	var req models.FactorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	factor, err := h.service.Update(r.Context(), chi.URLParam(r, "factorId"), factorInput(req))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, factor)
}

// DeleteFactor handles DELETE /v1/emission-factors/{factorId}.
func (h *FactorHandler) DeleteFactor(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "factorId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.NoContent(w, r)
}

// SeedFactors handles POST /v1/emission-factors/seed. Seeding is a no-op
// when the catalog already has factors.
func (h *FactorHandler) SeedFactors(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.SeedDefaults(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.SeedResponse{Inserted: n})
}

// VehicleTypes handles GET /v1/vehicle-types/{mode}.
func (h *FactorHandler) VehicleTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.VehicleTypes(r.Context(), distance.Mode(chi.URLParam(r, "mode")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.List(w, r, types)
}

func factorInput(req models.FactorRequest) emissions.FactorInput {
	return emissions.FactorInput{
		Mode:        req.TransportMode,
		VehicleType: req.VehicleType,
		Value:       req.EmissionFactor,
		Unit:        req.Unit,
	}
}
