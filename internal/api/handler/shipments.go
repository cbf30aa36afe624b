package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/api/response"
	"github.com/freightledger/freightledger/internal/goods"
	"github.com/freightledger/freightledger/internal/shipment"
)

// List limits for GET /v1/shipments.
const (
	DefaultShipmentLimit = 100
	MaxShipmentLimit     = 1000
)

// ShipmentHandler handles shipment and analytics endpoints.
type ShipmentHandler struct {
	service *shipment.Service
	logger  zerolog.Logger
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(service *shipment.Service, logger zerolog.Logger) *ShipmentHandler {
	return &ShipmentHandler{service: service, logger: logger}
}

// CreateShipment handles POST /v1/shipments.
func (h *ShipmentHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req models.ShipmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	shp, err := h.service.Create(r.Context(), toCreateRequest(req))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/v1/shipments/"+shp.ID, shp)
}

// ListShipments handles GET /v1/shipments?limit=N, newest first.
func (h *ShipmentHandler) ListShipments(w http.ResponseWriter, r *http.Request) {
	limit := DefaultShipmentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxShipmentLimit {
			response.BadRequest(w, r, "invalid limit", []models.FieldError{{
				Field:   "limit",
				Message: "must be an integer between 1 and " + strconv.Itoa(MaxShipmentLimit),
				Code:    "OUT_OF_RANGE",
			}})
			return
		}
		limit = n
	}

	list, err := h.service.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.List(w, r, list)
}

// GetShipment handles GET /v1/shipments/{shipmentId}.
func (h *ShipmentHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	shp, err := h.service.Get(r.Context(), chi.URLParam(r, "shipmentId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, shp)
}

// BulkDelete handles DELETE /v1/shipments.
func (h *ShipmentHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req models.BulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.service.BulkDelete(r.Context(), req.ShipmentIDs)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.BulkDeleteResponse{Deleted: n})
}

// TripAnalytics handles POST /v1/shipments/analytics.
func (h *ShipmentHandler) TripAnalytics(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyticsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	analytics, err := h.service.TripAnalytics(r.Context(), strings.TrimSpace(req.TimePeriod))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, analytics)
}

// ScatterAnalytics handles GET /v1/shipments/scatter-analytics.
func (h *ShipmentHandler) ScatterAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.ScatterAnalytics(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, analytics)
}

// Reset handles POST /v1/admin/reset.
func (h *ShipmentHandler) Reset(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Reset(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Warn().Str("admin", middlewareSubject(r)).Int("deleted", n).Msg("shipment store reset")
	response.JSON(w, r, http.StatusOK, models.ResetResponse{Deleted: n})
}

func toCreateRequest(req models.ShipmentRequest) shipment.CreateRequest {
	legs := make([]shipment.LegRequest, 0, len(req.TransportLegs))
	for _, l := range req.TransportLegs {
		legs = append(legs, shipment.LegRequest{
			From:           toLocation(l.FromLocation),
			To:             toLocation(l.ToLocation),
			Mode:           l.TransportMode,
			VehicleType:    strings.TrimSpace(l.VehicleType),
			CostType:       shipment.CostType(l.CostType),
			CostValue:      l.CostValue,
			ManualDistance: l.ManualDistance,
		})
	}

	return shipment.CreateRequest{
		Good: goods.Good{
			ID:       req.Good.ID,
			Name:     strings.TrimSpace(req.Good.Name),
			Quantity: req.Good.Quantity,
			Unit:     goods.Unit(req.Good.Unit),
			Category: goods.Category(req.Good.GHGCategory).OrDefault(),
		},
		Legs: legs,
	}
}
