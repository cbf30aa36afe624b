package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/api/response"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/shipment"
)

// DistanceHandler handles one-off distance calculations.
type DistanceHandler struct {
	resolver shipment.DistanceResolver
	logger   zerolog.Logger
}

// NewDistanceHandler creates a new DistanceHandler.
func NewDistanceHandler(resolver shipment.DistanceResolver, logger zerolog.Logger) *DistanceHandler {
	return &DistanceHandler{resolver: resolver, logger: logger}
}

// DistanceResponse is the result of a distance calculation.
type DistanceResponse struct {
	TransportMode distance.Mode `json:"transport_mode"`
	distance.Result
}

// Calculate handles POST /v1/distance:calculate.
func (h *DistanceHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req models.DistanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	mode, err := distance.ParseMode(req.TransportMode)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.resolver.Resolve(r.Context(), toLocation(req.FromLocation).Point(), toLocation(req.ToLocation).Point(), mode)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.JSON(w, r, http.StatusOK, DistanceResponse{TransportMode: mode, Result: res})
}

func toLocation(l models.LocationRequest) shipment.Location {
	return shipment.Location{
		Address:   l.Address,
		Latitude:  l.Latitude,
		Longitude: l.Longitude,
		Kind:      l.Type,
	}.WithDefaults()
}
