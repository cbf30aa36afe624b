package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/api/response"
	"github.com/freightledger/freightledger/internal/location"
)

// LocationHandler handles location search.
type LocationHandler struct {
	service *location.Service
	logger  zerolog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(service *location.Service, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{service: service, logger: logger}
}

// Search handles GET /v1/locations/search?query=...&type=...
func (h *LocationHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := q.Get("type")
	switch kind {
	case "", location.KindGeneral, location.KindAirport, location.KindPort, location.KindRailwayStation:
	default:
		response.BadRequest(w, r, "invalid location type", []models.FieldError{{
			Field:   "type",
			Message: "must be one of general, airport, port, railway_station",
			Code:    "ONEOF",
		}})
		return
	}

	matches, err := h.service.Search(r.Context(), q.Get("query"), kind)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	response.List(w, r, matches)
}
