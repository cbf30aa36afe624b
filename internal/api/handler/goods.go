package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/api/response"
	"github.com/freightledger/freightledger/internal/goods"
)

// GoodsHandler handles goods endpoints.
type GoodsHandler struct {
	service *goods.Service
	logger  zerolog.Logger
}

// NewGoodsHandler creates a new GoodsHandler.
func NewGoodsHandler(service *goods.Service, logger zerolog.Logger) *GoodsHandler {
	return &GoodsHandler{service: service, logger: logger}
}

// CreateGood handles POST /v1/goods.
func (h *GoodsHandler) CreateGood(w http.ResponseWriter, r *http.Request) {
	var req models.GoodRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	good, err := h.service.Create(r.Context(), goods.Input{
		Name:     req.Name,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Category: req.GHGCategory,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, r, "/v1/goods/"+good.ID, good)
}

// ListGoods handles GET /v1/goods.
func (h *GoodsHandler) ListGoods(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.List(w, r, list)
}

// GetGood handles GET /v1/goods/{goodId}.
func (h *GoodsHandler) GetGood(w http.ResponseWriter, r *http.Request) {
	good, err := h.service.Get(r.Context(), chi.URLParam(r, "goodId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, good)
}
