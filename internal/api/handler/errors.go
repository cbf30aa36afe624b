package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/api/response"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/emissions"
	"github.com/freightledger/freightledger/internal/goods"
	"github.com/freightledger/freightledger/internal/location"
	"github.com/freightledger/freightledger/internal/shipment"
)

// writeError maps a service error to a problem response. Unexpected errors
// are logged and reported as 500 without internal detail.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	var (
		goodsInvalid   *goods.ValidationError
		factorsInvalid *emissions.ValidationError
		invalidMode    *distance.InvalidModeError
	)

	switch {
	case errors.As(err, &goodsInvalid):
		response.BadRequest(w, r, "invalid good", goodsInvalid.Errors)
	case errors.As(err, &factorsInvalid):
		response.BadRequest(w, r, "invalid emission factor", factorsInvalid.Errors)
	case errors.As(err, &invalidMode):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, shipment.ErrInvalidPeriod),
		errors.Is(err, location.ErrQueryTooShort):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, goods.ErrGoodNotFound),
		errors.Is(err, emissions.ErrFactorNotFound),
		errors.Is(err, shipment.ErrShipmentNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, emissions.ErrDuplicateFactor):
		response.Conflict(w, r, err.Error())
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
