// Package response writes JSON bodies and RFC7807 problems for the API
// handlers. Every response echoes the request ID in X-Request-Id.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/freightledger/freightledger/internal/api/middleware"
	"github.com/freightledger/freightledger/internal/api/models"
)

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// List writes items wrapped in a ListResponse. A nil slice is written as an
// empty list.
func List[T any](w http.ResponseWriter, r *http.Request, items []T) {
	JSON(w, r, http.StatusOK, models.NewListResponse(items))
}

// Created writes a 201 with a Location header pointing at the new resource.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Problem writes p, filling its trace ID and instance from the request.
func Problem(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	setRequestID(w, r)
	if p.TraceID == "" {
		p.TraceID = middleware.GetRequestID(r.Context())
	}
	p.Instance = r.URL.Path
	p.Write(w)
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Problem(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// Conflict writes a 409 problem, e.g. a duplicate emission factor key.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewConflict(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 problem. detail must not leak internal errors.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		w.Header().Set(middleware.RequestIDHeader, id)
	}
}
