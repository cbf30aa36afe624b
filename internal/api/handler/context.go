package handler

import (
	"net/http"

	"github.com/freightledger/freightledger/internal/api/middleware"
)

// middlewareSubject returns the admin subject set by middleware.AdminAuth.
func middlewareSubject(r *http.Request) string {
	return middleware.GetSubject(r.Context())
}
