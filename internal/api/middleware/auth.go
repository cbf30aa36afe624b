package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/auth"
)

type claimsKey struct{}

// TokenValidator validates admin bearer tokens.
type TokenValidator interface {
	ValidateAdmin(token string) (*auth.Claims, error)
}

// authFailures maps validator errors to problem details, checked in order.
// Only ErrForbidden yields 403; everything else is a 401.
var authFailures = []struct {
	err    error
	detail string
}{
	{auth.ErrNotConfigured, "admin access is disabled"},
	{auth.ErrAccessTokenExpired, "access token has expired"},
	{auth.ErrForbidden, "admin role required"},
	{auth.ErrInvalidAccessToken, "invalid access token"},
}

// AdminAuth requires a bearer token carrying the admin role. The validated
// claims are available to handlers through GetClaims and GetSubject.
func AdminAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, detail := bearerToken(r.Header.Get("Authorization"))
			if detail != "" {
				unauthorized(w, r, detail)
				return
			}

			claims, err := validator.ValidateAdmin(token)
			if err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					models.NewForbidden(GetRequestID(r.Context()), "admin role required").
						WithInstance(r.URL.Path).
						Write(w)
					return
				}
				unauthorized(w, r, failureDetail(err))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization header. The scheme is
// case-insensitive. A non-empty detail describes why the header is unusable.
func bearerToken(header string) (token, detail string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization header format"
	}
	if token = strings.TrimSpace(rest); token == "" {
		return "", "missing bearer token"
	}
	return token, ""
}

func failureDetail(err error) string {
	for _, f := range authFailures {
		if errors.Is(err, f.err) {
			return f.detail
		}
	}
	return "authentication failed"
}

func unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="freightledger-admin"`)
	models.NewUnauthorized(GetRequestID(r.Context()), detail).
		WithInstance(r.URL.Path).
		Write(w)
}

// GetClaims returns the validated admin claims, or nil outside AdminAuth.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims
}

// GetSubject returns the authenticated admin subject, or an empty string.
func GetSubject(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.Subject
	}
	return ""
}
