package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightledger/freightledger/internal/api/middleware"
	"github.com/freightledger/freightledger/internal/auth"
)

func newTestJWTService(key string) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: key,
		Issuer:     "freightledger",
		Audience:   "freightledger-admin",
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminAuth_MissingAuthorizationHeader(t *testing.T) {
	handler := middleware.AdminAuth(newTestJWTService("test-key"))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/reset", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAdminAuth_InvalidAuthorizationFormat(t *testing.T) {
	handler := middleware.AdminAuth(newTestJWTService("test-key"))(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase no space", "bearer"},
		{"empty bearer", "Bearer "},
		{"just bearer", "Bearer"},
		{"garbage token", "Bearer invalid.jwt.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/admin/reset", http.NoBody)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAdminAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService("test-key")
	token, _, err := svc.GenerateToken("ops@example.com", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	var subject string
	handler := middleware.AdminAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = middleware.GetSubject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/admin/reset", http.NoBody)
			req.Header.Set("Authorization", prefix+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ops@example.com", subject)
		})
	}
}

func TestAdminAuth_NonAdminForbidden(t *testing.T) {
	svc := newTestJWTService("test-key")
	token, _, err := svc.GenerateToken("viewer", "viewer", time.Hour)
	require.NoError(t, err)

	handler := middleware.AdminAuth(svc)(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/reset", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestAdminAuth_DisabledWithoutKey(t *testing.T) {
	token, _, err := newTestJWTService("test-key").GenerateToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	handler := middleware.AdminAuth(newTestJWTService(""))(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/reset", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin access is disabled")
}

func TestGetSubject_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetSubject(req.Context()))
}

func TestAdminAuth_ExpiredToken(t *testing.T) {
	issued := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	minting := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-key",
		Issuer:     "freightledger",
		Audience:   "freightledger-admin",
		Now:        func() time.Time { return issued },
	})
	token, _, err := minting.GenerateToken("ops", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	handler := middleware.AdminAuth(newTestJWTService("test-key"))(okHandler())
	req := httptest.NewRequest(http.MethodDelete, "/v1/emission-factors/ef_1", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "access token has expired")
	assert.Equal(t, `Bearer realm="freightledger-admin"`, rec.Header().Get("WWW-Authenticate"))
}

func TestAdminAuth_ExposesClaims(t *testing.T) {
	svc := newTestJWTService("test-key")
	token, _, err := svc.GenerateToken("ops@example.com", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	var claims *auth.Claims
	handler := middleware.AdminAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims = middleware.GetClaims(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/emission-factors/seed", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, claims)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.Nil(t, middleware.GetClaims(req.Context()))
}
