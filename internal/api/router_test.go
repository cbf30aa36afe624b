package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freightledger/freightledger/internal/api"
	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/auth"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/emissions"
	"github.com/freightledger/freightledger/internal/goods"
	"github.com/freightledger/freightledger/internal/location"
	"github.com/freightledger/freightledger/internal/provider/resilience"
	"github.com/freightledger/freightledger/internal/shipment"
)

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "freightledger",
		Audience:   "freightledger-admin",
	})
}

// generateTestToken mints a token for subject with the given role.
func generateTestToken(t *testing.T, role string) string {
	t.Helper()
	token, _, err := testJWTService().GenerateToken("ops@freightledger.io", role, time.Hour)
	require.NoError(t, err)
	return token
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	factors, err := emissions.NewService(emissions.ServiceConfig{
		Repository: emissions.NewInMemoryRepository(),
		Logger:     logger,
	})
	require.NoError(t, err)

	airports, err := location.DefaultAirportCatalog()
	require.NoError(t, err)

	resolver := distance.NewResolver(distance.ResolverConfig{Logger: logger})

	return api.NewRouter(api.RouterConfig{
		Version:       "test",
		BuildTime:     "2026-01-01T00:00:00Z",
		Logger:        logger,
		AdminAuth:     testJWTService(),
		Providers:     resilience.NewRegistry(),
		GoodsService:  goods.NewService(goods.NewInMemoryRepository(), logger),
		FactorService: factors,
		ShipmentService: shipment.NewService(shipment.ServiceConfig{
			Repository: shipment.NewInMemoryRepository(),
			Resolver:   resolver,
			Factors:    factors,
			Logger:     logger,
		}),
		LocationService: location.NewService(location.ServiceConfig{Airports: airports, Logger: logger}),
		Resolver:        resolver,
	})
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func seedFactors(t *testing.T, router http.Handler) {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/v1/emission-factors/seed", nil, generateTestToken(t, auth.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func roadShipment(name string, quantity float64) map[string]interface{} {
	return map[string]interface{}{
		"good": map[string]interface{}{
			"name":         name,
			"quantity":     quantity,
			"unit":         "kg",
			"ghg_category": "upstream",
		},
		"transport_legs": []map[string]interface{}{{
			"from_location":   map[string]interface{}{"address": "Mumbai", "latitude": 19.076, "longitude": 72.8777},
			"to_location":     map[string]interface{}{"address": "Pune", "latitude": 18.5204, "longitude": 73.8567},
			"transport_mode":  "road",
			"vehicle_type":    "Heavy Truck",
			"cost_type":       "per_kg",
			"cost_value":      2,
			"manual_distance": 100,
		}},
	}
}

func TestOpsEndpoints(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"health", "/v1/ops/health", http.StatusOK},
		{"ready", "/v1/ops/ready", http.StatusOK},
		{"status", "/v1/ops/status", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodGet, tt.path, nil, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}
}

func TestSystemStatus_InMemory(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/ops/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	decodeBody(t, rec, &status)
	assert.Equal(t, models.HealthStatusDegraded, status.Status, "an empty factor catalog degrades the status")
	require.Len(t, status.Subsystems, 2)
	assert.Equal(t, "database", status.Subsystems[0].Name)
	assert.Equal(t, models.HealthStatusOK, status.Subsystems[0].Status)
	assert.Equal(t, "emission_factors", status.Subsystems[1].Name)
	assert.Equal(t, models.HealthStatusDegraded, status.Subsystems[1].Status)
	assert.Empty(t, status.Providers)
	require.NotNil(t, status.Engine)
	assert.Zero(t, status.Engine.EmissionFactors)

	seedFactors(t, router)

	rec = doRequest(t, router, http.MethodGet, "/v1/ops/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = models.SystemStatus{}
	decodeBody(t, rec, &status)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Positive(t, status.Engine.EmissionFactors)
	assert.Zero(t, status.Engine.DistanceCacheEntries)
	assert.Empty(t, status.ActiveDegradationFlags)
}

func TestGoods_CreateListGet(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/goods", map[string]interface{}{
		"name":     "Steel coils",
		"quantity": 2.5,
		"unit":     "tons",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created goods.Good
	decodeBody(t, rec, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, goods.CategoryUpstream, created.Category)
	assert.Equal(t, "/v1/goods/"+created.ID, rec.Header().Get("Location"))

	rec = doRequest(t, router, http.MethodGet, "/v1/goods/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/v1/goods", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[goods.Good]
	decodeBody(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = doRequest(t, router, http.MethodGet, "/v1/goods/good_missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGoods_ValidationError(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/goods", map[string]interface{}{
		"name":     "",
		"quantity": -1,
		"unit":     "pounds",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem models.Problem
	decodeBody(t, rec, &problem)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)

	fields := make(map[string]bool)
	for _, fe := range problem.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["quantity"])
	assert.True(t, fields["unit"])
}

func TestGoods_MalformedJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/goods", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireJSON_RejectsForm(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/goods", bytes.NewBufferString("name=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestEmissionFactors_AdminRoutes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"invalid token", "not-a-jwt", http.StatusUnauthorized},
		{"non-admin role", generateTestToken(t, "viewer"), http.StatusForbidden},
		{"admin", generateTestToken(t, auth.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/v1/emission-factors/seed", nil, tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestEmissionFactors_SeedIsIdempotent(t *testing.T) {
	router := newTestRouter(t)
	token := generateTestToken(t, auth.RoleAdmin)

	rec := doRequest(t, router, http.MethodPost, "/v1/emission-factors/seed", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var first models.SeedResponse
	decodeBody(t, rec, &first)
	assert.Positive(t, first.Inserted)

	rec = doRequest(t, router, http.MethodPost, "/v1/emission-factors/seed", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var second models.SeedResponse
	decodeBody(t, rec, &second)
	assert.Zero(t, second.Inserted)

	rec = doRequest(t, router, http.MethodGet, "/v1/emission-factors", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[emissions.Factor]
	decodeBody(t, rec, &list)
	assert.Equal(t, first.Inserted, list.Count)
}

func TestEmissionFactors_CreateUpdateDelete(t *testing.T) {
	router := newTestRouter(t)
	token := generateTestToken(t, auth.RoleAdmin)

	body := map[string]interface{}{
		"transport_mode":  "road",
		"vehicle_type":    "Electric Van",
		"emission_factor": 0.05,
	}

	rec := doRequest(t, router, http.MethodPost, "/v1/emission-factors", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created emissions.Factor
	decodeBody(t, rec, &created)

	rec = doRequest(t, router, http.MethodPost, "/v1/emission-factors", body, token)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body["emission_factor"] = 0.06
	rec = doRequest(t, router, http.MethodPut, "/v1/emission-factors/"+created.ID, body, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated emissions.Factor
	decodeBody(t, rec, &updated)
	assert.InDelta(t, 0.06, updated.Value, 1e-9)

	rec = doRequest(t, router, http.MethodDelete, "/v1/emission-factors/"+created.ID, nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/v1/emission-factors/"+created.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVehicleTypes(t *testing.T) {
	router := newTestRouter(t)
	seedFactors(t, router)

	rec := doRequest(t, router, http.MethodGet, "/v1/vehicle-types/water", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[string]
	decodeBody(t, rec, &list)
	assert.Contains(t, list.Items, "Container Ship")

	rec = doRequest(t, router, http.MethodGet, "/v1/vehicle-types/teleport", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDistanceCalculate_AirGeodesic(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/distance:calculate", map[string]interface{}{
		"from_location":  map[string]interface{}{"address": "Mumbai", "latitude": 19.0896, "longitude": 72.8656},
		"to_location":    map[string]interface{}{"address": "Delhi", "latitude": 28.5562, "longitude": 77.1},
		"transport_mode": "air",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res map[string]interface{}
	decodeBody(t, rec, &res)
	assert.Equal(t, "air", res["transport_mode"])
	assert.Equal(t, string(distance.MethodGeodesic), res["method"])
	assert.InDelta(t, 1140, res["distance_km"], 25)
}

func TestDistanceCalculate_InvalidMode(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/v1/distance:calculate", map[string]interface{}{
		"from_location":  map[string]interface{}{"latitude": 19.0, "longitude": 72.8},
		"to_location":    map[string]interface{}{"latitude": 28.5, "longitude": 77.1},
		"transport_mode": "hyperloop",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShipments_CreateAndGet(t *testing.T) {
	router := newTestRouter(t)
	seedFactors(t, router)

	rec := doRequest(t, router, http.MethodPost, "/v1/shipments", roadShipment("Cement", 1000), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created shipment.Shipment
	decodeBody(t, rec, &created)
	require.Len(t, created.Legs, 1)
	assert.InDelta(t, 100, created.TotalDistance, 1e-9)
	assert.InDelta(t, 2000, created.TotalCost, 1e-9)
	assert.InDelta(t, 18, created.TotalEmissions, 1e-9)
	assert.InDelta(t, 18, created.UpstreamEmissions, 1e-9)
	assert.Equal(t, distance.MethodManual, created.Legs[0].DistanceMethod)
	assert.True(t, created.Legs[0].FactorFound)

	rec = doRequest(t, router, http.MethodGet, "/v1/shipments/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got shipment.Shipment
	decodeBody(t, rec, &got)
	assert.Equal(t, created.ID, got.ID)

	rec = doRequest(t, router, http.MethodGet, "/v1/shipments/shp_missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShipments_InvalidModeCreatesNothing(t *testing.T) {
	router := newTestRouter(t)

	body := roadShipment("Cement", 1000)
	body["transport_legs"].([]map[string]interface{})[0]["transport_mode"] = "Road"

	rec := doRequest(t, router, http.MethodPost, "/v1/shipments", body, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodGet, "/v1/shipments", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[shipment.Shipment]
	decodeBody(t, rec, &list)
	assert.Zero(t, list.Count)
}

func TestShipments_RequiresLegs(t *testing.T) {
	router := newTestRouter(t)

	body := roadShipment("Cement", 1000)
	body["transport_legs"] = []map[string]interface{}{}

	rec := doRequest(t, router, http.MethodPost, "/v1/shipments", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShipments_ListLimit(t *testing.T) {
	router := newTestRouter(t)
	seedFactors(t, router)

	for _, name := range []string{"Cement", "Rice", "Cotton"} {
		rec := doRequest(t, router, http.MethodPost, "/v1/shipments", roadShipment(name, 500), "")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, router, http.MethodGet, "/v1/shipments?limit=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[shipment.Shipment]
	decodeBody(t, rec, &list)
	assert.Equal(t, 2, list.Count)

	for _, limit := range []string{"0", "abc", "1001"} {
		rec = doRequest(t, router, http.MethodGet, "/v1/shipments?limit="+limit, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestShipments_BulkDelete(t *testing.T) {
	router := newTestRouter(t)
	seedFactors(t, router)

	var ids []string
	for _, name := range []string{"Cement", "Rice"} {
		rec := doRequest(t, router, http.MethodPost, "/v1/shipments", roadShipment(name, 500), "")
		require.Equal(t, http.StatusCreated, rec.Code)
		var s shipment.Shipment
		decodeBody(t, rec, &s)
		ids = append(ids, s.ID)
	}

	rec := doRequest(t, router, http.MethodDelete, "/v1/shipments", map[string]interface{}{
		"shipment_ids": []string{ids[0], "shp_unknown"},
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var deleted models.BulkDeleteResponse
	decodeBody(t, rec, &deleted)
	assert.Equal(t, 1, deleted.Deleted)

	rec = doRequest(t, router, http.MethodGet, "/v1/shipments/"+ids[0], nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doRequest(t, router, http.MethodGet, "/v1/shipments/"+ids[1], nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShipments_Analytics(t *testing.T) {
	router := newTestRouter(t)
	seedFactors(t, router)

	rec := doRequest(t, router, http.MethodPost, "/v1/shipments", roadShipment("Cement", 1000), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/v1/shipments/analytics", map[string]interface{}{
		"time_period": "30days",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var trip shipment.TripAnalytics
	decodeBody(t, rec, &trip)
	assert.Equal(t, 1, trip.TotalShipments)
	assert.InDelta(t, 18, trip.TotalEmissions, 1e-9)
	require.Len(t, trip.GoodsBreakdown, 1)
	assert.Equal(t, "Cement", trip.GoodsBreakdown[0].Name)

	rec = doRequest(t, router, http.MethodPost, "/v1/shipments/analytics", map[string]interface{}{
		"time_period": "fortnight",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/v1/shipments/scatter-analytics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var scatter shipment.ScatterAnalytics
	decodeBody(t, rec, &scatter)
	require.Len(t, scatter.Upstream, 1)
	assert.Empty(t, scatter.Downstream)
	assert.InDelta(t, 18, scatter.Totals.UpstreamEmissions, 1e-9)
}

func TestLocations_AirportSearch(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/locations/search?query=BOM&type=airport", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))

	var list models.ListResponse[location.Match]
	decodeBody(t, rec, &list)
	require.NotEmpty(t, list.Items)
	require.NotNil(t, list.Items[0].Airport)
	assert.Equal(t, "BOM", list.Items[0].Airport.IATACode)

	rec = doRequest(t, router, http.MethodGet, "/v1/locations/search?query=BOM&type=spaceport", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/v1/locations/search?query=a", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminReset(t *testing.T) {
	router := newTestRouter(t)
	seedFactors(t, router)

	rec := doRequest(t, router, http.MethodPost, "/v1/shipments", roadShipment("Cement", 1000), "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/v1/admin/reset", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/v1/admin/reset", nil, generateTestToken(t, auth.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reset models.ResetResponse
	decodeBody(t, rec, &reset)
	assert.Equal(t, 1, reset.Deleted)

	rec = doRequest(t, router, http.MethodGet, "/v1/shipments", nil, "")
	var list models.ListResponse[shipment.Shipment]
	decodeBody(t, rec, &list)
	assert.Zero(t, list.Count)
}

func TestAdminRoutes_DisabledWithoutSigningKey(t *testing.T) {
	logger := zerolog.New(io.Discard)
	factors, err := emissions.NewService(emissions.ServiceConfig{
		Repository: emissions.NewInMemoryRepository(),
		Logger:     logger,
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:        logger,
		FactorService: factors,
	})

	rec := doRequest(t, router, http.MethodPost, "/v1/emission-factors/seed", nil, generateTestToken(t, auth.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotFoundRoute(t *testing.T) {
	router := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/v1/nonexistent", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
