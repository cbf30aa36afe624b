package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/freightledger/freightledger/internal/api/models"
	"github.com/freightledger/freightledger/internal/api/response"
	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/emissions"
	"github.com/freightledger/freightledger/internal/provider/resilience"
)

// readinessTimeout bounds the dependency checks of the readiness probe.
const readinessTimeout = 2 * time.Second

// Pinger checks a dependency's connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheReporter exposes distance cache statistics.
type CacheReporter interface {
	CacheStats() distance.CacheStats
}

// OpsConfig holds the optional dependencies inspected by the ops endpoints.
// Any of them may be nil.
type OpsConfig struct {
	Version   string
	BuildTime string
	Database  Pinger // Nil means in-memory storage
	Providers *resilience.Registry
	Distances CacheReporter
	Factors   *emissions.Service
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Only storage gates readiness;
// routing providers have fallbacks.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	sub := h.databaseStatus(r.Context())

	status := http.StatusOK
	if sub.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, models.Health{
		Status:  sub.Status,
		Time:    models.Timestamp(time.Now()),
		Details: map[string]interface{}{sub.Name: sub.Status},
	})
}

// SystemStatus handles GET /v1/ops/status. Provider failures degrade the
// status but never fail it: every distance still resolves through analytic
// fallbacks.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	db := h.databaseStatus(ctx)

	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{db, h.factorStatus(ctx)},
		Providers:  []models.ProviderStatus{},
		Engine:     h.engineStatus(ctx),
	}
	switch {
	case db.Status == models.HealthStatusFail:
		status.Status = models.HealthStatusFail
	case status.Subsystems[1].Status != models.HealthStatusOK:
		status.Status = models.HealthStatusDegraded
	}

	if h.cfg.Providers != nil {
		for _, ph := range h.cfg.Providers.GetAllHealth() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, ph.Name+"_fallback")
				if status.Status == models.HealthStatusOK {
					status.Status = models.HealthStatusDegraded
				}
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	if h.cfg.Database == nil {
		detail := "in-memory storage"
		return models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK, Detail: &detail}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	if err := h.cfg.Database.Ping(ctx); err != nil {
		detail := err.Error()
		return models.SubsystemStatus{Name: "database", Status: models.HealthStatusFail, Detail: &detail}
	}
	return models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
}

// factorStatus degrades when the catalog is empty, since every leg would
// then report zero emissions.
func (h *OpsHandler) factorStatus(ctx context.Context) models.SubsystemStatus {
	sub := models.SubsystemStatus{Name: "emission_factors", Status: models.HealthStatusOK}
	if h.cfg.Factors == nil {
		return sub
	}

	catalog, err := h.cfg.Factors.Snapshot(ctx)
	switch {
	case err != nil:
		detail := err.Error()
		sub.Status, sub.Detail = models.HealthStatusDegraded, &detail
	case catalog.Len() == 0:
		detail := "no emission factors loaded"
		sub.Status, sub.Detail = models.HealthStatusDegraded, &detail
	}
	return sub
}

func (h *OpsHandler) engineStatus(ctx context.Context) *models.EngineStatus {
	if h.cfg.Distances == nil && h.cfg.Factors == nil {
		return nil
	}

	engine := &models.EngineStatus{}
	if h.cfg.Distances != nil {
		stats := h.cfg.Distances.CacheStats()
		engine.DistanceCacheEntries = stats.TotalEntries
		engine.DistanceCacheFresh = stats.FreshEntries
	}
	if h.cfg.Factors != nil {
		if catalog, err := h.cfg.Factors.Snapshot(ctx); err == nil {
			engine.EmissionFactors = catalog.Len()
		}
	}
	return engine
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		Status:              models.HealthStatusOK,
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		LastSuccessAt:       timestampPtr(ph.LastSuccessAt),
		LastFailureAt:       timestampPtr(ph.LastFailureAt),
		LastStateChangeAt:   timestampPtr(ph.LastStateChangeAt),
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
