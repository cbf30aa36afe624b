package models

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus reports storage, routing providers and engine state.
// ActiveDegradationFlags names each provider whose legs are currently
// served by a fallback, e.g. "searoute_fallback".
type SystemStatus struct {
	Status                 HealthStatus      `json:"status"`
	Time                   Timestamp         `json:"time"`
	Subsystems             []SubsystemStatus `json:"subsystems"`
	Providers              []ProviderStatus  `json:"providers"`
	Engine                 *EngineStatus     `json:"engine,omitempty"`
	ActiveDegradationFlags []string          `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus represents the status of a subsystem.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus is one routing provider's breaker state.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	LastStateChangeAt   *Timestamp   `json:"lastStateChangeAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}

// EngineStatus describes the computation caches.
type EngineStatus struct {
	DistanceCacheEntries int `json:"distanceCacheEntries"`
	DistanceCacheFresh   int `json:"distanceCacheFresh"`
	EmissionFactors      int `json:"emissionFactors"`
}
