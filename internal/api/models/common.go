// Package models provides request and response models for the freightledger
// API. Domain records (goods, factors, shipments) are returned as-is; this
// package holds the request bodies, ops payloads and RFC7807 problems.
package models

import (
	"encoding/json"
	"time"
)

// HealthStatus is the status of the service, a subsystem or a provider.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED" // Serving, with fallbacks
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp marshals as second-precision RFC3339 in UTC.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339))
}

// UnmarshalJSON implements json.Unmarshaler. null leaves t unchanged.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}
