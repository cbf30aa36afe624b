package shipment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/freightledger/freightledger/internal/distance"
	"github.com/freightledger/freightledger/internal/goods"
)

// DecodeError reports a stored shipment whose shape does not match the
// expected schema.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding stored shipment: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("decoding stored shipment: %s: %s", e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StoredRecord is a shipment as held by the document store. Good and Legs
// hold the raw JSON documents.
type StoredRecord struct {
	ID        string
	Good      []byte
	Legs      []byte
	CreatedAt time.Time

	TotalDistance  float64
	TotalCost      float64
	TotalEmissions float64

	UpstreamEmissions     float64
	DownstreamEmissions   float64
	CompanyOwnedEmissions float64
	UpstreamCost          float64
	DownstreamCost        float64
	CompanyOwnedCost      float64
}

// DecodeStored turns a stored record into a validated Shipment.
func DecodeStored(rec StoredRecord) (*Shipment, error) {
	if rec.ID == "" {
		return nil, &DecodeError{Field: "id", Reason: "is empty"}
	}

	var good goods.Good
	if err := strictUnmarshal(rec.Good, &good); err != nil {
		return nil, &DecodeError{Field: "good", Reason: "malformed document", Err: err}
	}
	if good.Name == "" {
		return nil, &DecodeError{Field: "good.name", Reason: "is empty"}
	}
	if !good.Unit.Valid() {
		return nil, &DecodeError{Field: "good.unit", Reason: fmt.Sprintf("unknown unit %q", good.Unit)}
	}
	good.Category = good.Category.OrDefault()
	if !good.Category.Valid() {
		return nil, &DecodeError{Field: "good.ghg_category", Reason: fmt.Sprintf("unknown category %q", good.Category)}
	}

	var legs []Leg
	if err := strictUnmarshal(rec.Legs, &legs); err != nil {
		return nil, &DecodeError{Field: "transport_legs", Reason: "malformed document", Err: err}
	}
	for i := range legs {
		if err := validateStoredLeg(i, &legs[i]); err != nil {
			return nil, err
		}
	}

	return &Shipment{
		ID:                    rec.ID,
		Good:                  good,
		Legs:                  legs,
		TotalDistance:         rec.TotalDistance,
		TotalCost:             rec.TotalCost,
		TotalEmissions:        rec.TotalEmissions,
		UpstreamEmissions:     rec.UpstreamEmissions,
		DownstreamEmissions:   rec.DownstreamEmissions,
		CompanyOwnedEmissions: rec.CompanyOwnedEmissions,
		UpstreamCost:          rec.UpstreamCost,
		DownstreamCost:        rec.DownstreamCost,
		CompanyOwnedCost:      rec.CompanyOwnedCost,
		CreatedAt:             rec.CreatedAt,
	}, nil
}

// EncodeStored is the inverse of DecodeStored.
func EncodeStored(s *Shipment) (StoredRecord, error) {
	good, err := json.Marshal(s.Good)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("encoding good: %w", err)
	}

	legs := s.Legs
	if legs == nil {
		legs = []Leg{}
	}
	legsJSON, err := json.Marshal(legs)
	if err != nil {
		return StoredRecord{}, fmt.Errorf("encoding legs: %w", err)
	}

	return StoredRecord{
		ID:                    s.ID,
		Good:                  good,
		Legs:                  legsJSON,
		CreatedAt:             s.CreatedAt,
		TotalDistance:         s.TotalDistance,
		TotalCost:             s.TotalCost,
		TotalEmissions:        s.TotalEmissions,
		UpstreamEmissions:     s.UpstreamEmissions,
		DownstreamEmissions:   s.DownstreamEmissions,
		CompanyOwnedEmissions: s.CompanyOwnedEmissions,
		UpstreamCost:          s.UpstreamCost,
		DownstreamCost:        s.DownstreamCost,
		CompanyOwnedCost:      s.CompanyOwnedCost,
	}, nil
}

func validateStoredLeg(i int, leg *Leg) error {
	field := func(name string) string {
		return fmt.Sprintf("transport_legs[%d].%s", i, name)
	}

	if !leg.Mode.Valid() {
		return &DecodeError{Field: field("transport_mode"), Reason: fmt.Sprintf("unknown mode %q", leg.Mode)}
	}
	if leg.DistanceKm < 0 || math.IsNaN(leg.DistanceKm) {
		return &DecodeError{Field: field("distance_km"), Reason: "must be non-negative"}
	}
	if leg.DistanceMethod == "" && leg.ManualDistance {
		leg.DistanceMethod = distance.MethodManual
	}
	leg.From = leg.From.WithDefaults()
	leg.To = leg.To.WithDefaults()
	return nil
}

func strictUnmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty document")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
