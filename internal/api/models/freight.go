package models

// GoodRequest is the body of POST /v1/goods.
type GoodRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Unit        string  `json:"unit" validate:"required,oneof=kg tons"`
	GHGCategory string  `json:"ghg_category,omitempty" validate:"omitempty,oneof=upstream downstream company_owned"`
}

// ShipmentGood is the good embedded in a shipment request. It may reference a
// stored good by id but always carries the values used for computation.
type ShipmentGood struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name" validate:"required,max=200"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Unit        string  `json:"unit" validate:"required,oneof=kg tons"`
	GHGCategory string  `json:"ghg_category,omitempty" validate:"omitempty,oneof=upstream downstream company_owned"`
}

// FactorRequest is the body of POST and PUT /v1/emission-factors.
type FactorRequest struct {
	TransportMode  string  `json:"transport_mode" validate:"required"`
	VehicleType    string  `json:"vehicle_type" validate:"required,max=100"`
	EmissionFactor float64 `json:"emission_factor" validate:"gte=0"`
	Unit           string  `json:"unit,omitempty" validate:"omitempty,max=50"`
}

// LocationRequest is a leg endpoint.
type LocationRequest struct {
	Address   string  `json:"address" validate:"max=500"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Type      string  `json:"type,omitempty" validate:"omitempty,oneof=general airport port railway_station"`
}

// DistanceRequest is the body of POST /v1/distance:calculate.
type DistanceRequest struct {
	FromLocation  LocationRequest `json:"from_location"`
	ToLocation    LocationRequest `json:"to_location"`
	TransportMode string          `json:"transport_mode" validate:"required"`
}

// LegRequest is one leg of a shipment request.
type LegRequest struct {
	FromLocation   LocationRequest `json:"from_location"`
	ToLocation     LocationRequest `json:"to_location"`
	TransportMode  string          `json:"transport_mode" validate:"required"`
	VehicleType    string          `json:"vehicle_type" validate:"max=100"`
	CostType       string          `json:"cost_type" validate:"max=20"`
	CostValue      float64         `json:"cost_value" validate:"gte=0"`
	ManualDistance *float64        `json:"manual_distance,omitempty" validate:"omitempty,gte=0"`
}

// ShipmentRequest is the body of POST /v1/shipments.
type ShipmentRequest struct {
	Good          ShipmentGood `json:"good"`
	TransportLegs []LegRequest `json:"transport_legs" validate:"required,min=1,max=50,dive"`
}

// BulkDeleteRequest is the body of DELETE /v1/shipments.
type BulkDeleteRequest struct {
	ShipmentIDs []string `json:"shipment_ids" validate:"required,min=1,max=1000,dive,required"`
}

// BulkDeleteResponse reports how many shipments were removed.
type BulkDeleteResponse struct {
	Deleted int `json:"deleted_count"`
}

// AnalyticsRequest is the body of POST /v1/shipments/analytics.
type AnalyticsRequest struct {
	TimePeriod string `json:"time_period" validate:"required"`
}

// SeedResponse reports how many default factors were inserted.
type SeedResponse struct {
	Inserted int `json:"inserted"`
}

// ResetResponse reports how many shipments were removed by a reset.
type ResetResponse struct {
	Deleted int `json:"deleted_count"`
}

// ListResponse wraps a list payload.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse builds a ListResponse, never with a nil Items slice.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}
