package shipment

// AllocateCost returns the cost of a leg carrying massKg.
// Unknown cost types are applied as a flat total.
func AllocateCost(costType CostType, value, massKg float64) float64 {
	switch costType {
	case CostTypePerKg:
		return value * massKg
	case CostTypePerTon:
		return value * massKg / 1000
	default:
		return value
	}
}
