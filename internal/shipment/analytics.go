package shipment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/freightledger/freightledger/internal/goods"
)

// ErrInvalidPeriod is returned for unknown analytics periods.
var ErrInvalidPeriod = errors.New("invalid time period: must be one of 7days, 30days, 2months, 6months, 1year")

// periodDays maps analytics periods to their length in days.
var periodDays = map[string]int{
	"7days":   7,
	"30days":  30,
	"2months": 60,
	"6months": 180,
	"1year":   365,
}

// PeriodStart returns the start of an analytics period ending at now.
func PeriodStart(period string, now time.Time) (time.Time, error) {
	days, ok := periodDays[period]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return now.AddDate(0, 0, -days), nil
}

// GoodBreakdown aggregates shipments of one good.
type GoodBreakdown struct {
	Name      string  `json:"name"`
	Cost      float64 `json:"cost"`
	Emissions float64 `json:"emissions"`
	Distance  float64 `json:"distance"`
	Count     int     `json:"count"`
}

// TripAnalytics summarizes shipments created within a period.
type TripAnalytics struct {
	TimePeriod                  string          `json:"time_period"`
	TotalShipments              int             `json:"total_shipments"`
	TotalCost                   float64         `json:"total_cost"`
	TotalEmissions              float64         `json:"total_emissions"`
	TotalDistance               float64         `json:"total_distance"`
	GoodsBreakdown              []GoodBreakdown `json:"goods_breakdown"`
	AverageCostPerShipment      float64         `json:"average_cost_per_shipment"`
	AverageEmissionsPerShipment float64         `json:"average_emissions_per_shipment"`
}

// ScatterPoint is one shipment plotted by cost against emissions.
type ScatterPoint struct {
	GoodName   string  `json:"good_name"`
	Cost       float64 `json:"cost"`
	Emissions  float64 `json:"emissions"`
	Quantity   float64 `json:"quantity"`
	ShipmentID string  `json:"shipment_id"`
}

// ScatterTotals holds per-category emission totals.
type ScatterTotals struct {
	UpstreamEmissions     float64 `json:"upstream_emissions"`
	DownstreamEmissions   float64 `json:"downstream_emissions"`
	CompanyOwnedEmissions float64 `json:"company_owned_emissions"`
	TotalEmissions        float64 `json:"total_emissions"`
}

// ScatterAnalytics groups shipments by GHG category.
type ScatterAnalytics struct {
	Upstream     []ScatterPoint `json:"upstream"`
	Downstream   []ScatterPoint `json:"downstream"`
	CompanyOwned []ScatterPoint `json:"company_owned"`
	Totals       ScatterTotals  `json:"totals"`
}

// ComputeTripAnalytics summarizes shipments. The goods breakdown is ordered
// by each good's first appearance in shipments.
func ComputeTripAnalytics(period string, shipments []*Shipment) TripAnalytics {
	a := TripAnalytics{
		TimePeriod:     period,
		TotalShipments: len(shipments),
		GoodsBreakdown: []GoodBreakdown{},
	}

	index := make(map[string]int)
	for _, s := range shipments {
		a.TotalCost += s.TotalCost
		a.TotalEmissions += s.TotalEmissions
		a.TotalDistance += s.TotalDistance

		name := s.Good.Name
		if name == "" {
			name = "Unknown"
		}
		i, ok := index[name]
		if !ok {
			i = len(a.GoodsBreakdown)
			index[name] = i
			a.GoodsBreakdown = append(a.GoodsBreakdown, GoodBreakdown{Name: name})
		}
		b := &a.GoodsBreakdown[i]
		b.Cost += s.TotalCost
		b.Emissions += s.TotalEmissions
		b.Distance += s.TotalDistance
		b.Count++
	}

	if a.TotalShipments > 0 {
		a.AverageCostPerShipment = round2(a.TotalCost / float64(a.TotalShipments))
		a.AverageEmissionsPerShipment = round2(a.TotalEmissions / float64(a.TotalShipments))
	}
	a.TotalCost = round2(a.TotalCost)
	a.TotalEmissions = round2(a.TotalEmissions)
	a.TotalDistance = round2(a.TotalDistance)
	for i := range a.GoodsBreakdown {
		b := &a.GoodsBreakdown[i]
		b.Cost = round2(b.Cost)
		b.Emissions = round2(b.Emissions)
		b.Distance = round2(b.Distance)
	}
	return a
}

// ComputeScatter plots shipments with cost or emissions by category.
func ComputeScatter(shipments []*Shipment) ScatterAnalytics {
	sc := ScatterAnalytics{
		Upstream:     []ScatterPoint{},
		Downstream:   []ScatterPoint{},
		CompanyOwned: []ScatterPoint{},
	}

	for _, s := range shipments {
		if s.TotalCost <= 0 && s.TotalEmissions <= 0 {
			continue
		}

		p := ScatterPoint{
			GoodName:   s.Good.Name,
			Cost:       round2(s.TotalCost),
			Emissions:  round2(s.TotalEmissions),
			Quantity:   s.Good.Quantity,
			ShipmentID: s.ID,
		}

		switch s.Good.Category.OrDefault() {
		case goods.CategoryDownstream:
			sc.Downstream = append(sc.Downstream, p)
			sc.Totals.DownstreamEmissions += s.TotalEmissions
		case goods.CategoryCompanyOwned:
			sc.CompanyOwned = append(sc.CompanyOwned, p)
			sc.Totals.CompanyOwnedEmissions += s.TotalEmissions
		default:
			sc.Upstream = append(sc.Upstream, p)
			sc.Totals.UpstreamEmissions += s.TotalEmissions
		}
	}

	sc.Totals.TotalEmissions = round2(sc.Totals.UpstreamEmissions + sc.Totals.DownstreamEmissions + sc.Totals.CompanyOwnedEmissions)
	sc.Totals.UpstreamEmissions = round2(sc.Totals.UpstreamEmissions)
	sc.Totals.DownstreamEmissions = round2(sc.Totals.DownstreamEmissions)
	sc.Totals.CompanyOwnedEmissions = round2(sc.Totals.CompanyOwnedEmissions)
	return sc
}

// TripAnalytics summarizes the shipments created within period.
func (s *Service) TripAnalytics(ctx context.Context, period string) (*TripAnalytics, error) {
	since, err := PeriodStart(period, s.now())
	if err != nil {
		return nil, err
	}

	shipments, err := s.repo.List(ctx, ListOptions{Since: since})
	if err != nil {
		return nil, err
	}
	reverse(shipments)

	a := ComputeTripAnalytics(period, shipments)
	return &a, nil
}

// ScatterAnalytics plots every stored shipment by category.
func (s *Service) ScatterAnalytics(ctx context.Context) (*ScatterAnalytics, error) {
	shipments, err := s.repo.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	reverse(shipments)

	sc := ComputeScatter(shipments)
	return &sc, nil
}

// reverse turns a newest-first listing into creation order.
func reverse(shipments []*Shipment) {
	for i, j := 0, len(shipments)-1; i < j; i, j = i+1, j-1 {
		shipments[i], shipments[j] = shipments[j], shipments[i]
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
