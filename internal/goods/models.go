// Package goods manages the goods that shipments carry.
package goods

import (
	"errors"
	"time"
)

// ErrGoodNotFound is returned when a good doesn't exist.
var ErrGoodNotFound = errors.New("good not found")

// Unit is the unit a good's quantity is expressed in.
type Unit string

// Quantity units.
const (
	UnitKg   Unit = "kg"
	UnitTons Unit = "tons"
)

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	return u == UnitKg || u == UnitTons
}

// Category is the GHG protocol scope bucket a good's shipments count toward.
type Category string

// GHG categories.
const (
	CategoryUpstream     Category = "upstream"
	CategoryDownstream   Category = "downstream"
	CategoryCompanyOwned Category = "company_owned"
)

// Valid reports whether c is a supported category.
func (c Category) Valid() bool {
	switch c {
	case CategoryUpstream, CategoryDownstream, CategoryCompanyOwned:
		return true
	}
	return false
}

// OrDefault returns c, or upstream when c is empty. Records written before
// categories existed carry no category.
func (c Category) OrDefault() Category {
	if c == "" {
		return CategoryUpstream
	}
	return c
}

// Good is a product being shipped.
type Good struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Quantity  float64   `json:"quantity" yaml:"quantity"`
	Unit      Unit      `json:"unit" yaml:"unit"`
	Category  Category  `json:"ghg_category" yaml:"ghg_category"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// MassKg returns the good's canonical mass in kilograms.
func (g Good) MassKg() float64 {
	if g.Unit == UnitTons {
		return g.Quantity * 1000
	}
	return g.Quantity
}

// Input holds the fields needed to create a good.
type Input struct {
	Name     string
	Quantity float64
	Unit     string
	Category string
}
