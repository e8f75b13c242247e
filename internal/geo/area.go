package geo

import (
	"fmt"
	"math"
)

// Area units.
const (
	UnitSquareMetres     = "m²"
	UnitSquareKilometres = "km²"
)

// Area is a polygon area in display units.
type Area struct {
	Value float64
	Unit  string
	// SquareMetres is the unconverted value.
	SquareMetres float64
}

func newArea(m2 float64) Area {
	if m2 < SquareMetresPerKm2 {
		return Area{Value: m2, Unit: UnitSquareMetres, SquareMetres: m2}
	}
	km2 := math.Round(m2/SquareMetresPerKm2*1e4) / 1e4
	return Area{Value: km2, Unit: UnitSquareKilometres, SquareMetres: m2}
}

// String renders the area for labels, e.g. "500000.00 m²" or "1.2346 km²".
func (a Area) String() string {
	if a.Unit == UnitSquareKilometres {
		return fmt.Sprintf("%.4f %s", a.Value, a.Unit)
	}
	return fmt.Sprintf("%.2f %s", a.Value, a.Unit)
}
