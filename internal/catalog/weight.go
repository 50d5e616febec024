package catalog

// WeightUnit identifies a shipping weight unit.
type WeightUnit string

const (
	Kilogram WeightUnit = "kg"
	Gram     WeightUnit = "g"
	Pound    WeightUnit = "lb"
	Ounce    WeightUnit = "oz"
)

// grams per unit
var unitGrams = map[WeightUnit]float64{
	Kilogram: 1000,
	Gram:     1,
	Pound:    453.59237,
	Ounce:    28.349523125,
}

// Weight is a shipping weight in a specific unit.
type Weight struct {
	Value float64
	Unit  WeightUnit
}

// In converts the weight to the requested unit. Unknown units are treated
// as grams.
func (w Weight) In(unit WeightUnit) float64 {
	from, ok := unitGrams[w.Unit]
	if !ok {
		from = 1
	}
	to, ok := unitGrams[unit]
	if !ok {
		to = 1
	}
	return w.Value * from / to
}
