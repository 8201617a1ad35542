package rules

import (
	"maps"

	"github.com/liamcoop/cabinetquote/presets"
)

// Factor names seeded from the calculation input
const (
	FactorBasePrice = "base_price"
	FactorWidth     = "width"
	FactorHeight    = "height"
	FactorDepth     = "depth"
	FactorArea      = "area"
	FactorVolume    = "volume"
)

// Output factors read by the price calculator, in priority order
const (
	FactorDisplayedPrice = "displayed_price"
	FactorFinalPrice     = "final_price"
)

// Namespace maps factor names to values for a single calculation.
// Reads of unknown names yield 0.
type Namespace map[string]float64

// Get returns the value bound to name, or 0 if nothing is bound
func (ns Namespace) Get(name string) float64 {
	return ns[name]
}

// Lookup returns the value bound to name and whether it is bound
func (ns Namespace) Lookup(name string) (float64, bool) {
	v, ok := ns[name]
	return v, ok
}

// Set binds value to name, overwriting any previous binding
func (ns Namespace) Set(name string, value float64) {
	ns[name] = value
}

// Clone returns an independent copy
func (ns Namespace) Clone() Namespace {
	return maps.Clone(ns)
}

// BuildNamespace seeds a namespace from the line item input and the
// built-in business constants
func BuildNamespace(basePrice, width, height, depth float64) Namespace {
	return BuildNamespaceWithPresets(Input{
		BasePrice: basePrice,
		Width:     width,
		Height:    height,
		Depth:     depth,
	}, presets.Defaults())
}

// BuildNamespaceWithPresets seeds a namespace from the input and the given
// preset values. Input and derived factors are written last so a preset can
// never shadow them.
func BuildNamespaceWithPresets(in Input, p presets.Values) Namespace {
	ns := make(Namespace, 24)
	for name, v := range p.Factors() {
		ns[name] = v
	}

	ns[FactorBasePrice] = in.BasePrice
	ns[FactorWidth] = in.Width
	ns[FactorHeight] = in.Height
	ns[FactorDepth] = in.Depth
	ns[FactorArea] = in.Width * in.Height
	ns[FactorVolume] = in.Width * in.Height * in.Depth

	return ns
}
