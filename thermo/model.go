/*
Package thermo computes the thermodynamic quantities the optimizer scores
designs against: an ensemble log-partition-function and base-pairing
probability matrix for a nucleotide sequence (with strand breaks) under a
named Model, plus enforced-pair clamping for decomposition sub-problems.

The DefaultEngine below is deliberately a simplified stand-in for a full
nearest-neighbor loop-energy model (ViennaRNA/NUPACK use measured stacking
tables and dangling-end corrections; see energy.go for the scope of the
simplification). It exists so the optimizer has a real, self-consistent
thermodynamic kernel without vendoring a parameter table.
*/
package thermo

import "fmt"

// GasConstantKcal is the gas constant in kcal/(mol*K).
const GasConstantKcal = 1.98720425864083e-3

// ZeroCelsiusInKelvin converts a Celsius temperature to Kelvin.
const ZeroCelsiusInKelvin = 273.15

// Model names a thermodynamic parameter set and temperature.
type Model struct {
	Key          string
	TemperatureC float64
	Wobble       bool
}

// RT returns RT in kcal/mol at the model's temperature.
func (m Model) RT() float64 {
	return GasConstantKcal * (m.TemperatureC + ZeroCelsiusInKelvin)
}

// builtinModels are the named presets this module ships; a real NUPACK
// deployment would select among measured RNA/DNA parameter sets, but this
// module's energy model does not depend on the nucleic acid type beyond
// its wobble-pairing flag, so the two presets differ only in that flag;
// both use 37 C.
var builtinModels = map[string]Model{
	"rna37": {Key: "rna37", TemperatureC: 37, Wobble: true},
	"dna37": {Key: "dna37", TemperatureC: 37, Wobble: false},
}

// ParseModel resolves a model key to its Model. An empty key resolves to
// "rna37", matching fold.NewFoldingContext's default-to-RNA convention.
func ParseModel(key string) (Model, error) {
	if key == "" {
		key = "rna37"
	}
	m, ok := builtinModels[key]
	if !ok {
		return Model{}, fmt.Errorf("thermo: unrecognized model %q", key)
	}
	return m, nil
}
