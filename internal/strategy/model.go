package strategy

import "sort"

// DegradationModel is a closed-form lap time predictor for a single compound:
// time = Intercept + AgeSlope*age (+ FuelSlope*fuel when fitted with fuel).
// The model is only verified within the age range it was fitted on; callers
// extrapolating beyond MaxObservedAge do so at their own risk.
type DegradationModel struct {
	Intercept float64 `json:"intercept"`
	AgeSlope  float64 `json:"age_slope"`
	FuelSlope float64 `json:"fuel_slope"`
	HasFuel   bool    `json:"has_fuel"`

	SampleCount    int `json:"sample_count"`
	MaxObservedAge int `json:"max_observed_age"`
}

func (m DegradationModel) Predict(age int, fuel float64) float64 {
	predicted := m.Intercept + m.AgeSlope*float64(age)

	if m.HasFuel {
		predicted += m.FuelSlope * fuel
	}

	return predicted
}

// Coefficients returns the model in its stable serialized order:
// [intercept, age_slope] or [intercept, age_slope, fuel_slope].
func (m DegradationModel) Coefficients() []float64 {
	if m.HasFuel {
		return []float64{m.Intercept, m.AgeSlope, m.FuelSlope}
	}

	return []float64{m.Intercept, m.AgeSlope}
}

// ModelFromCoefficients rebuilds a model from its serialized coefficient
// list. Lists of any length other than 2 or 3 are rejected.
func ModelFromCoefficients(coefficients []float64) (DegradationModel, bool) {
	switch len(coefficients) {
	case 2:
		return DegradationModel{
			Intercept: coefficients[0],
			AgeSlope:  coefficients[1],
		}, true
	case 3:
		return DegradationModel{
			Intercept: coefficients[0],
			AgeSlope:  coefficients[1],
			FuelSlope: coefficients[2],
			HasFuel:   true,
		}, true
	default:
		return DegradationModel{}, false
	}
}

// ModelSet maps each modeled compound to its degradation model. A compound
// absent from the set is unmodeled and must not be planned with.
type ModelSet map[Compound]DegradationModel

// Compounds returns the modeled compounds in the given caller order,
// skipping unmodeled ones. Compounds modeled but missing from the order are
// appended afterwards in lexicographic order so none are silently dropped.
func (s ModelSet) Compounds(order []Compound) []Compound {
	if len(order) == 0 {
		order = DefaultCompoundOrder
	}

	seen := make(map[Compound]bool)
	var compounds []Compound

	for _, compound := range order {
		if _, ok := s[compound]; ok && !seen[compound] {
			compounds = append(compounds, compound)
			seen[compound] = true
		}
	}

	var extras []Compound

	for compound := range s {
		if !seen[compound] {
			extras = append(extras, compound)
		}
	}

	sort.Slice(extras, func(i, j int) bool {
		return extras[i] < extras[j]
	})

	return append(compounds, extras...)
}
