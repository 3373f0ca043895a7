package strategy

const fuelEpsilon = 1e-9

// StintCost is the predicted outcome of running one stint.
type StintCost struct {
	Time     float64
	EndFuel  float64
	Feasible bool
}

// Evaluator computes stint costs against one model set and one constraint
// envelope. It holds no mutable state and is safe for reuse across calls.
type Evaluator struct {
	models      ModelSet
	constraints Constraints
}

func NewEvaluator(models ModelSet, constraints Constraints) *Evaluator {
	return &Evaluator{
		models:      models,
		constraints: constraints,
	}
}

// StintCost predicts elapsed time and end fuel for a stint of the given
// length starting at the given tyre age and fuel load. finalStint marks a
// stint that exactly completes the race, which may be shorter than the
// minimum stint length when the constraints allow it.
func (e *Evaluator) StintCost(compound Compound, startAge, length int, startFuel float64, finalStint bool) StintCost {
	model, ok := e.models[compound]

	if !ok || length <= 0 {
		return StintCost{EndFuel: startFuel}
	}

	if length < e.constraints.MinStintLength && !(finalStint && e.constraints.AllowShortFinalStint) {
		return StintCost{EndFuel: startFuel}
	}

	return e.segmentCost(model, startAge, length, startFuel)
}

// segmentCost is StintCost without the stint length policy. The live
// recommender uses it directly since finishing an in-progress stint is not
// subject to the minimum stint length.
func (e *Evaluator) segmentCost(model DegradationModel, startAge, length int, startFuel float64) StintCost {
	elapsed := 0.0
	fuel := startFuel

	for i := 0; i < length; i++ {
		if e.constraints.fuelLimited() {
			// fuel is checked after each lap: a lap the car cannot
			// complete on the remaining load is infeasible.
			if fuel-e.constraints.FuelConsumption < -fuelEpsilon {
				return StintCost{EndFuel: fuel}
			}
		}

		elapsed += model.Predict(startAge+i, fuel)
		fuel -= e.constraints.FuelConsumption
	}

	return StintCost{
		Time:     elapsed,
		EndFuel:  fuel,
		Feasible: true,
	}
}
