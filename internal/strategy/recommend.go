package strategy

// RaceSituation is a snapshot of the car mid-race, as reported by whatever
// is polling the recommender.
type RaceSituation struct {
	CurrentLap    int      `json:"current_lap"`
	Compound      Compound `json:"compound"`
	TyreAge       int      `json:"tyre_age"`
	FuelRemaining float64  `json:"fuel_remaining"`
}

// Recommendation is the suggested next stop. ProjectedTime is the predicted
// cost of the evaluated window: the laps run to the stop, the stop itself
// and the tail on the new compound.
type Recommendation struct {
	StopLap       int      `json:"stop_lap"`
	LapsToRun     int      `json:"laps_to_run"`
	NextCompound  Compound `json:"next_compound"`
	ProjectedTime float64  `json:"projected_time"`
}

// Recommend picks the stop lap and next compound minimising projected time
// over a bounded window of upcoming laps. It holds no state between calls
// and is intended to be re-evaluated on every poll.
//
// A nil result means no recommendation: the race is over, the current
// compound is unmodeled, or no candidate stop is feasible on the remaining
// fuel. None of these are errors.
func Recommend(situation RaceSituation, models ModelSet, constraints Constraints, compoundOrder []Compound, horizon int, logger Logger) (*Recommendation, error) {
	logger = ensureLogger(logger)

	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	if situation.CurrentLap+1 > constraints.TotalLaps {
		return nil, nil
	}

	currentModel, ok := models[situation.Compound]

	if !ok {
		logger.Debugf("Current compound %s is unmodeled, no recommendation", situation.Compound)
		return nil, nil
	}

	evaluator := NewEvaluator(models, constraints)
	compounds := models.Compounds(compoundOrder)

	remaining := constraints.TotalLaps - situation.CurrentLap

	window := horizon

	if remaining < window {
		window = remaining
	}

	windowEnd := situation.CurrentLap + window

	var best *Recommendation

	for lapsToRun := 1; lapsToRun <= window; lapsToRun++ {
		current := evaluator.segmentCost(currentModel, situation.TyreAge, lapsToRun, situation.FuelRemaining)

		if !current.Feasible {
			// out of fuel before this stop lap; later candidates only
			// burn more.
			break
		}

		stopLap := situation.CurrentLap + lapsToRun
		tailLaps := windowEnd - stopLap

		next, tail := bestTail(evaluator, models, compounds, tailLaps, current.EndFuel)

		if next == "" {
			continue
		}

		projected := current.Time + constraints.PitLoss + tail

		if best == nil || projected < best.ProjectedTime {
			best = &Recommendation{
				StopLap:       stopLap,
				LapsToRun:     lapsToRun,
				NextCompound:  next,
				ProjectedTime: projected,
			}
		}
	}

	return best, nil
}

// bestTail picks the compound minimising the cost of the tail segment on
// fresh tyres. The whole segment is costed rather than comparing intercepts
// alone: a compound that starts slower but degrades less can win over a
// long enough tail.
func bestTail(evaluator *Evaluator, models ModelSet, compounds []Compound, tailLaps int, startFuel float64) (Compound, float64) {
	var best Compound
	bestTime := 0.0

	for _, compound := range compounds {
		if tailLaps == 0 {
			// stopping at the window edge: any modeled compound works
			// and the tail costs nothing.
			return compound, 0
		}

		cost := evaluator.segmentCost(models[compound], 0, tailLaps, startFuel)

		if !cost.Feasible {
			continue
		}

		if best == "" || cost.Time < bestTime {
			best = compound
			bestTime = cost.Time
		}
	}

	return best, bestTime
}
