package strategy

import (
	"math/bits"
	"sort"
)

// timeTolerance is the window within which two plan times are considered
// equal for tie-breaking purposes.
const timeTolerance = 1e-6

// Stint is one leg of a plan: a compound run from StartLap for Laps laps.
type Stint struct {
	Compound Compound `json:"compound"`
	StartLap int      `json:"start_lap"`
	Laps     int      `json:"laps"`
	Time     float64  `json:"predicted_time"`
}

// Plan is a complete race strategy. Plans returned by EnumeratePlans always
// cover the full race distance and satisfy every constraint; partial plans
// are never produced.
type Plan struct {
	Stints    []Stint `json:"stints"`
	Stops     int     `json:"stops"`
	TotalTime float64 `json:"total_time"`
	Feasible  bool    `json:"feasible"`
}

// EnumeratePlans searches every admissible stop pattern for the race
// described by the constraints and returns the best plans ranked by total
// predicted time. Ties within tolerance prefer fewer stops, then the
// lexicographically first compound sequence under compoundOrder.
//
// Malformed constraints are an error. A well-formed request with no
// feasible strategy returns an empty slice.
func EnumeratePlans(models ModelSet, constraints Constraints, compoundOrder []Compound, logger Logger) ([]*Plan, error) {
	logger = ensureLogger(logger)

	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	compounds := models.Compounds(compoundOrder)

	if len(compounds) == 0 {
		logger.Debugf("No modeled compounds available, returning no plans")
		return []*Plan{}, nil
	}

	search := &planSearch{
		evaluator:   NewEvaluator(models, constraints),
		constraints: constraints,
		compounds:   compounds,
		required:    constraints.diversityRequired(),
		memo:        make(map[searchState][]completion),
	}

	best := search.completions(searchState{remaining: constraints.TotalLaps})

	logger.Debugf("Plan search visited %d states for %d laps, %d compounds", len(search.memo), constraints.TotalLaps, len(compounds))

	plans := make([]*Plan, 0, len(best))

	for _, c := range best {
		plans = append(plans, search.buildPlan(c))
	}

	return plans, nil
}

// searchState identifies a subproblem: laps left to cover, stops already
// committed and the set of compounds used so far (as a bitmask over the
// compound ordering). Tyre age resets at every stop so the previous
// compound does not influence completion cost, and fuel is a pure function
// of laps completed, so neither appears in the key.
type searchState struct {
	remaining int
	stops     int
	used      uint32
}

type stintChoice struct {
	compound int
	laps     int
}

// completion is one way of covering a state's remaining laps. Its time
// includes the pit losses between its own stints but not the stop that led
// into it.
type completion struct {
	time   float64
	stints []stintChoice
}

// planSearch owns the memo table for a single enumeration call. It is
// never reused across calls: a cache shared between requests with
// different constraints or models would silently return answers computed
// under the wrong assumptions.
type planSearch struct {
	evaluator   *Evaluator
	constraints Constraints
	compounds   []Compound
	required    int
	memo        map[searchState][]completion
}

func (s *planSearch) completions(state searchState) []completion {
	if cached, ok := s.memo[state]; ok {
		return cached
	}

	var candidates []completion

	startFuel := s.fuelAt(state.remaining)

	for index, compound := range s.compounds {
		maxLaps := s.constraints.maxStintLength(compound, state.remaining)

		for laps := s.minLaps(state.remaining); laps <= maxLaps; laps++ {
			final := laps == state.remaining

			if !final {
				if state.stops+1 > s.constraints.MaxStops {
					continue
				}

				if state.remaining-laps < s.constraints.MinStintLength && !s.constraints.AllowShortFinalStint {
					continue
				}
			}

			cost := s.evaluator.StintCost(compound, 0, laps, startFuel, final)

			if !cost.Feasible {
				continue
			}

			used := state.used | 1<<uint(index)
			choice := stintChoice{compound: index, laps: laps}

			if final {
				if bits.OnesCount32(used) < s.required {
					continue
				}

				candidates = append(candidates, completion{
					time:   cost.Time,
					stints: []stintChoice{choice},
				})

				continue
			}

			tails := s.completions(searchState{
				remaining: state.remaining - laps,
				stops:     state.stops + 1,
				used:      used,
			})

			for _, tail := range tails {
				stints := make([]stintChoice, 0, len(tail.stints)+1)
				stints = append(stints, choice)
				stints = append(stints, tail.stints...)

				candidates = append(candidates, completion{
					time:   cost.Time + s.constraints.PitLoss + tail.time,
					stints: stints,
				})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return s.compareCompletions(candidates[i], candidates[j]) < 0
	})

	if len(candidates) > s.constraints.topK() {
		candidates = candidates[:s.constraints.topK()]
	}

	s.memo[state] = candidates

	return candidates
}

// minLaps is the shortest admissible stint from a state. When a short
// final stint is allowed and the remaining distance is below the minimum
// stint length, the only choice is to run out the race.
func (s *planSearch) minLaps(remaining int) int {
	if remaining < s.constraints.MinStintLength && s.constraints.AllowShortFinalStint {
		return remaining
	}

	return s.constraints.MinStintLength
}

func (s *planSearch) fuelAt(remaining int) float64 {
	if !s.constraints.fuelLimited() {
		return s.constraints.StartFuel
	}

	completed := s.constraints.TotalLaps - remaining

	return s.constraints.StartFuel - float64(completed)*s.constraints.FuelConsumption
}

// compareCompletions orders by time (within tolerance), then stop count,
// then the compound index sequence, then stint lengths. The final two
// levels make the ranking fully deterministic.
func (s *planSearch) compareCompletions(a, b completion) int {
	if a.time < b.time-timeTolerance {
		return -1
	}

	if b.time < a.time-timeTolerance {
		return 1
	}

	if len(a.stints) != len(b.stints) {
		if len(a.stints) < len(b.stints) {
			return -1
		}

		return 1
	}

	for i := range a.stints {
		if a.stints[i].compound != b.stints[i].compound {
			if a.stints[i].compound < b.stints[i].compound {
				return -1
			}

			return 1
		}
	}

	for i := range a.stints {
		if a.stints[i].laps != b.stints[i].laps {
			if a.stints[i].laps < b.stints[i].laps {
				return -1
			}

			return 1
		}
	}

	return 0
}

func (s *planSearch) buildPlan(c completion) *Plan {
	plan := &Plan{
		Stints:   make([]Stint, 0, len(c.stints)),
		Stops:    len(c.stints) - 1,
		Feasible: true,
	}

	startLap := 1
	remaining := s.constraints.TotalLaps

	for _, choice := range c.stints {
		compound := s.compounds[choice.compound]
		cost := s.evaluator.StintCost(compound, 0, choice.laps, s.fuelAt(remaining), choice.laps == remaining)

		plan.Stints = append(plan.Stints, Stint{
			Compound: compound,
			StartLap: startLap,
			Laps:     choice.laps,
			Time:     cost.Time,
		})

		startLap += choice.laps
		remaining -= choice.laps
	}

	plan.TotalTime = c.time

	return plan
}
