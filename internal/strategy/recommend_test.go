package strategy

import (
	"reflect"
	"testing"
)

func recommendConstraints(totalLaps int) Constraints {
	return Constraints{
		TotalLaps:      totalLaps,
		MaxStops:       2,
		MinStintLength: 1,
		PitLoss:        20.0,
	}
}

func TestRecommendPrefersLowerTailCost(t *testing.T) {
	// Hard concedes a second per lap fresh but degrades far slower, so
	// it must win the tail despite the higher intercept
	models := ModelSet{
		CompoundSoft: {Intercept: 90.0, AgeSlope: 0.5},
		CompoundHard: {Intercept: 91.0, AgeSlope: 0.05},
	}

	situation := RaceSituation{
		CurrentLap: 10,
		Compound:   CompoundSoft,
		TyreAge:    5,
	}

	recommendation, err := Recommend(situation, models, recommendConstraints(30), DefaultCompoundOrder, 12, nil)

	if err != nil {
		t.Fatal(err)
	}

	if recommendation == nil {
		t.Fatal("expected a recommendation")
	}

	if recommendation.NextCompound != CompoundHard {
		t.Errorf("expected Hard for the tail, got %s", recommendation.NextCompound)
	}

	if recommendation.StopLap <= situation.CurrentLap || recommendation.StopLap > 30 {
		t.Errorf("stop lap %d outside the legal range", recommendation.StopLap)
	}
}

func TestRecommendFuelExcludesCandidates(t *testing.T) {
	models := testModels()

	constraints := recommendConstraints(30)
	constraints.StartFuel = 10.0
	constraints.FuelConsumption = 0.2

	situation := RaceSituation{
		CurrentLap:    10,
		Compound:      CompoundSoft,
		TyreAge:       4,
		FuelRemaining: 1.0,
	}

	// 20 laps remain but the fuel covers 5: every stop lap in the window
	// leaves an uncoverable tail, so there is nothing to recommend
	recommendation, err := Recommend(situation, models, constraints, DefaultCompoundOrder, 6, nil)

	if err != nil {
		t.Fatal(err)
	}

	if recommendation != nil {
		t.Fatalf("expected no recommendation on starved fuel, got %+v", recommendation)
	}
}

func TestRecommendFuelExactCoverage(t *testing.T) {
	models := testModels()

	constraints := recommendConstraints(15)
	constraints.StartFuel = 10.0
	constraints.FuelConsumption = 0.2

	situation := RaceSituation{
		CurrentLap:    10,
		Compound:      CompoundSoft,
		TyreAge:       4,
		FuelRemaining: 1.0,
	}

	// 5 laps remain on exactly 5 laps of fuel: candidates exist and none
	// may overrun the load
	recommendation, err := Recommend(situation, models, constraints, DefaultCompoundOrder, 6, nil)

	if err != nil {
		t.Fatal(err)
	}

	if recommendation == nil {
		t.Fatal("expected a recommendation when fuel exactly covers the remaining laps")
	}

	consumed := float64(recommendation.LapsToRun) * constraints.FuelConsumption

	if consumed > situation.FuelRemaining+fuelEpsilon {
		t.Errorf("recommended run of %d laps burns %f of a %f load", recommendation.LapsToRun, consumed, situation.FuelRemaining)
	}
}

func TestRecommendTerminalOutcomes(t *testing.T) {
	terminalTests := []struct {
		name      string
		models    ModelSet
		situation RaceSituation
	}{
		{
			name:   "Race already over",
			models: testModels(),
			situation: RaceSituation{
				CurrentLap: 20,
				Compound:   CompoundSoft,
			},
		},
		{
			name:   "Current compound unmodeled",
			models: testModels(),
			situation: RaceSituation{
				CurrentLap: 5,
				Compound:   CompoundWet,
			},
		},
		{
			name:   "No models at all",
			models: ModelSet{},
			situation: RaceSituation{
				CurrentLap: 5,
				Compound:   CompoundSoft,
			},
		},
	}

	for _, test := range terminalTests {
		t.Run(test.name, func(t *testing.T) {
			recommendation, err := Recommend(test.situation, test.models, recommendConstraints(20), DefaultCompoundOrder, 12, nil)

			if err != nil {
				t.Fatal(err)
			}

			if recommendation != nil {
				t.Errorf("expected no recommendation, got %+v", recommendation)
			}
		})
	}
}

func TestRecommendStateless(t *testing.T) {
	situation := RaceSituation{
		CurrentLap: 8,
		Compound:   CompoundSoft,
		TyreAge:    8,
	}

	first, err := Recommend(situation, testModels(), recommendConstraints(30), DefaultCompoundOrder, 10, nil)

	if err != nil {
		t.Fatal(err)
	}

	second, err := Recommend(situation, testModels(), recommendConstraints(30), DefaultCompoundOrder, 10, nil)

	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical calls produced different recommendations")
	}
}

func TestRecommendDefaultHorizon(t *testing.T) {
	situation := RaceSituation{
		CurrentLap: 1,
		Compound:   CompoundSoft,
		TyreAge:    1,
	}

	recommendation, err := Recommend(situation, testModels(), recommendConstraints(50), DefaultCompoundOrder, 0, nil)

	if err != nil {
		t.Fatal(err)
	}

	if recommendation == nil {
		t.Fatal("expected a recommendation")
	}

	if recommendation.StopLap > situation.CurrentLap+DefaultHorizon {
		t.Errorf("stop lap %d beyond the default horizon", recommendation.StopLap)
	}
}
