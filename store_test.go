package pitwall

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"justapengu.in/pitwall/internal/strategy"
)

func testStore(t *testing.T) (*BoltStore, func()) {
	t.Helper()

	dir, err := ioutil.TempDir("", "pitwall-store")

	if err != nil {
		t.Fatal(err)
	}

	store, err := NewBoltStore(filepath.Join(dir, "pitwall.db"))

	if err != nil {
		t.Fatal(err)
	}

	return store, func() {
		_ = store.Close()
		_ = os.RemoveAll(dir)
	}
}

func testModelSet() strategy.ModelSet {
	return strategy.ModelSet{
		strategy.CompoundSoft: {Intercept: 90.0, AgeSlope: 0.2},
		strategy.CompoundHard: {Intercept: 92.0, AgeSlope: 0.05, FuelSlope: 0.03, HasFuel: true},
	}
}

func TestBoltStoreModelRoundTrip(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	saved := NewSavedModel("Monza", "VER", []string{"FP2", "FP3"}, true, testModelSet())

	if err := store.UpsertModel(saved); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.FindModelByID(saved.ID)

	if err != nil {
		t.Fatal(err)
	}

	if loaded.Track != "Monza" || loaded.Driver != "VER" || !loaded.UsedFuel {
		t.Errorf("metadata lost in round trip: %+v", loaded)
	}

	set := loaded.ModelSet()

	if len(set) != 2 {
		t.Fatalf("expected 2 compounds, got %d", len(set))
	}

	soft := set[strategy.CompoundSoft]

	if soft.Intercept != 90.0 || soft.AgeSlope != 0.2 || soft.HasFuel {
		t.Errorf("Soft model corrupted: %+v", soft)
	}

	hard := set[strategy.CompoundHard]

	if !hard.HasFuel || hard.FuelSlope != 0.03 {
		t.Errorf("Hard fuel term lost: %+v", hard)
	}
}

func TestBoltStoreModelNotFound(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	if _, err := store.FindModelByID("missing"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}

	if err := store.DeleteModel("missing"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound on delete, got %v", err)
	}
}

func TestBoltStoreListAndDelete(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	first := NewSavedModel("Monza", "VER", nil, false, testModelSet())
	second := NewSavedModel("Spa", "HAM", nil, false, testModelSet())
	second.SavedAt = first.SavedAt.Add(time.Minute)

	if err := store.UpsertModel(first); err != nil {
		t.Fatal(err)
	}

	if err := store.UpsertModel(second); err != nil {
		t.Fatal(err)
	}

	models, err := store.ListModels()

	if err != nil {
		t.Fatal(err)
	}

	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}

	// newest first
	if models[0].Track != "Spa" {
		t.Errorf("expected Spa listed first, got %s", models[0].Track)
	}

	if err := store.DeleteModel(first.ID); err != nil {
		t.Fatal(err)
	}

	models, err = store.ListModels()

	if err != nil {
		t.Fatal(err)
	}

	if len(models) != 1 || models[0].ID != second.ID {
		t.Errorf("expected only the second model to remain")
	}
}

func TestBoltStorePlanRoundTrip(t *testing.T) {
	store, cleanup := testStore(t)
	defer cleanup()

	plan := &SavedPlan{
		ID:      "plan-1",
		ModelID: "model-1",
		Constraints: strategy.Constraints{
			TotalLaps:      10,
			MaxStops:       1,
			MinStintLength: 3,
			PitLoss:        20.0,
		},
		Plans: []*strategy.Plan{
			{
				Stints: []strategy.Stint{
					{Compound: strategy.CompoundSoft, StartLap: 1, Laps: 7, Time: 634.2},
					{Compound: strategy.CompoundHard, StartLap: 8, Laps: 3, Time: 276.15},
				},
				Stops:     1,
				TotalTime: 930.35,
				Feasible:  true,
			},
		},
		CreatedAt: time.Now(),
	}

	if err := store.UpsertPlan(plan); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.FindPlanByID("plan-1")

	if err != nil {
		t.Fatal(err)
	}

	if loaded.ModelID != "model-1" || len(loaded.Plans) != 1 {
		t.Errorf("plan corrupted in round trip: %+v", loaded)
	}

	if loaded.Plans[0].TotalTime != 930.35 || len(loaded.Plans[0].Stints) != 2 {
		t.Errorf("stints corrupted in round trip: %+v", loaded.Plans[0])
	}

	if _, err := store.FindPlanByID("missing"); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
}
