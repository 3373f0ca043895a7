package telemetry

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"justapengu.in/pitwall/internal/strategy"
)

func TestParseLapTime(t *testing.T) {
	lapTimeTests := []struct {
		name    string
		input   string
		seconds float64
		ok      bool
	}{
		{name: "Plain seconds", input: "92.351", seconds: 92.351, ok: true},
		{name: "Minute prefixed", input: "1:32.351", seconds: 92.351, ok: true},
		{name: "Whole seconds", input: "95", seconds: 95, ok: true},
		{name: "Two minutes", input: "2:05.5", seconds: 125.5, ok: true},
		{name: "Padded whitespace", input: "  1:30.0 ", seconds: 90, ok: true},
		{name: "Empty", input: ""},
		{name: "Garbage", input: "fast lap"},
		{name: "Negative", input: "-1:30.0"},
	}

	for _, test := range lapTimeTests {
		t.Run(test.name, func(t *testing.T) {
			seconds, ok := ParseLapTime(test.input)

			if ok != test.ok {
				t.Fatalf("expected ok=%v for %q, got %v", test.ok, test.input, ok)
			}

			if ok && seconds != test.seconds {
				t.Errorf("expected %f seconds for %q, got %f", test.seconds, test.input, seconds)
			}
		})
	}
}

const sessionCSV = `timestamp,currentLap,lastLapTime,compound,tire_age,fuel,extraColumn
t1,1,,Soft,0,50.0,x
t2,1,,Soft,0,49.8,x
t3,2,1:31.200,Soft,1,49.5,x
t4,3,1:31.450,Soft,2,49.0,x
t5,4,1:31.700,Soft,3,48.5,x
t6,5,1:31.950,Soft,4,48.0,x
t7,6,1:35.000,Hard,0,47.5,x
t8,7,1:33.100,Hard,1,47.0,x
`

func TestReadSessionAndBuildSummary(t *testing.T) {
	rows, err := readSession(strings.NewReader("\uFEFF" + sessionCSV))

	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 8 {
		t.Fatalf("expected 8 rows, got %d", len(rows))
	}

	laps := BuildLapSummary(rows, "FP2")

	// lap 1 has no lap time and is dropped
	if len(laps) != 6 {
		t.Fatalf("expected 6 summarised laps, got %d", len(laps))
	}

	first := laps[0]

	if first.Lap != 2 || first.Compound != strategy.CompoundSoft || first.TyreAge != 1 {
		t.Errorf("unexpected first lap summary: %+v", first)
	}

	if first.LapTime != 91.2 {
		t.Errorf("expected lap time 91.2, got %f", first.LapTime)
	}

	if first.Session != "FP2" {
		t.Errorf("expected session FP2, got %s", first.Session)
	}

	if first.Fuel == nil || *first.Fuel != 49.5 {
		t.Errorf("expected fuel 49.5, got %v", first.Fuel)
	}

	// the hard laps follow the pit stop with reset ages
	last := laps[len(laps)-1]

	if last.Compound != strategy.CompoundHard || last.TyreAge != 1 {
		t.Errorf("unexpected final lap summary: %+v", last)
	}
}

func TestBuildStints(t *testing.T) {
	rows, err := readSession(strings.NewReader(sessionCSV))

	if err != nil {
		t.Fatal(err)
	}

	stints := BuildStints(BuildLapSummary(rows, "FP2"))

	if len(stints) != 2 {
		t.Fatalf("expected 2 stints, got %d", len(stints))
	}

	if stints[0].Compound != strategy.CompoundSoft || stints[0].Laps != 4 {
		t.Errorf("unexpected first stint: %+v", stints[0])
	}

	if stints[1].Compound != strategy.CompoundHard || stints[1].StartLap != 6 {
		t.Errorf("unexpected second stint: %+v", stints[1])
	}
}

func TestReadSessionWithoutLapColumn(t *testing.T) {
	_, err := readSession(strings.NewReader("speed,gear\n300,8\n"))

	if err != ErrNoLapColumn {
		t.Errorf("expected ErrNoLapColumn, got %v", err)
	}
}

func TestDerivedTyreAgeWithoutAgeColumn(t *testing.T) {
	raw := `currentLap,lastLapTime,compound,pitstopStatus
1,,Soft,
2,91.0,Soft,
3,91.2,Soft,
4,95.5,Soft,IN PIT
5,91.4,Soft,
`

	rows, err := readSession(strings.NewReader(raw))

	if err != nil {
		t.Fatal(err)
	}

	laps := BuildLapSummary(rows, "FP1")

	if len(laps) != 4 {
		t.Fatalf("expected 4 laps, got %d", len(laps))
	}

	// ages derive from lap sequence and reset on the flagged pit lap
	expected := map[int]int{2: 1, 3: 2, 4: 0, 5: 1}

	for _, lap := range laps {
		if lap.TyreAge != expected[lap.Lap] {
			t.Errorf("lap %d: expected derived age %d, got %d", lap.Lap, expected[lap.Lap], lap.TyreAge)
		}
	}
}

func TestNormalizeCompound(t *testing.T) {
	compoundTests := map[string]strategy.Compound{
		"soft":         strategy.CompoundSoft,
		"SOFT":         strategy.CompoundSoft,
		" Medium ":     strategy.CompoundMedium,
		"h":            strategy.CompoundHard,
		"inters":       strategy.CompoundIntermediate,
		"w":            strategy.CompoundWet,
		"Experimental": "Experimental",
	}

	for input, expected := range compoundTests {
		if got := NormalizeCompound(input); got != expected {
			t.Errorf("NormalizeCompound(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestCollectPracticeData(t *testing.T) {
	dataRoot, err := ioutil.TempDir("", "pitwall-telemetry")

	if err != nil {
		t.Fatal(err)
	}

	defer os.RemoveAll(dataRoot)

	driverDir := filepath.Join(dataRoot, "Monza", "Practice 2", "VER")

	if err := os.MkdirAll(driverDir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := ioutil.WriteFile(filepath.Join(driverDir, "session.csv"), []byte(sessionCSV), 0644); err != nil {
		t.Fatal(err)
	}

	// another driver's data must not leak in
	otherDir := filepath.Join(dataRoot, "Monza", "Practice 2", "HAM")

	if err := os.MkdirAll(otherDir, 0755); err != nil {
		t.Fatal(err)
	}

	if err := ioutil.WriteFile(filepath.Join(otherDir, "session.csv"), []byte(sessionCSV), 0644); err != nil {
		t.Fatal(err)
	}

	laps, sessions, err := CollectPracticeData(dataRoot, "Monza", "VER", nil)

	if err != nil {
		t.Fatal(err)
	}

	if len(laps) != 6 {
		t.Errorf("expected 6 laps for VER, got %d", len(laps))
	}

	if len(sessions) != 1 || sessions[0] != "Practice 2" {
		t.Errorf("expected sessions [Practice 2], got %v", sessions)
	}

	// unknown track yields no laps and no error
	laps, _, err = CollectPracticeData(dataRoot, "Spa", "VER", nil)

	if err != nil {
		t.Fatal(err)
	}

	if len(laps) != 0 {
		t.Errorf("expected no laps for an unknown track, got %d", len(laps))
	}
}
