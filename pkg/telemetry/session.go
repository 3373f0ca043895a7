package telemetry

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/dimchansky/utfbom"

	"justapengu.in/pitwall/internal/strategy"
)

var ErrNoLapColumn = errors.New("telemetry: session has no lap column")

// canonical column names produced by the session logger, with the spellings
// seen in the wild
var (
	lapColumns       = []string{"currentLap"}
	lapTimeColumns   = []string{"lastLapTime"}
	compoundColumns  = []string{"compound"}
	tyreAgeColumns   = []string{"tire_age", "tyre_age"}
	fuelColumns      = []string{"fuel"}
	pitStatusColumns = []string{"pitstopStatus", "pitStopStatus", "pit_status"}
)

// Row is one telemetry sample. Exports emit many rows per lap; summarising
// down to one row per completed lap is BuildLapSummary's job.
type Row struct {
	Lap       int
	LapTime   float64 // seconds, 0 when the sample carried no parseable time
	Compound  string
	TyreAge   int // -1 when the export has no tyre age column
	Fuel      *float64
	PitStatus string
}

// LoadSessionCSV reads a session export. Only the canonical columns are
// consumed; anything else in the file is ignored. Rows without a lap number
// are dropped.
func LoadSessionCSV(path string) ([]Row, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, err
	}

	defer f.Close()

	return readSession(f)
}

func readSession(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(utfbom.SkipOnly(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()

	if err == io.EOF {
		return nil, ErrNoLapColumn
	} else if err != nil {
		return nil, err
	}

	columns := indexColumns(header)

	lapIndex, ok := columns.first(lapColumns)

	if !ok {
		return nil, ErrNoLapColumn
	}

	lapTimeIndex, hasLapTime := columns.first(lapTimeColumns)
	compoundIndex, hasCompound := columns.first(compoundColumns)
	tyreAgeIndex, hasTyreAge := columns.first(tyreAgeColumns)
	fuelIndex, hasFuel := columns.first(fuelColumns)
	pitStatusIndex, hasPitStatus := columns.first(pitStatusColumns)

	var rows []Row

	for {
		record, err := reader.Read()

		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		lap, ok := intField(record, lapIndex)

		if !ok {
			continue
		}

		row := Row{
			Lap:     lap,
			TyreAge: -1,
		}

		if hasLapTime {
			if seconds, ok := ParseLapTime(field(record, lapTimeIndex)); ok {
				row.LapTime = seconds
			}
		}

		if hasCompound {
			row.Compound = strings.TrimSpace(field(record, compoundIndex))
		}

		if hasTyreAge {
			if age, ok := intField(record, tyreAgeIndex); ok {
				row.TyreAge = age
			}
		}

		if hasFuel {
			if fuel, err := strconv.ParseFloat(strings.TrimSpace(field(record, fuelIndex)), 64); err == nil {
				row.Fuel = &fuel
			}
		}

		if hasPitStatus {
			row.PitStatus = strings.TrimSpace(field(record, pitStatusIndex))
		}

		rows = append(rows, row)
	}

	return rows, nil
}

type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	columns := make(columnIndex)

	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return columns
}

func (c columnIndex) first(candidates []string) (int, bool) {
	for _, candidate := range candidates {
		if index, ok := c[strings.ToLower(candidate)]; ok {
			return index, true
		}
	}

	return 0, false
}

func field(record []string, index int) string {
	if index >= len(record) {
		return ""
	}

	return record[index]
}

func intField(record []string, index int) (int, bool) {
	value := strings.TrimSpace(field(record, index))

	if value == "" {
		return 0, false
	}

	// lap counters sometimes come through as floats
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(f), true
	}

	return 0, false
}

var lapTimePattern = regexp.MustCompile(`^(?:(\d+):)?(\d+(?:\.\d+)?)$`)

// ParseLapTime accepts plain seconds ("92.351") or minute-prefixed times
// ("1:32.351") and returns seconds.
func ParseLapTime(value string) (float64, bool) {
	value = strings.TrimSpace(value)

	if value == "" {
		return 0, false
	}

	match := lapTimePattern.FindStringSubmatch(value)

	if match == nil {
		return 0, false
	}

	minutes := 0

	if match[1] != "" {
		minutes, _ = strconv.Atoi(match[1])
	}

	seconds, err := strconv.ParseFloat(match[2], 64)

	if err != nil {
		return 0, false
	}

	return float64(minutes)*60 + seconds, true
}

// NormalizeCompound maps a logged compound string onto the planner's
// compound set. Unrecognised names pass through unchanged so they still
// group correctly, they just will not match another session's spelling.
func NormalizeCompound(value string) strategy.Compound {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "soft", "s":
		return strategy.CompoundSoft
	case "medium", "m":
		return strategy.CompoundMedium
	case "hard", "h":
		return strategy.CompoundHard
	case "intermediate", "inters", "i":
		return strategy.CompoundIntermediate
	case "wet", "w":
		return strategy.CompoundWet
	default:
		return strategy.Compound(strings.TrimSpace(value))
	}
}
