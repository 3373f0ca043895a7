package telemetry

import (
	"sort"
	"strings"

	"justapengu.in/pitwall/internal/strategy"
)

// BuildLapSummary reduces raw telemetry rows to one validated LapRecord per
// completed lap. The last sample of each lap wins, since lastLapTime only
// settles once the car has crossed the line. Laps without a positive lap
// time are dropped; tyre ages are derived from detected pit stops when the
// export has no age column.
func BuildLapSummary(rows []Row, session string) []strategy.LapRecord {
	if len(rows) == 0 {
		return nil
	}

	lastByLap := make(map[int]Row)
	pitByLap := make(map[int]bool)
	var lapNumbers []int

	for _, row := range rows {
		if _, seen := lastByLap[row.Lap]; !seen {
			lapNumbers = append(lapNumbers, row.Lap)
		}

		lastByLap[row.Lap] = row

		if pitStatusFlag(row.PitStatus) {
			pitByLap[row.Lap] = true
		}
	}

	sort.Ints(lapNumbers)

	markPitLaps(lapNumbers, lastByLap, pitByLap)

	var laps []strategy.LapRecord
	derivedAge := 0

	for i, lap := range lapNumbers {
		row := lastByLap[lap]

		if i > 0 && pitByLap[lap] {
			derivedAge = 0
		} else if i > 0 {
			derivedAge++
		}

		if lap < 1 || row.LapTime <= 0 {
			continue
		}

		age := row.TyreAge

		if age < 0 {
			age = derivedAge
		}

		laps = append(laps, strategy.LapRecord{
			Lap:      lap,
			Session:  session,
			Compound: NormalizeCompound(row.Compound),
			TyreAge:  age,
			LapTime:  row.LapTime,
			Fuel:     row.Fuel,
		})
	}

	return laps
}

// markPitLaps applies the pit detection heuristics from the session data:
// a tyre age reset to zero, an age drop of two or more, or a compound
// change at low age. Status-column flags are already in pitByLap.
func markPitLaps(lapNumbers []int, lastByLap map[int]Row, pitByLap map[int]bool) {
	for i := 1; i < len(lapNumbers); i++ {
		current := lastByLap[lapNumbers[i]]
		previous := lastByLap[lapNumbers[i-1]]

		if current.TyreAge >= 0 && previous.TyreAge >= 0 {
			if current.TyreAge == 0 && previous.TyreAge > 0 {
				pitByLap[current.Lap] = true
			}

			if current.TyreAge < previous.TyreAge && previous.TyreAge >= 2 {
				pitByLap[current.Lap] = true
			}
		}

		if current.Compound != previous.Compound && current.Compound != "" && current.TyreAge <= 1 {
			pitByLap[current.Lap] = true
		}
	}
}

func pitStatusFlag(status string) bool {
	status = strings.ToLower(status)

	return strings.Contains(status, "pit") || strings.Contains(status, "stop")
}

// SessionStint is a contiguous block of laps on one set of tyres, as
// reconstructed from a lap summary.
type SessionStint struct {
	Number     int               `json:"number"`
	StartLap   int               `json:"start_lap"`
	EndLap     int               `json:"end_lap"`
	Compound   strategy.Compound `json:"compound"`
	Laps       int               `json:"laps"`
	AvgLapTime float64           `json:"avg_lap_time"`
}

// BuildStints splits a lap summary into stints, starting a new one on a
// compound change or a tyre age reset.
func BuildStints(laps []strategy.LapRecord) []SessionStint {
	if len(laps) == 0 {
		return nil
	}

	ordered := make([]strategy.LapRecord, len(laps))
	copy(ordered, laps)

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Lap < ordered[j].Lap
	})

	var stints []SessionStint
	var current []strategy.LapRecord

	flush := func() {
		if len(current) == 0 {
			return
		}

		total := 0.0

		for _, lap := range current {
			total += lap.LapTime
		}

		stints = append(stints, SessionStint{
			Number:     len(stints) + 1,
			StartLap:   current[0].Lap,
			EndLap:     current[len(current)-1].Lap,
			Compound:   current[0].Compound,
			Laps:       len(current),
			AvgLapTime: total / float64(len(current)),
		})

		current = nil
	}

	for i, lap := range ordered {
		if i > 0 {
			previous := ordered[i-1]

			if lap.Compound != previous.Compound || (lap.TyreAge == 0 && previous.TyreAge > 0) {
				flush()
			}
		}

		current = append(current, lap)
	}

	flush()

	return stints
}
